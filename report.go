package main

import "log"

// TableReport is the outcome of one table job.
type TableReport struct {
	Table       string
	Rows        int64
	Err         error // fatal for this table only
	Constraints []ConstraintOutcome
}

// ConstraintWarnings counts constraints that were not applied.
func (r *TableReport) ConstraintWarnings() int {
	n := 0
	for _, o := range r.Constraints {
		if o.Status != Applied {
			n++
		}
	}
	return n
}

// JobReport aggregates the per-table outcomes of one job.
type JobReport struct {
	Name   string
	Tables []TableReport
	Err    error // fatal job error; Tables holds whatever completed before it
}

// Failed reports whether the job hit a fatal error or lost any table.
func (r *JobReport) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, t := range r.Tables {
		if t.Err != nil {
			return true
		}
	}
	return false
}

// logSummary prints the job outcome in the server log format.
func (r *JobReport) logSummary() {
	if r.Err != nil {
		log.Printf("job %s: FAILED: %v", r.Name, r.Err)
	}
	for _, t := range r.Tables {
		switch {
		case t.Err != nil:
			log.Printf("  %s: FAILED: %v", t.Table, t.Err)
		case t.ConstraintWarnings() > 0:
			log.Printf("  %s: %d rows, %d constraint warning(s)", t.Table, t.Rows, t.ConstraintWarnings())
		default:
			log.Printf("  %s: %d rows", t.Table, t.Rows)
		}
		for _, o := range t.Constraints {
			if o.Status == Applied {
				continue
			}
			log.Printf("    WARN: %s %s %s: %s", o.Constraint.Kind, o.Constraint.Name, o.Status, o.Detail)
		}
	}
}
