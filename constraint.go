package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
)

// OutcomeStatus is the result of one constraint replication attempt.
type OutcomeStatus int

const (
	Applied OutcomeStatus = iota
	Skipped
	Failed
)

func (s OutcomeStatus) String() string {
	switch s {
	case Applied:
		return "APPLIED"
	case Skipped:
		return "SKIPPED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// ConstraintOutcome pairs a constraint with what happened to it.
type ConstraintOutcome struct {
	Constraint Constraint
	Status     OutcomeStatus
	Detail     string
}

// constraintPriority fixes the application order: keys that other
// constraints depend on go first, foreign keys last.
var constraintPriority = map[ConstraintKind]int{
	PrimaryKey: 0,
	Unique:     1,
	Check:      2,
	ForeignKey: 3,
}

// sortConstraints returns a copy ordered by priority; order within one kind
// is preserved.
func sortConstraints(cons []Constraint) []Constraint {
	out := make([]Constraint, len(cons))
	copy(out, cons)
	sort.SliceStable(out, func(i, j int) bool {
		return constraintPriority[out[i].Kind] < constraintPriority[out[j].Kind]
	})
	return out
}

// replicateConstraints attempts each constraint on the target table and
// reports per-constraint outcomes. It never fails as a whole: constraints
// whose columns or referenced tables did not survive the projection are
// SKIPPED, database rejections are FAILED, and the job carries on either
// way.
//
// sourceSchema identifies where foreign keys may point; created maps each
// table built in this job to its target column set.
func replicateConstraints(ctx context.Context, conn *pgx.Conn, targetSchema, table, sourceSchema string, cons []Constraint, created map[string]map[string]bool) []ConstraintOutcome {
	outcomes := make([]ConstraintOutcome, 0, len(cons))
	targetCols := created[table]

	for _, con := range sortConstraints(cons) {
		if reason := skipReason(con, sourceSchema, targetCols, created); reason != "" {
			outcomes = append(outcomes, ConstraintOutcome{Constraint: con, Status: Skipped, Detail: reason})
			continue
		}

		ddl := buildAddConstraint(targetSchema, table, con)
		if _, err := conn.Exec(ctx, ddl); err != nil {
			outcomes = append(outcomes, ConstraintOutcome{Constraint: con, Status: Failed, Detail: err.Error()})
			continue
		}
		outcomes = append(outcomes, ConstraintOutcome{Constraint: con, Status: Applied})
	}
	return outcomes
}

func skipReason(con Constraint, sourceSchema string, targetCols map[string]bool, created map[string]map[string]bool) string {
	for _, col := range con.Columns {
		if !targetCols[col] {
			return fmt.Sprintf("column %s not present in target", col)
		}
	}
	if con.Kind != ForeignKey {
		return ""
	}
	if con.RefSchema != sourceSchema {
		return fmt.Sprintf("references %s.%s outside the source schema", con.RefSchema, con.RefTable)
	}
	refCols, ok := created[con.RefTable]
	if !ok {
		return fmt.Sprintf("referenced table %s not present in target", con.RefTable)
	}
	for _, col := range con.RefColumns {
		if !refCols[col] {
			return fmt.Sprintf("referenced column %s.%s not present in target", con.RefTable, col)
		}
	}
	return ""
}

// buildAddConstraint renders the ALTER TABLE statement for one constraint.
// Primary keys, unique keys, and foreign keys are rebuilt from their column
// lists; CHECK constraints replay the introspected definition verbatim.
// Foreign keys are re-pointed at the target schema.
func buildAddConstraint(targetSchema, table string, con Constraint) string {
	prefix := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s ",
		pgQualified(targetSchema, table), pgIdent(con.Name))

	switch con.Kind {
	case PrimaryKey:
		return prefix + fmt.Sprintf("PRIMARY KEY (%s)", quotedColumnList(con.Columns))
	case Unique:
		return prefix + fmt.Sprintf("UNIQUE (%s)", quotedColumnList(con.Columns))
	case ForeignKey:
		return prefix + fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
			quotedColumnList(con.Columns),
			pgQualified(targetSchema, con.RefTable),
			quotedColumnList(con.RefColumns),
			con.UpdateRule, con.DeleteRule)
	default:
		return prefix + con.Definition
	}
}
