package main

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"

	"github.com/jackc/pgx/v5"
)

// tablePlan is one table's fully compiled transfer plan. Planning finishes
// for every table before any target DDL runs, so a malformed filter or
// projection aborts the job without mutating anything.
type tablePlan struct {
	name      string
	structure *TableStructure
	projected []ProjectedColumn
	selectSQL string
	columns   []string
}

// matchJobNames resolves a glob pattern against the declared job names and
// returns the matches in name order.
func matchJobNames(pattern string, jobs map[string]*Job) ([]string, error) {
	var names []string
	for name := range jobs {
		ok, err := path.Match(pattern, name)
		if err != nil {
			return nil, configErrorf("bad job pattern %q: %v", pattern, err)
		}
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// runJobs executes every job matching pattern, sequentially, each with its
// own connection pair. A job's fatal error is recorded in its report and
// does not stop the remaining jobs.
func runJobs(ctx context.Context, pattern string, cfg *Config, verbose bool) ([]*JobReport, error) {
	names, err := matchJobNames(pattern, cfg.Jobs)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, configErrorf("no jobs match pattern %q", pattern)
	}

	reports := make([]*JobReport, 0, len(names))
	for _, name := range names {
		log.Printf("job %s...", name)
		reports = append(reports, runJob(ctx, name, cfg.Jobs[name], cfg.dir, verbose))
	}
	return reports, nil
}

// runJob executes one job: plan every table from the source catalog, drop
// and recreate the target schema, create all tables, stream each table's
// data, then best-effort replicate constraints. Fatal errors land in the
// report's Err; per-table errors leave the remaining tables running.
func runJob(ctx context.Context, name string, job *Job, dir string, verbose bool) *JobReport {
	report := &JobReport{Name: name}

	src, err := connectDB(ctx, "source", job.Source.DSN)
	if err != nil {
		report.Err = err
		return report
	}
	defer src.Close(ctx)

	dst, err := connectDB(ctx, "target", job.Target.DSN)
	if err != nil {
		report.Err = err
		return report
	}
	defer dst.Close(ctx)

	plans, err := planTables(ctx, src, job, verbose)
	if err != nil {
		report.Err = err
		return report
	}

	// Target mutation starts here. Schema preparation completes for every
	// table before any data moves, so later foreign keys can reference
	// earlier tables.
	if err := prepareSchema(ctx, dst, job.Target.Schema); err != nil {
		report.Err = err
		return report
	}

	created := make(map[string]map[string]bool, len(plans))
	for _, plan := range plans {
		if err := createTable(ctx, dst, job.Target.Schema, plan.name, plan.projected); err != nil {
			report.Err = err
			return report
		}
		colSet := make(map[string]bool, len(plan.columns))
		for _, c := range plan.columns {
			colSet[c] = true
		}
		created[plan.name] = colSet
	}

	if err := runHookFiles(ctx, dst, dir, job.Target.Schema, job.Hooks.BeforeData, "before_data"); err != nil {
		report.Err = err
		return report
	}

	for _, plan := range plans {
		tr := runTable(ctx, src, dst, job, plan, created, verbose)
		report.Tables = append(report.Tables, tr)

		if src.IsClosed() || dst.IsClosed() {
			report.Err = &ConnectionError{Role: "job", Err: fmt.Errorf("connection lost after table %s", plan.name)}
			return report
		}
	}

	if err := runHookFiles(ctx, dst, dir, job.Target.Schema, job.Hooks.AfterConstraints, "after_constraints"); err != nil {
		report.Err = err
		return report
	}
	return report
}

// planTables expands the wildcard rule and compiles every table's filter,
// projection, and source query. Read-only against the source.
func planTables(ctx context.Context, src *pgx.Conn, job *Job, verbose bool) ([]tablePlan, error) {
	rules, err := expandTables(ctx, src, job)
	if err != nil {
		return nil, err
	}

	plans := make([]tablePlan, 0, len(rules))
	for _, rule := range rules {
		structure, err := introspectTable(ctx, src, job.Source.Schema, rule.Table)
		if err != nil {
			return nil, err
		}

		projected, err := compileProjection(rule.Select, structure.Columns)
		if err != nil {
			return nil, configErrorf("table %s: %v", rule.Table, err)
		}

		colSet := make(map[string]bool, len(structure.Columns))
		for _, c := range structure.Columns {
			colSet[c.Name] = true
		}
		where, err := compileFilter(rule.Where, colSet)
		if err != nil {
			return nil, configErrorf("table %s: %v", rule.Table, err)
		}

		columns := make([]string, len(projected))
		for i, pc := range projected {
			columns[i] = pc.Name
		}

		plan := tablePlan{
			name:      rule.Table,
			structure: structure,
			projected: projected,
			selectSQL: buildSelect(job.Source.Schema, rule.Table, projected, where),
			columns:   columns,
		}
		if verbose {
			log.Printf("  plan %s: %s", rule.Table, plan.selectSQL)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// expandTables resolves the "*" rule against the tables discovered in the
// source schema. Explicit rules keep their config order and override the
// wildcard; discovered-only tables follow in catalog order.
func expandTables(ctx context.Context, src *pgx.Conn, job *Job) ([]TableRule, error) {
	var wildcard *TableRule
	explicit := make([]TableRule, 0, len(job.Tables))
	for i := range job.Tables {
		if job.Tables[i].Table == "*" {
			wildcard = &job.Tables[i]
		} else {
			explicit = append(explicit, job.Tables[i])
		}
	}
	if wildcard == nil {
		return explicit, nil
	}

	discovered, err := listTables(ctx, src, job.Source.Schema)
	if err != nil {
		return nil, err
	}

	named := make(map[string]bool, len(explicit))
	for _, r := range explicit {
		named[r.Table] = true
	}
	out := explicit
	for _, table := range discovered {
		if !named[table] {
			out = append(out, TableRule{Table: table, Where: wildcard.Where, Select: wildcard.Select})
		}
	}
	return out, nil
}

// runTable moves one table's rows inside a single target transaction and
// then replicates its constraints. A transfer failure rolls the transaction
// back, so a failed table contributes no committed rows.
func runTable(ctx context.Context, src, dst *pgx.Conn, job *Job, plan tablePlan, created map[string]map[string]bool, verbose bool) TableReport {
	tr := TableReport{Table: plan.name}

	tx, err := dst.Begin(ctx)
	if err != nil {
		tr.Err = &TransferError{Table: plan.name, Err: err}
		return tr
	}

	rows, err := transferTable(ctx, src, tx, plan.selectSQL, job.Target.Schema, plan.name, plan.columns)
	if err != nil {
		_ = tx.Rollback(ctx)
		tr.Err = err
		return tr
	}
	if err := tx.Commit(ctx); err != nil {
		tr.Err = &TransferError{Table: plan.name, Rows: rows, Err: err}
		return tr
	}
	tr.Rows = rows
	if verbose {
		log.Printf("  %s: copied %d rows", plan.name, rows)
	}

	tr.Constraints = replicateConstraints(ctx, dst, job.Target.Schema, plan.name,
		job.Source.Schema, plan.structure.Constraints, created)
	return tr
}
