//go:build integration

package main

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIntegration_RunJob(t *testing.T) {
	sourceDSN := os.Getenv("SOURCE_DSN")
	targetDSN := os.Getenv("TARGET_DSN")
	if sourceDSN == "" || targetDSN == "" {
		t.Skip("SOURCE_DSN and TARGET_DSN env vars required")
	}

	ctx := context.Background()

	src, err := pgx.Connect(ctx, sourceDSN)
	if err != nil {
		t.Fatalf("connect source: %v", err)
	}
	defer src.Close(ctx)

	seedSource(t, ctx, src)

	job := &Job{
		Source: ConnSpec{DSN: sourceDSN, Schema: "sieve_src"},
		Target: ConnSpec{DSN: targetDSN, Schema: "sieve_tgt"},
		Tables: []TableRule{
			{Table: "customers"},
			{
				Table: "orders",
				Where: &FilterSpec{Fields: []FilterField{{Column: "paid", Value: true}}},
				Select: &ProjectionSpec{
					Inclusive: true,
					Entries: []ProjectionEntry{
						{Column: "note", Expr: "UPPER(note)"},
						{Column: "customer_id", Exclude: true},
					},
				},
			},
		},
	}

	report := runJob(ctx, "inttest", job, t.TempDir(), true)
	if report.Err != nil {
		t.Fatalf("runJob: %v", report.Err)
	}
	if len(report.Tables) != 2 {
		t.Fatalf("tables in report = %d, want 2", len(report.Tables))
	}

	tgt, err := pgx.Connect(ctx, targetDSN)
	if err != nil {
		t.Fatalf("connect target: %v", err)
	}
	defer tgt.Close(ctx)
	t.Cleanup(func() {
		tgt.Exec(context.Background(), "DROP SCHEMA IF EXISTS sieve_tgt CASCADE")
	})

	// customers copied whole.
	var customers int
	if err := tgt.QueryRow(ctx, "SELECT count(*) FROM sieve_tgt.customers").Scan(&customers); err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if customers != 2 {
		t.Errorf("customers = %d, want 2", customers)
	}

	// orders filtered to paid rows, note upper-cased, customer_id gone.
	rows, err := tgt.Query(ctx, "SELECT id, note FROM sieve_tgt.orders ORDER BY id")
	if err != nil {
		t.Fatalf("query orders: %v", err)
	}
	defer rows.Close()
	var (
		ids   []int32
		notes []string
	)
	for rows.Next() {
		var id int32
		var note string
		if err := rows.Scan(&id, &note); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		notes = append(notes, note)
	}
	if len(ids) != 1 || ids[0] != 1 || notes[0] != "FIRST" {
		t.Errorf("orders = %v / %v, want [1] / [FIRST]", ids, notes)
	}

	var hasCustomerID bool
	err = tgt.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'sieve_tgt' AND table_name = 'orders' AND column_name = 'customer_id'
		)`).Scan(&hasCustomerID)
	if err != nil {
		t.Fatal(err)
	}
	if hasCustomerID {
		t.Error("customer_id should be projected away")
	}

	// PK applied on both tables; orders FK skipped because customer_id is gone.
	orders := findTable(t, report, "orders")
	var pkSeen, fkSkipped bool
	for _, o := range orders.Constraints {
		switch o.Constraint.Kind {
		case PrimaryKey:
			pkSeen = o.Status == Applied
		case ForeignKey:
			fkSkipped = o.Status == Skipped
		}
	}
	if !pkSeen {
		t.Error("orders primary key should be APPLIED")
	}
	if !fkSkipped {
		t.Error("orders foreign key should be SKIPPED")
	}
}

func findTable(t *testing.T, report *JobReport, name string) TableReport {
	t.Helper()
	for _, tr := range report.Tables {
		if tr.Table == name {
			return tr
		}
	}
	t.Fatalf("table %s missing from report", name)
	return TableReport{}
}

func seedSource(t *testing.T, ctx context.Context, src *pgx.Conn) {
	t.Helper()
	stmts := []string{
		"DROP SCHEMA IF EXISTS sieve_src CASCADE",
		"CREATE SCHEMA sieve_src",
		`CREATE TABLE sieve_src.customers (
			id integer PRIMARY KEY,
			email text NOT NULL UNIQUE
		)`,
		`CREATE TABLE sieve_src.orders (
			id integer PRIMARY KEY,
			customer_id integer NOT NULL REFERENCES sieve_src.customers(id),
			paid boolean NOT NULL DEFAULT false,
			note text
		)`,
		`INSERT INTO sieve_src.customers VALUES (1, 'a@example.com'), (2, 'b@example.com')`,
		`INSERT INTO sieve_src.orders VALUES
			(1, 1, true, 'first'),
			(2, 1, false, 'second'),
			(3, 2, false, 'third')`,
	}
	for _, stmt := range stmts {
		if _, err := src.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed: %v\nSQL: %s", err, stmt)
		}
	}
	t.Cleanup(func() {
		src.Exec(context.Background(), "DROP SCHEMA IF EXISTS sieve_src CASCADE")
	})
}
