package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// connectDB opens a single connection for one side of a job. role is
// "source" or "target" and only feeds error messages.
func connectDB(ctx context.Context, role, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, &ConnectionError{Role: role, Err: err}
	}
	return conn, nil
}

// listTables returns the ordinary and partitioned tables of a schema in
// name order.
func listTables(ctx context.Context, conn *pgx.Conn, schema string) ([]string, error) {
	rows, err := conn.Query(ctx, `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
		ORDER BY c.relname`,
		schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// introspectTable reads a table's columns and constraints from the source
// catalog. Returns NotFoundError if the table does not exist.
func introspectTable(ctx context.Context, conn *pgx.Conn, schema, table string) (*TableStructure, error) {
	cols, err := introspectColumns(ctx, conn, schema, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, &NotFoundError{Schema: schema, Table: table}
	}

	cons, err := introspectConstraints(ctx, conn, schema, table)
	if err != nil {
		return nil, err
	}

	return &TableStructure{Name: table, Columns: cols, Constraints: cons}, nil
}

func introspectColumns(ctx context.Context, conn *pgx.Conn, schema, table string) ([]Column, error) {
	rows, err := conn.Query(ctx, `
		SELECT a.attname,
		       pg_catalog.format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull,
		       a.attnum
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
		  AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`,
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspect columns for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.OrdinalPos); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func introspectConstraints(ctx context.Context, conn *pgx.Conn, schema, table string) ([]Constraint, error) {
	rows, err := conn.Query(ctx, `
		SELECT con.conname,
		       con.contype::text,
		       COALESCE((
		           SELECT array_agg(a.attname ORDER BY k.ord)
		           FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_catalog.pg_attribute a
		             ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		       ), '{}'),
		       pg_catalog.pg_get_constraintdef(con.oid),
		       COALESCE(rn.nspname, ''),
		       COALESCE(rc.relname, ''),
		       COALESCE((
		           SELECT array_agg(a.attname ORDER BY k.ord)
		           FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_catalog.pg_attribute a
		             ON a.attrelid = con.confrelid AND a.attnum = k.attnum
		       ), '{}'),
		       CASE WHEN con.contype = 'f' THEN con.confupdtype::text ELSE '' END,
		       CASE WHEN con.contype = 'f' THEN con.confdeltype::text ELSE '' END
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
		LEFT JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
		  AND con.contype IN ('p', 'u', 'c', 'f')
		ORDER BY con.conname`,
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("introspect constraints for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cons []Constraint
	for rows.Next() {
		var (
			con              Constraint
			contype          string
			updCode, delCode string
		)
		if err := rows.Scan(&con.Name, &contype, &con.Columns, &con.Definition,
			&con.RefSchema, &con.RefTable, &con.RefColumns, &updCode, &delCode); err != nil {
			return nil, err
		}
		switch contype {
		case "p":
			con.Kind = PrimaryKey
		case "u":
			con.Kind = Unique
		case "c":
			con.Kind = Check
		case "f":
			con.Kind = ForeignKey
			con.UpdateRule = fkRuleName(updCode)
			con.DeleteRule = fkRuleName(delCode)
		}
		cons = append(cons, con)
	}
	return cons, rows.Err()
}

// fkRuleName maps pg_constraint action codes to their DDL spelling.
func fkRuleName(code string) string {
	switch code {
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}
