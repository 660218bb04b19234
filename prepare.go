package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// prepareSchema drops and recreates the target schema. Every table of a job
// lands in one fresh schema; CASCADE removes whatever a previous run left
// behind.
func prepareSchema(ctx context.Context, conn *pgx.Conn, schema string) error {
	if _, err := conn.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pgIdent(schema))); err != nil {
		return &SchemaError{Op: "drop", Err: err}
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", pgIdent(schema))); err != nil {
		return &SchemaError{Op: "create", Err: err}
	}
	return nil
}

// createTable creates one target table shaped by the compiled projection.
func createTable(ctx context.Context, conn *pgx.Conn, schema, table string, projected []ProjectedColumn) error {
	ddl := buildCreateTable(schema, table, projected)
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return &SchemaError{Op: "create table " + table, Err: fmt.Errorf("%w\nDDL: %s", err, ddl)}
	}
	return nil
}

// buildCreateTable produces the CREATE TABLE statement for a projected
// table. Passthrough columns keep the source type and nullability; columns
// computed from an expression become nullable text since the expression's
// result type is not known here.
func buildCreateTable(schema, table string, projected []ProjectedColumn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", pgQualified(schema, table))

	for i, col := range projected {
		fmt.Fprintf(&b, "  %s %s", pgIdent(col.Name), targetColumnType(col))
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(projected)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}

	b.WriteString(")")
	return b.String()
}

func targetColumnType(col ProjectedColumn) string {
	if col.Passthrough {
		return col.SourceType
	}
	return "text"
}
