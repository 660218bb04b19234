package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
)

// buildSelect assembles the source query: projected expressions over the
// schema-qualified table, with the compiled filter as an optional WHERE.
func buildSelect(schema, table string, projected []ProjectedColumn, where string) string {
	exprs := make([]string, len(projected))
	for i, col := range projected {
		if col.Passthrough {
			exprs[i] = col.Expr
		} else {
			exprs[i] = fmt.Sprintf("%s AS %s", col.Expr, pgIdent(col.Name))
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), pgQualified(schema, table))
	if where != "" {
		sql += fmt.Sprintf(" WHERE (%s)", where)
	}
	return sql
}

// transferTable streams the source query's result set into the target table
// with the COPY protocol: COPY TO STDOUT on the source feeds COPY FROM STDIN
// on the target through a pipe, so at most the pipe's window of rows is
// buffered at any time. Zero rows is a success.
//
// The target side runs on the transaction the caller opened; commit or
// rollback of partially copied rows is the caller's decision.
func transferTable(ctx context.Context, src *pgx.Conn, tx pgx.Tx, selectSQL, targetSchema, targetTable string, columns []string) (int64, error) {
	copyOut := fmt.Sprintf("COPY (%s) TO STDOUT", selectSQL)
	copyIn := fmt.Sprintf("COPY %s (%s) FROM STDIN",
		pgQualified(targetSchema, targetTable), quotedColumnList(columns))

	pr, pw := io.Pipe()
	srcDone := make(chan error, 1)
	go func() {
		_, err := src.PgConn().CopyTo(ctx, pw, copyOut)
		pw.CloseWithError(err)
		srcDone <- err
	}()

	tag, err := tx.Conn().PgConn().CopyFrom(ctx, pr, copyIn)
	pr.CloseWithError(err)
	srcErr := <-srcDone

	rows := tag.RowsAffected()
	if srcErr != nil {
		return rows, &TransferError{Table: targetTable, Rows: rows, Err: fmt.Errorf("source copy: %w", srcErr)}
	}
	if err != nil {
		return rows, &TransferError{Table: targetTable, Rows: rows, Err: fmt.Errorf("target copy: %w", err)}
	}
	return rows, nil
}
