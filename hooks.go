package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
)

// HooksSpec lists SQL files executed on the target connection around the
// data transfer. Paths are relative to the config file. {{schema}} in the
// file body expands to the job's target schema.
type HooksSpec struct {
	BeforeData       []string
	AfterConstraints []string
}

// runHookFiles reads each SQL file, expands {{schema}}, and executes every
// statement on the target.
func runHookFiles(ctx context.Context, conn *pgx.Conn, dir, schema string, files []string, phase string) error {
	if len(files) == 0 {
		return nil
	}
	log.Printf("  running %s hooks (%d files)...", phase, len(files))

	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("hook %s: read %s: %w", phase, f, err)
		}

		sql := strings.ReplaceAll(string(data), "{{schema}}", schema)
		stmts := splitStatements(sql)

		log.Printf("    %s: %d statements", f, len(stmts))
		for i, stmt := range stmts {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("hook %s: %s: statement %d: %w\nSQL: %s", phase, f, i+1, err, stmt)
			}
		}
	}
	return nil
}

// splitStatements splits SQL text on semicolons, ignoring empty entries
// and content inside single-quoted strings.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	inQuote := false

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' && !inQuote:
			inQuote = true
			current.WriteByte(c)
		case c == '\'' && inQuote:
			// Handle escaped quotes ('')
			if i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(c)
				current.WriteByte(c)
				i++
			} else {
				inQuote = false
				current.WriteByte(c)
			}
		case c == ';' && !inQuote:
			s := strings.TrimSpace(current.String())
			if s != "" {
				stmts = append(stmts, s)
			}
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}

	// Trailing statement without semicolon
	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}

	return stmts
}
