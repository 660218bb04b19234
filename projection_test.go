package main

import (
	"errors"
	"testing"
)

func sourceColumns() []Column {
	return []Column{
		{Name: "id", DataType: "integer", Nullable: false, OrdinalPos: 1},
		{Name: "email", DataType: "character varying(150)", Nullable: false, OrdinalPos: 2},
		{Name: "phone", DataType: "text", Nullable: true, OrdinalPos: 3},
		{Name: "name", DataType: "text", Nullable: true, OrdinalPos: 4},
	}
}

func projectedNames(t *testing.T, cols []ProjectedColumn) []string {
	t.Helper()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func assertNames(t *testing.T, got []ProjectedColumn, want ...string) {
	t.Helper()
	names := projectedNames(t, got)
	if len(names) != len(want) {
		t.Fatalf("columns = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("columns = %v, want %v", names, want)
		}
	}
}

func TestCompileProjection_Identity(t *testing.T) {
	got, err := compileProjection(nil, sourceColumns())
	if err != nil {
		t.Fatalf("compileProjection error: %v", err)
	}
	assertNames(t, got, "id", "email", "phone", "name")
	for _, c := range got {
		if !c.Passthrough {
			t.Errorf("column %s should be a passthrough", c.Name)
		}
	}
	if got[0].SourceType != "integer" || got[0].Nullable {
		t.Errorf("id column = %+v", got[0])
	}
}

func TestCompileProjection_Exclusive(t *testing.T) {
	p := &ProjectionSpec{Entries: []ProjectionEntry{
		{Column: "email", Expr: "LOWER(email)"},
		{Column: "id"},
	}}
	got, err := compileProjection(p, sourceColumns())
	if err != nil {
		t.Fatalf("compileProjection error: %v", err)
	}
	// Exclusive mode: exactly the listed entries, in listing order.
	assertNames(t, got, "email", "id")

	if got[0].Passthrough {
		t.Error("transformed email should not be a passthrough")
	}
	if got[0].Expr != "LOWER(email)" {
		t.Errorf("email expr = %q", got[0].Expr)
	}
	if !got[1].Passthrough || got[1].SourceType != "integer" {
		t.Errorf("id column = %+v", got[1])
	}
}

func TestCompileProjection_ExclusiveRejectsExclude(t *testing.T) {
	p := &ProjectionSpec{Entries: []ProjectionEntry{
		{Column: "id"},
		{Column: "phone", Exclude: true},
	}}
	var cfgErr *ConfigError
	if _, err := compileProjection(p, sourceColumns()); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompileProjection_Inclusive(t *testing.T) {
	p := &ProjectionSpec{
		Inclusive: true,
		Entries: []ProjectionEntry{
			{Column: "email", Expr: "LOWER(email)"},
			{Column: "phone", Exclude: true},
		},
	}
	got, err := compileProjection(p, sourceColumns())
	if err != nil {
		t.Fatalf("compileProjection error: %v", err)
	}
	// phone dropped, email overridden in place, the rest in source order.
	assertNames(t, got, "id", "email", "name")
	if got[1].Expr != "LOWER(email)" || got[1].Passthrough {
		t.Errorf("email column = %+v", got[1])
	}
}

func TestCompileProjection_InclusiveAppendsNewColumns(t *testing.T) {
	p := &ProjectionSpec{
		Inclusive: true,
		Entries: []ProjectionEntry{
			{Column: "full_contact", Expr: "email || ' / ' || COALESCE(phone, '')"},
		},
	}
	got, err := compileProjection(p, sourceColumns())
	if err != nil {
		t.Fatalf("compileProjection error: %v", err)
	}
	assertNames(t, got, "id", "email", "phone", "name", "full_contact")
	last := got[len(got)-1]
	if last.Passthrough || !last.Nullable {
		t.Errorf("computed column = %+v", last)
	}
}

func TestCompileProjection_InclusiveExcludeUnknownColumn(t *testing.T) {
	p := &ProjectionSpec{
		Inclusive: true,
		Entries:   []ProjectionEntry{{Column: "no_such", Exclude: true}},
	}
	got, err := compileProjection(p, sourceColumns())
	if err != nil {
		t.Fatalf("compileProjection error: %v", err)
	}
	// Excluding a column that is not there changes nothing.
	assertNames(t, got, "id", "email", "phone", "name")
}

func TestCompileProjection_ExclusiveUnknownColumnNeedsExpr(t *testing.T) {
	p := &ProjectionSpec{Entries: []ProjectionEntry{{Column: "no_such"}}}
	var cfgErr *ConfigError
	if _, err := compileProjection(p, sourceColumns()); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompileProjection_EmptyExclusive(t *testing.T) {
	p := &ProjectionSpec{}
	var cfgErr *ConfigError
	if _, err := compileProjection(p, sourceColumns()); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompileProjection_ReservedWordColumn(t *testing.T) {
	src := []Column{{Name: "user", DataType: "text", Nullable: true, OrdinalPos: 1}}
	got, err := compileProjection(nil, src)
	if err != nil {
		t.Fatalf("compileProjection error: %v", err)
	}
	if got[0].Expr != `"user"` {
		t.Errorf("reserved word expr = %q", got[0].Expr)
	}
}
