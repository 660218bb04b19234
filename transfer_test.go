package main

import "testing"

func TestBuildSelect(t *testing.T) {
	projected := []ProjectedColumn{
		{Name: "id", Expr: "id", Passthrough: true, SourceType: "integer"},
		{Name: "email", Expr: "LOWER(email)"},
	}

	got := buildSelect("public", "users", projected, `active = TRUE`)
	want := `SELECT id, LOWER(email) AS email FROM public.users WHERE (active = TRUE)`
	if got != want {
		t.Errorf("buildSelect =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildSelect_NoFilter(t *testing.T) {
	projected := []ProjectedColumn{
		{Name: "id", Expr: "id", Passthrough: true, SourceType: "integer"},
	}

	got := buildSelect("public", "users", projected, "")
	want := `SELECT id FROM public.users`
	if got != want {
		t.Errorf("buildSelect = %q, want %q", got, want)
	}
}

func TestBuildSelect_QuotesIdentifiers(t *testing.T) {
	projected := []ProjectedColumn{
		{Name: "order", Expr: `"order"`, Passthrough: true, SourceType: "integer"},
		{Name: "user", Expr: "LOWER(name)"},
	}

	got := buildSelect("public", "select", projected, "")
	want := `SELECT "order", LOWER(name) AS "user" FROM public."select"`
	if got != want {
		t.Errorf("buildSelect = %q, want %q", got, want)
	}
}
