package main

import "testing"

func TestPgIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", "users"},
		{"user", `"user"`},   // reserved
		{"order", `"order"`}, // reserved
		{"my_table", "my_table"},
		{"MyTable", `"MyTable"`},
		{"with space", `"with space"`},
		{"3col", `"3col"`},
		{`odd"name`, `"odd""name"`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := pgIdent(tt.in); got != tt.want {
			t.Errorf("pgIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPgQualified(t *testing.T) {
	if got := pgQualified("app", "users"); got != "app.users" {
		t.Errorf("pgQualified = %q", got)
	}
	if got := pgQualified("app", "user"); got != `app."user"` {
		t.Errorf("pgQualified = %q", got)
	}
}

func TestPgString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"o'brien", "'o''brien'"},
		{`back\slash`, `E'back\\slash'`},
		{"", "''"},
	}
	for _, tt := range tests {
		if got := pgString(tt.in); got != tt.want {
			t.Errorf("pgString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPgLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"abc", "'abc'"},
		{true, "TRUE"},
		{false, "FALSE"},
		{42, "42"},
		{int64(42), "42"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		got, err := pgLiteral(tt.in)
		if err != nil {
			t.Fatalf("pgLiteral(%v) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("pgLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := pgLiteral(struct{}{}); err == nil {
		t.Error("expected error for unsupported literal type")
	}
}

func TestQuotedColumnList(t *testing.T) {
	got := quotedColumnList([]string{"id", "user", "email"})
	if got != `id, "user", email` {
		t.Errorf("quotedColumnList = %q", got)
	}
}
