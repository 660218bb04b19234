package main

import "testing"

func TestSplitStatements(t *testing.T) {
	sql := `
CREATE INDEX idx_users_email ON {{schema}}.users (email);
UPDATE t SET note = 'semi; colon';
-- trailing statement without semicolon
ANALYZE`

	stmts := splitStatements(sql)
	if len(stmts) != 3 {
		t.Fatalf("statements = %d, want 3\n%v", len(stmts), stmts)
	}
	if stmts[1] != `UPDATE t SET note = 'semi; colon'` {
		t.Errorf("quoted semicolon split wrong: %q", stmts[1])
	}
	if stmts[2] != "-- trailing statement without semicolon\nANALYZE" {
		t.Errorf("trailing statement = %q", stmts[2])
	}
}

func TestSplitStatements_EscapedQuote(t *testing.T) {
	stmts := splitStatements(`INSERT INTO t VALUES ('o''brien; x'); SELECT 1`)
	if len(stmts) != 2 {
		t.Fatalf("statements = %d, want 2\n%v", len(stmts), stmts)
	}
	if stmts[0] != `INSERT INTO t VALUES ('o''brien; x')` {
		t.Errorf("first statement = %q", stmts[0])
	}
}

func TestSplitStatements_Empty(t *testing.T) {
	if stmts := splitStatements("  ;;  \n ;"); len(stmts) != 0 {
		t.Errorf("expected no statements, got %v", stmts)
	}
}
