package migrations

import (
	"errors"
	"reflect"
	"testing"
)

func TestLoad_EmbeddedFilesInOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("load postgres: %v", err)
	}
	if len(pg) != 2 {
		t.Fatalf("expected 2 postgres migrations, got %d", len(pg))
	}
	if pg[0].name != "001_spins.sql" || pg[1].name != "002_strategy_updates.sql" {
		t.Errorf("unexpected order: %s, %s", pg[0].name, pg[1].name)
	}

	ch, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("load clickhouse: %v", err)
	}
	for _, m := range ch {
		stmts, err := splitStatements(m.sql)
		if err != nil {
			t.Errorf("%s: %v", m.name, err)
		}
		if len(stmts) == 0 {
			t.Errorf("%s: no statements", m.name)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "comments dropped",
			script: "-- header; with semicolon\nCREATE TABLE a (x UInt8);\n\nCREATE TABLE b (y UInt8);\n",
			want:   []string{"CREATE TABLE a (x UInt8)", "CREATE TABLE b (y UInt8)"},
		},
		{
			name:   "semicolon in literal",
			script: "INSERT INTO t VALUES ('a;b'); SELECT 1",
			want:   []string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"},
		},
		{
			name:   "doubled quote",
			script: "SELECT 'it''s; fine';",
			want:   []string{"SELECT 'it''s; fine'"},
		},
		{
			name:   "backquoted identifier",
			script: "CREATE DATABASE `odd;name`",
			want:   []string{"CREATE DATABASE `odd;name`"},
		},
		{
			name:   "dashes inside literal",
			script: "SELECT '--not a comment'",
			want:   []string{"SELECT '--not a comment'"},
		},
		{
			name:   "empty",
			script: "  ;\n-- only a comment\n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitStatements(tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitStatements_Unterminated(t *testing.T) {
	if _, err := splitStatements("SELECT 'oops"); !errors.Is(err, errUnterminated) {
		t.Errorf("expected errUnterminated, got %v", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("roulette"); got != "`roulette`" {
		t.Errorf("quoteIdent = %q", got)
	}
}
