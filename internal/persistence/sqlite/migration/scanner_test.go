package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("orders by numeric version", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"m/10_add_index.sql":     {Data: []byte("CREATE INDEX i ON t(a);")},
			"m/2_create_table.sql":   {Data: []byte("CREATE TABLE t (a TEXT);")},
			"m/README.md":            {Data: []byte("ignored")},
			"m/nested/3_ignored.sql": {Data: []byte("SELECT 1;")},
		}

		migrations, err := Scan(fsys, "m")
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "2" || migrations[1].Version != "10" {
			t.Fatalf("unexpected order: %s, %s", migrations[0].Version, migrations[1].Version)
		}
		if migrations[0].Description != "create table" {
			t.Fatalf("unexpected description %q", migrations[0].Description)
		}
		if len(migrations[0].Checksum) != 64 {
			t.Fatalf("expected sha256 checksum, got %q", migrations[0].Checksum)
		}
	})

	t.Run("rejects bad names and duplicates", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			fsys fstest.MapFS
			want error
		}{
			{
				name: "bad name",
				fsys: fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1;")}},
				want: ErrInvalidMigrationFile,
			},
			{
				name: "duplicate version",
				fsys: fstest.MapFS{
					"m/1_a.sql":  {Data: []byte("SELECT 1;")},
					"m/01_b.sql": {Data: []byte("SELECT 1;")},
					"m/1_c.sql":  {Data: []byte("SELECT 2;")},
				},
				want: ErrDuplicateVersion,
			},
			{
				name: "empty file",
				fsys: fstest.MapFS{"m/1_empty.sql": {Data: []byte("  \n")}},
				want: ErrInvalidMigrationFile,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, err := Scan(tt.fsys, "m")
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestParseSQL(t *testing.T) {
	t.Parallel()

	statements := parseSQL(`
-- users
CREATE TABLE a (x TEXT);

-- only a comment;
CREATE INDEX ix ON a(x);
`)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX ix ON a(x)" {
		t.Fatalf("unexpected statement %q", statements[1])
	}
}
