package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead_Basic(t *testing.T) {
	input := "sampleID\tlocus\tasv\treads\nS1\tL1\tACGT\t10\nS1\tL1\tACGA\t5\n"

	tbl, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got := strings.Join(tbl.Columns, ","); got != "sampleID,locus,asv,reads" {
		t.Errorf("Columns = %q", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if v, ok := tbl.Value(1, "asv"); !ok || v != "ACGA" {
		t.Errorf("Value(1, asv) = %q, %v", v, ok)
	}
	if _, ok := tbl.Value(0, "nope"); ok {
		t.Error("Value() should report a missing column")
	}
}

func TestRead_StripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFtarget_id\tforward_primers\nT1\tACGT\n"

	tbl, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !tbl.Has("target_id") {
		t.Errorf("BOM leaked into header: %q", tbl.Columns[0])
	}
}

func TestRead_SanitizesInvalidUTF8(t *testing.T) {
	input := "id\tname\n1\tbad\xffbyte\n"

	tbl, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	v, _ := tbl.Value(0, "name")
	if v != "bad�byte" {
		t.Errorf("Value = %q, want replacement character", v)
	}
}

func TestRead_SkipsBlankLinesAndPadsShortRows(t *testing.T) {
	input := "\n\na\tb\tc\n1\t2\n\t\t\n3\t4\t5\n"

	tbl, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if v, ok := tbl.Value(0, "c"); !ok || v != "" {
		t.Errorf("padded cell = %q, %v", v, ok)
	}
	if v, _ := tbl.Value(1, "c"); v != "5" {
		t.Errorf("Value(1, c) = %q, want 5", v)
	}
}

func TestRead_TrailingEmptyCellsAllowed(t *testing.T) {
	tbl, err := Read(strings.NewReader("a\tb\n1\t2\t\t\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(tbl.Rows[0]) != 2 {
		t.Errorf("row has %d cells, want 2", len(tbl.Rows[0]))
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "no header"},
		{"only blank lines", "\n\t\n", "no header"},
		{"duplicate column", "a\tb\ta\n1\t2\t3\n", "duplicate column"},
		{"empty column name", "a\t\tc\n1\t2\t3\n", "empty name"},
		{"too many cells", "a\tb\n1\t2\t3\n", "header has 2 columns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Read() expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRead_MaxBytes(t *testing.T) {
	_, err := Read(strings.NewReader("a\tb\n1\t2\n"), WithMaxBytes(4))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
}

func TestRead_CustomDelimiter(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\n1,2\n"), WithDelimiter(','))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if v, _ := tbl.Value(0, "b"); v != "2" {
		t.Errorf("Value(0, b) = %q, want 2", v)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.tsv")
	if err := os.WriteFile(path, []byte("target_id\nT1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.tsv")); err == nil {
		t.Error("ReadFile() expected error for missing file")
	}
}

func TestMissing(t *testing.T) {
	tbl, err := New([]string{"a", "b"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := tbl.Missing("b", "z", "a", "y")
	if strings.Join(got, ",") != "z,y" {
		t.Errorf("Missing() = %v, want [z y]", got)
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  plain  ", "plain"},
		{`"quoted"`, "quoted"},
		{`' single '`, "single"},
		{`"`, `"`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
