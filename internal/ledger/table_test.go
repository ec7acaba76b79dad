package ledger

import (
	"errors"
	"testing"
)

func TestParseTableQuoting(t *testing.T) {
	raw := `date,description,amount
2025-01-05,"COFFEE, BAGEL & CO",-12.50
2025-01-06,"She said ""hi""",-3.00
2025-01-07,PLAIN FIELD,-1.00`

	tbl, err := ParseTable(raw, ',')
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	tests := []struct {
		row    int
		column string
		want   string
	}{
		{0, "description", "COFFEE, BAGEL & CO"},
		{0, "amount", "-12.50"},
		{1, "description", `She said "hi"`},
		{2, "description", "PLAIN FIELD"},
	}
	for _, tt := range tests {
		if got := tbl.Get(tt.row, tt.column); got != tt.want {
			t.Errorf("Get(%d, %q) = %q, want %q", tt.row, tt.column, got, tt.want)
		}
	}
}

func TestParseTableHeaderHandling(t *testing.T) {
	raw := "DATE,Description,AMOUNT\n2025-01-05,x,-1"
	tbl, err := ParseTable(raw, ',')
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}

	// Header matching is case-insensitive in both directions.
	if got := tbl.Get(0, "date"); got != "2025-01-05" {
		t.Errorf("Get(date) = %q", got)
	}
	if got := tbl.Get(0, "Amount"); got != "-1" {
		t.Errorf("Get(Amount) = %q", got)
	}
	if got := tbl.Get(0, "nope"); got != "" {
		t.Errorf("unknown column should be empty, got %q", got)
	}
	if !tbl.HasColumn("DESCRIPTION") || tbl.HasColumn("category") {
		t.Error("HasColumn() wrong")
	}
}

func TestParseTableColumnOrderNotAssumed(t *testing.T) {
	raw := "amount,date\n-5,2025-02-01"
	tbl, err := ParseTable(raw, ',')
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if got := tbl.Get(0, "date"); got != "2025-02-01" {
		t.Errorf("Get(date) = %q, want 2025-02-01", got)
	}
}

func TestParseTableShortRow(t *testing.T) {
	raw := "date,description,amount\n2025-01-05,only two fields"
	tbl, err := ParseTable(raw, ',')
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if got := tbl.Get(0, "amount"); got != "" {
		t.Errorf("short row missing column should be empty, got %q", got)
	}
}

func TestParseTableEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "\n\n  \n"} {
		if _, err := ParseTable(raw, ','); !errors.Is(err, ErrNoHeader) {
			t.Errorf("ParseTable(%q) error = %v, want ErrNoHeader", raw, err)
		}
	}
}

func TestParseTableCRLF(t *testing.T) {
	raw := "date,amount\r\n2025-01-05,-1\r\n"
	tbl, err := ParseTable(raw, ',')
	if err != nil {
		t.Fatalf("ParseTable() error = %v", err)
	}
	if tbl.Len() != 1 || tbl.Get(0, "amount") != "-1" {
		t.Errorf("CRLF input parsed wrong: len=%d", tbl.Len())
	}
}
