package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"simple dot", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"integer only", "45", 4500, false},
		{"single decimal", "7.5", 750, false},
		{"third decimal rounds down", "12.344", 1234, false},
		{"third decimal rounds up", "12.345", 1235, false},
		{"leading dot", ".99", 99, false},
		{"whitespace trimmed", "  3.00 ", 300, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"zero decimal", "0.00", 0, true},
		{"negative rejected", "-5.00", 0, true},
		{"plus sign rejected", "+5.00", 0, true},
		{"letters rejected", "12a.00", 0, true},
		{"two dots rejected", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{5, "0.05"},
		{0, "0.00"},
		{-1250, "-12.50"},
		{100000, "1000.00"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoney_PercentOf(t *testing.T) {
	spent := Money{Cents: 7500}
	limit := Money{Cents: 10000}
	if got := spent.PercentOf(limit); got != 75.0 {
		t.Errorf("PercentOf = %v, want 75.0", got)
	}
	if got := spent.PercentOf(Money{}); got != 0 {
		t.Errorf("PercentOf zero whole = %v, want 0", got)
	}
}
