package typemap

import (
	"testing"
)

func intPtr(n int) *int { return &n }

func TestParseDatatype(t *testing.T) {
	tests := []struct {
		raw     string
		base    string
		wantLen *int
	}{
		{"varchar(50)", "varchar", intPtr(50)},
		{"VARCHAR (MAX)", "varchar", nil},
		{"varchar(max)", "varchar", nil},
		{"  Varchar  (255) ", "varchar", intPtr(255)},
		{"integer", "integer", nil},
		{"DATETIME", "datetime", nil},
		{"varchar", "varchar", nil},
		{"varchar(abc)", "varchar(abc)", nil},
		{"", "", nil},
		{"   ", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseDatatype(tt.raw)
			if got.Base != tt.base {
				t.Errorf("ParseDatatype(%q).Base = %q, want %q", tt.raw, got.Base, tt.base)
			}
			switch {
			case tt.wantLen == nil && got.MaxLength != nil:
				t.Errorf("ParseDatatype(%q).MaxLength = %d, want nil", tt.raw, *got.MaxLength)
			case tt.wantLen != nil && got.MaxLength == nil:
				t.Errorf("ParseDatatype(%q).MaxLength = nil, want %d", tt.raw, *tt.wantLen)
			case tt.wantLen != nil && *got.MaxLength != *tt.wantLen:
				t.Errorf("ParseDatatype(%q).MaxLength = %d, want %d", tt.raw, *got.MaxLength, *tt.wantLen)
			}
		})
	}
}

func TestMap(t *testing.T) {
	tests := []struct {
		raw    string
		typ    string
		format string
	}{
		{"integer", TypeInteger, ""},
		{"float", TypeNumber, ""},
		{"date", TypeString, "date"},
		{"datetime", TypeString, "date-time"},
		{"varchar(20)", TypeString, ""},
		{"foo", TypeString, ""},
		{"", TypeString, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Default().Map(tt.raw)
			if got.Type != tt.typ || got.Format != tt.format {
				t.Errorf("Map(%q) = %+v, want type %q format %q", tt.raw, got, tt.typ, tt.format)
			}
		})
	}
}

func TestMaxLengthOnlyForBoundedVarchar(t *testing.T) {
	if f := Default().Map("varchar(50)"); f.MaxLength == nil || *f.MaxLength != 50 {
		t.Errorf("expected maxLength 50, got %+v", f)
	}
	if f := Default().Map("varchar(MAX)"); f.MaxLength != nil {
		t.Errorf("unbounded varchar should have no maxLength, got %d", *f.MaxLength)
	}
	if f := Default().Map("integer"); f.MaxLength != nil {
		t.Errorf("integer should have no maxLength, got %d", *f.MaxLength)
	}
}

func TestResolveDoesNotShareMaxLength(t *testing.T) {
	tm := Default()
	a := tm.Resolve(ParseDatatype("varchar(10)"))
	b := tm.Resolve(ParseDatatype("varchar(20)"))
	if *a.MaxLength != 10 || *b.MaxLength != 20 {
		t.Errorf("fragments share state: %d, %d", *a.MaxLength, *b.MaxLength)
	}
	if tm.Mappings["varchar"].MaxLength != nil {
		t.Error("Resolve must not mutate the mapping table")
	}
}
