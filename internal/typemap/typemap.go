package typemap

import (
	"regexp"
	"strconv"
	"strings"
)

// JSON Schema primitive type names.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
)

// Fragment is the type part of a JSON Schema property.
type Fragment struct {
	Type      string `json:"type"`
	Format    string `json:"format,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
}

// Datatype is a parsed CDM datatype declaration. Base is empty when the
// declaration was blank; MaxLength is nil for unbounded or unsized types.
type Datatype struct {
	Base      string
	MaxLength *int
}

var varcharPattern = regexp.MustCompile(`(?i)^varchar\s*\((\d+|MAX)\)$`)

// ParseDatatype splits a CDM datatype such as "varchar(50)" into its base
// type and length. Unrecognised declarations are returned lower-cased.
func ParseDatatype(raw string) Datatype {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Datatype{}
	}

	if m := varcharPattern.FindStringSubmatch(raw); m != nil {
		dt := Datatype{Base: "varchar"}
		if !strings.EqualFold(m[1], "MAX") {
			// \d+ that overflows int is treated as unbounded
			if n, err := strconv.Atoi(m[1]); err == nil {
				dt.MaxLength = &n
			}
		}
		return dt
	}

	return Datatype{Base: strings.ToLower(raw)}
}

// TypeMap holds the mapping from CDM base types to JSON Schema fragments.
type TypeMap struct {
	Mappings map[string]Fragment
}

// Default returns the CDM v5.4 datatype mapping.
func Default() *TypeMap {
	return &TypeMap{Mappings: map[string]Fragment{
		"integer":  {Type: TypeInteger},
		"float":    {Type: TypeNumber},
		"date":     {Type: TypeString, Format: "date"},
		"datetime": {Type: TypeString, Format: "date-time"},
		"varchar":  {Type: TypeString},
	}}
}

// Resolve returns the fragment for a parsed datatype. Unknown and blank
// types map to a plain string.
func (tm *TypeMap) Resolve(dt Datatype) Fragment {
	f, ok := tm.Mappings[dt.Base]
	if !ok {
		f = Fragment{Type: TypeString}
	}
	if dt.Base == "varchar" && dt.MaxLength != nil {
		n := *dt.MaxLength
		f.MaxLength = &n
	}
	return f
}

// Map parses a raw cdmDatatype value and resolves it.
func (tm *TypeMap) Map(raw string) Fragment {
	return tm.Resolve(ParseDatatype(raw))
}
