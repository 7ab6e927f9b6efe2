// Package fieldmeta reads the OMOP CDM field-level metadata CSV and groups
// its rows by table.
package fieldmeta

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column headers of the field-level metadata file.
const (
	ColTableName      = "cdmTableName"
	ColFieldName      = "cdmFieldName"
	ColDatatype       = "cdmDatatype"
	ColIsRequired     = "isRequired"
	ColIsPrimaryKey   = "isPrimaryKey"
	ColIsForeignKey   = "isForeignKey"
	ColFKTableName    = "fkTableName"
	ColFKFieldName    = "fkFieldName"
	ColFKDomain       = "fkDomain"
	ColUserGuidance   = "userGuidance"
	ColETLConventions = "etlConventions"
)

// Row is one field of one CDM table. String values are kept as read; Table
// and Field are trimmed.
type Row struct {
	Table          string
	Field          string
	Datatype       string
	Required       bool
	PrimaryKey     bool
	ForeignKey     bool
	FKTable        string
	FKField        string
	FKDomain       string
	UserGuidance   string
	ETLConventions string
}

// Group is the ordered field rows of one table.
type Group struct {
	Table string
	Rows  []Row
}

// Groups holds table groups in first-seen order.
type Groups struct {
	order  []string
	tables map[string]*Group
}

// Load reads the field-level metadata file at path.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening field metadata: %w", err)
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// Read parses comma-delimited field metadata with a header row. Columns are
// located by header name; absent columns read as empty.
func Read(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := indexHeader(header)

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+2, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		rows = append(rows, Row{
			Table:          strings.TrimSpace(get(ColTableName)),
			Field:          strings.TrimSpace(get(ColFieldName)),
			Datatype:       get(ColDatatype),
			Required:       IsYes(get(ColIsRequired)),
			PrimaryKey:     IsYes(get(ColIsPrimaryKey)),
			ForeignKey:     IsYes(get(ColIsForeignKey)),
			FKTable:        get(ColFKTableName),
			FKField:        get(ColFKFieldName),
			FKDomain:       get(ColFKDomain),
			UserGuidance:   get(ColUserGuidance),
			ETLConventions: get(ColETLConventions),
		})
	}
	return rows, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// IsYes reports whether a flag column is set.
func IsYes(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "YES")
}

// IsNA reports whether a free-text value carries no information: blank, NA
// or NULL in any case.
func IsNA(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "NA") || strings.EqualFold(v, "NULL")
}

// GroupByTable groups rows by table, dropping rows without a table name.
func GroupByTable(rows []Row) *Groups {
	g := &Groups{tables: make(map[string]*Group)}
	for _, row := range rows {
		if row.Table == "" {
			continue
		}
		grp, ok := g.tables[row.Table]
		if !ok {
			grp = &Group{Table: row.Table}
			g.tables[row.Table] = grp
			g.order = append(g.order, row.Table)
		}
		grp.Rows = append(grp.Rows, row)
	}
	return g
}

// Len returns the number of tables.
func (g *Groups) Len() int { return len(g.order) }

// Tables returns table names in first-seen order.
func (g *Groups) Tables() []string {
	return append([]string(nil), g.order...)
}

// Get returns the group for table.
func (g *Groups) Get(table string) (*Group, bool) {
	grp, ok := g.tables[table]
	return grp, ok
}
