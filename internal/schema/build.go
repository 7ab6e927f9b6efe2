package schema

import (
	"strings"
	"unicode"

	"github.com/cdmschema/cdmschema/internal/fieldmeta"
	"github.com/cdmschema/cdmschema/internal/typemap"
	"github.com/cdmschema/cdmschema/internal/vocabulary"
)

const (
	guidanceLabel    = "User Guidance: "
	conventionsLabel = "ETL Conventions: "

	conceptTable = "CONCEPT"
)

// Builder turns the field rows of a table into a Document.
type Builder struct {
	TypeMap *typemap.TypeMap
	// Enumerations may be nil when no vocabulary was loaded.
	Enumerations vocabulary.Enumerations
}

// Result is a built document plus what the build noticed along the way.
type Result struct {
	Document *Document
	// Fields is the number of input rows for the table, skipped ones included.
	Fields int
	// Duplicates lists field names seen more than once, in order of repeat.
	Duplicates []string
}

// Build converts rows into the schema of table. Rows are processed in order;
// a repeated field name replaces the earlier property but still counts again
// in required, x-primaryKey and x-foreignKeys.
func (b *Builder) Build(table string, rows []fieldmeta.Row) *Result {
	tm := b.TypeMap
	if tm == nil {
		tm = typemap.Default()
	}

	doc := &Document{
		Schema: DraftURI,
		Title:  Title(table),
		Type:   "object",
	}
	res := &Result{Document: doc, Fields: len(rows)}

	for _, row := range rows {
		name := strings.TrimSpace(row.Field)
		if name == "" {
			continue
		}

		prop := Property{
			Fragment:    tm.Map(row.Datatype),
			Description: Description(row.UserGuidance, row.ETLConventions),
		}

		if fk, ok := foreignKey(name, row); ok {
			if fk.Domain != "" && strings.EqualFold(fk.Table, conceptTable) {
				if choices, ok := b.Enumerations[fk.Domain]; ok {
					prop.OneOf = choices
				}
			}
			doc.ForeignKeys = append(doc.ForeignKeys, fk)
		}

		if doc.Properties.Set(name, prop) {
			res.Duplicates = append(res.Duplicates, name)
		}
		if row.Required {
			doc.Required = append(doc.Required, name)
		}
		if row.PrimaryKey {
			doc.PrimaryKey = append(doc.PrimaryKey, name)
		}
	}

	return res
}

func foreignKey(field string, row fieldmeta.Row) (ForeignKey, bool) {
	if !row.ForeignKey {
		return ForeignKey{}, false
	}
	table := strings.TrimSpace(row.FKTable)
	if fieldmeta.IsNA(table) {
		return ForeignKey{}, false
	}
	fk := ForeignKey{
		Field:        field,
		Table:        table,
		FieldInTable: strings.TrimSpace(row.FKField),
	}
	if !fieldmeta.IsNA(row.FKDomain) {
		fk.Domain = strings.TrimSpace(row.FKDomain)
	}
	return fk, true
}

// Description joins user guidance and ETL conventions into one labelled
// text. It returns "" when neither carries a value.
func Description(guidance, conventions string) string {
	var parts []string
	if !fieldmeta.IsNA(guidance) {
		parts = append(parts, guidanceLabel+strings.TrimSpace(guidance))
	}
	if !fieldmeta.IsNA(conventions) {
		parts = append(parts, conventionsLabel+strings.TrimSpace(conventions))
	}
	return strings.Join(parts, "\n\n")
}

// Title turns a table name into a document title: underscores become spaces
// and every run of letters is capitalised, e.g. CONDITION_OCCURRENCE ->
// "Condition Occurrence".
func Title(table string) string {
	var sb strings.Builder
	sb.Grow(len(table))
	prevCased := false
	for _, r := range strings.ReplaceAll(table, "_", " ") {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && !prevCased:
			sb.WriteRune(unicode.ToTitle(r))
		case cased:
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prevCased = cased
	}
	return sb.String()
}
