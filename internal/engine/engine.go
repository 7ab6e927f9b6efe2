package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/cdmschema/cdmschema/internal/config"
	"github.com/cdmschema/cdmschema/internal/fieldmeta"
	"github.com/cdmschema/cdmschema/internal/schema"
	"github.com/cdmschema/cdmschema/internal/typemap"
	"github.com/cdmschema/cdmschema/internal/vocabulary"
)

// ErrFieldMetadataNotFound is returned when the field-level metadata file
// does not exist. Nothing is written in that case.
var ErrFieldMetadataNotFound = errors.New("field metadata file not found")

// Engine runs the metadata -> JSON Schema conversion.
type Engine struct {
	Config   *config.Config
	Logger   *slog.Logger
	TypeMap  *typemap.TypeMap
	Reporter Reporter
}

// Reporter is told about every table as it is written.
type Reporter interface {
	TableWritten(t TableResult)
}

// Options narrow a single conversion run.
type Options struct {
	// Tables restricts output to these table names; empty means all.
	Tables []string
	// DryRun builds every document but writes nothing.
	DryRun bool
}

// TableResult describes one generated schema.
type TableResult struct {
	Table      string
	Path       string
	Fields     int
	Properties int
	Enumerated int
	Duplicates []string
}

// Summary describes a whole conversion run.
type Summary struct {
	OutputDir  string
	Rows       int
	Tables     []TableResult
	Vocabulary *VocabularySummary // nil when running without enumerations
	DryRun     bool
}

// VocabularySummary describes the loaded vocabulary.
type VocabularySummary struct {
	Source       string
	Stats        vocabulary.Stats
	Domains      int
	LargeDomains []string
}

// New creates a new Engine with the given config and logger.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		Config:  cfg,
		Logger:  logger,
		TypeMap: typemap.Default(),
	}
}

// Convert loads the inputs, builds one schema per table in sorted table
// order and writes them to the output directory.
func (e *Engine) Convert(ctx context.Context, opts Options) (*Summary, error) {
	fieldsPath := e.Config.Inputs.FieldMetadata
	if _, err := os.Stat(fieldsPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFieldMetadataNotFound, fieldsPath)
		}
		return nil, fmt.Errorf("checking field metadata: %w", err)
	}

	e.Logger.Info("loading field metadata", "path", fieldsPath)
	rows, err := fieldmeta.Load(fieldsPath)
	if err != nil {
		return nil, err
	}
	groups := fieldmeta.GroupByTable(rows)
	e.Logger.Info("grouped field metadata", "rows", len(rows), "tables", groups.Len())

	tables, err := selectTables(groups, opts.Tables)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		OutputDir: e.Config.Output.Directory,
		Rows:      len(rows),
		DryRun:    opts.DryRun,
	}

	ix, vs, err := e.loadVocabulary(ctx)
	if err != nil {
		return nil, err
	}
	var enums vocabulary.Enumerations
	if ix != nil {
		e.Logger.Info("building oneOf mappings")
		enums = ix.Enumerations()
		vs.Domains = len(enums)
		vs.LargeDomains = enums.Large(e.Config.Vocabulary.LargeDomainThreshold)
		for _, d := range vs.LargeDomains {
			e.Logger.Info("large domain embedded in full", "domain", d, "concepts", len(enums[d]))
		}
		e.Logger.Info("built oneOf constraints", "domains", len(enums))
		summary.Vocabulary = vs
	}

	if !opts.DryRun {
		if err := os.MkdirAll(summary.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	builder := &schema.Builder{TypeMap: e.TypeMap, Enumerations: enums}
	for _, table := range tables {
		grp, _ := groups.Get(table)
		res := builder.Build(table, grp.Rows)
		for _, dup := range res.Duplicates {
			e.Logger.Warn("duplicate field name; later definition replaces the property", "table", table, "field", dup)
		}

		tr := TableResult{
			Table:      table,
			Fields:     res.Fields,
			Properties: res.Document.Properties.Len(),
			Enumerated: countEnumerated(res.Document),
			Duplicates: res.Duplicates,
		}
		if !opts.DryRun {
			tr.Path, err = schema.WriteFile(summary.OutputDir, table, res.Document)
			if err != nil {
				return summary, err
			}
		}
		summary.Tables = append(summary.Tables, tr)
		if e.Reporter != nil {
			e.Reporter.TableWritten(tr)
		}
		e.Logger.Debug("generated schema", "table", table, "fields", tr.Fields, "path", tr.Path)
	}

	e.Logger.Info("generated schema files", "count", len(summary.Tables), "directory", summary.OutputDir, "dry_run", opts.DryRun)
	return summary, nil
}

// LoadVocabulary loads the configured vocabulary. It returns a nil index
// and nil error when the vocabulary is absent or could not be read; the
// reason is logged.
func (e *Engine) LoadVocabulary(ctx context.Context) (*vocabulary.Index, error) {
	ix, _, err := e.loadVocabulary(ctx)
	return ix, err
}

func (e *Engine) loadVocabulary(ctx context.Context) (*vocabulary.Index, *VocabularySummary, error) {
	src := e.vocabularySource()
	if src == nil {
		e.Logger.Info("CONCEPT file not found; schemas will be generated without oneOf constraints", "path", e.Config.Inputs.Vocabulary)
		return nil, nil, nil
	}

	e.Logger.Info("loading CONCEPT vocabulary", "source", src.String())
	ix, stats, err := src.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		var le *vocabulary.LoadError
		if errors.As(err, &le) {
			e.Logger.Warn("failed to load CONCEPT vocabulary; continuing without oneOf generation", "error", err)
			return nil, nil, nil
		}
		return nil, nil, err
	}

	e.Logger.Info("loaded concepts", "rows", stats.Rows, "standard", stats.Kept, "domains", stats.Domains)
	return ix, &VocabularySummary{Source: src.String(), Stats: stats}, nil
}

// vocabularySource picks PostgreSQL when configured, else the CONCEPT file
// if it exists. It returns nil when there is nothing to load.
func (e *Engine) vocabularySource() vocabulary.Source {
	vc := e.Config.Vocabulary
	if vc.Postgres.ConnectionString != "" {
		return &vocabulary.PostgresSource{
			ConnString:       vc.Postgres.ConnectionString,
			Schema:           vc.Postgres.Schema,
			ProgressInterval: vc.ProgressInterval,
			Logger:           e.Logger,
		}
	}

	path := e.Config.Inputs.Vocabulary
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return &vocabulary.FileSource{
		Path:             path,
		ProgressInterval: vc.ProgressInterval,
		Logger:           e.Logger,
	}
}

func selectTables(groups *fieldmeta.Groups, only []string) ([]string, error) {
	var tables []string
	if len(only) == 0 {
		tables = groups.Tables()
	} else {
		seen := make(map[string]bool, len(only))
		for _, t := range only {
			if seen[t] {
				continue
			}
			seen[t] = true
			if _, ok := groups.Get(t); !ok {
				return nil, fmt.Errorf("table %q not found in field metadata", t)
			}
			tables = append(tables, t)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

func countEnumerated(doc *schema.Document) int {
	n := 0
	for _, name := range doc.Properties.Names() {
		if p, _ := doc.Properties.Get(name); len(p.OneOf) > 0 {
			n++
		}
	}
	return n
}
