package vocabulary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads the CONCEPT table of an OMOP vocabulary schema.
type PostgresSource struct {
	ConnString       string
	Schema           string
	ProgressInterval int
	Logger           *slog.Logger
}

func (s *PostgresSource) String() string {
	return "postgres:" + s.schema() + ".concept"
}

func (s *PostgresSource) schema() string {
	if s.Schema == "" {
		return "public"
	}
	return s.Schema
}

// conceptQuery selects the four columns the index needs. Filtering stays in
// Index.Add so file and database sources behave identically.
func (s *PostgresSource) conceptQuery() string {
	return fmt.Sprintf(
		"SELECT concept_id::text, COALESCE(concept_name, ''), COALESCE(domain_id, ''), COALESCE(standard_concept, '') FROM %s.concept WHERE standard_concept = 'S' OR concept_id = 0",
		quoteIdentPg(s.schema()),
	)
}

// Load queries the concept table. All failures are *LoadError.
func (s *PostgresSource) Load(ctx context.Context) (*Index, Stats, error) {
	ix, stats, err := s.load(ctx)
	if err != nil {
		return nil, stats, &LoadError{Source: s.String(), Err: err}
	}
	return ix, stats, nil
}

func (s *PostgresSource) load(ctx context.Context) (*Index, Stats, error) {
	var stats Stats

	cfg, err := pgxpool.ParseConfig(s.ConnString)
	if err != nil {
		return nil, stats, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, stats, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return nil, stats, fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	rows, err := pool.Query(ctx, s.conceptQuery())
	if err != nil {
		return nil, stats, fmt.Errorf("querying concepts: %w", err)
	}
	defer rows.Close()

	p := progress{logger: s.Logger, interval: s.ProgressInterval}
	ix := NewIndex()
	var c Concept
	for rows.Next() {
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.Standard); err != nil {
			return nil, stats, fmt.Errorf("scanning concept: %w", err)
		}
		stats.Rows++
		p.tick(stats.Rows)
		if ix.Add(c) {
			stats.Kept++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, stats, fmt.Errorf("iterating concepts: %w", err)
	}
	stats.Domains = len(ix.domains)
	return ix, stats, nil
}

func quoteIdentPg(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
