package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrMissingColumn is returned when the vocabulary header lacks a required
// column.
var ErrMissingColumn = errors.New("missing required column")

// LoadError wraps any failure to load a vocabulary. Callers treat it as
// recoverable and continue without enumerations.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading vocabulary from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source produces a concept index.
type Source interface {
	Load(ctx context.Context) (*Index, Stats, error)
	String() string
}

// Stats summarises a vocabulary load.
type Stats struct {
	Rows    int
	Kept    int
	Domains int
}

// progress logs every interval rows; interval <= 0 disables it.
type progress struct {
	logger   *slog.Logger
	interval int
}

func (p progress) tick(rows int) {
	if p.logger == nil || p.interval <= 0 || rows%p.interval != 0 {
		return
	}
	p.logger.Info("loading concepts", "rows", rows)
}
