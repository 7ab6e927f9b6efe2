package vocabulary

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Column headers of the CONCEPT table.
const (
	ColConceptID       = "concept_id"
	ColConceptName     = "concept_name"
	ColDomainID        = "domain_id"
	ColStandardConcept = "standard_concept"
)

var requiredColumns = []string{ColConceptID, ColConceptName, ColDomainID, ColStandardConcept}

// FileSource reads a tab-delimited CONCEPT export such as the Athena
// download.
type FileSource struct {
	Path             string
	ProgressInterval int
	Logger           *slog.Logger
}

func (s *FileSource) String() string { return s.Path }

// Load streams the file into an index. All failures are *LoadError.
func (s *FileSource) Load(ctx context.Context) (*Index, Stats, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, Stats{}, &LoadError{Source: s.Path, Err: err}
	}
	defer f.Close()

	ix, stats, err := ReadTSV(ctx, f, s.Logger, s.ProgressInterval)
	if err != nil {
		return nil, stats, &LoadError{Source: s.Path, Err: err}
	}
	return ix, stats, nil
}

// ReadTSV reads concepts line by line; only the index is retained. Progress
// is logged every interval rows when logger is non-nil.
func ReadTSV(ctx context.Context, r io.Reader, logger *slog.Logger, interval int) (*Index, Stats, error) {
	p := progress{logger: logger, interval: interval}
	lines := &lineReader{r: bufio.NewReaderSize(r, 64*1024)}

	var stats Stats
	line, err := lines.next()
	if errors.Is(err, io.EOF) {
		return NewIndex(), stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("reading header: %w", err)
	}
	header := splitTSVLine(strings.TrimPrefix(line, "\ufeff"), nil)

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, stats, fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	idID, idName, idDomain, idStd := cols[ColConceptID], cols[ColConceptName], cols[ColDomainID], cols[ColStandardConcept]

	ix := NewIndex()
	var rec []string
	for {
		line, err := lines.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("reading line %d: %w", lines.n, err)
		}
		rec = splitTSVLine(line, rec)
		stats.Rows++
		p.tick(stats.Rows)
		if stats.Rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		field := func(i int) string {
			if i < len(rec) {
				return rec[i]
			}
			return ""
		}
		if ix.Add(Concept{
			ID:       field(idID),
			Name:     field(idName),
			Domain:   field(idDomain),
			Standard: field(idStd),
		}) {
			stats.Kept++
		}
	}
	stats.Domains = len(ix.domains)
	return ix, stats, nil
}

// lineReader yields non-blank lines without their line terminator.
type lineReader struct {
	r *bufio.Reader
	n int
}

func (l *lineReader) next() (string, error) {
	for {
		line, err := l.r.ReadString('\n')
		if line == "" && err != nil {
			return "", err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		l.n++
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if line != "" {
			return line, nil
		}
	}
}

// splitTSVLine splits one record on tabs into dst. A field that opens with a
// double quote is quoted: tabs and "" inside it are literal, and anything
// after the closing quote up to the next tab is kept as is. An unclosed quote
// ends at the end of the line, so it cannot swallow the rows after it.
func splitTSVLine(line string, dst []string) []string {
	dst = dst[:0]
	for {
		var field string
		if strings.HasPrefix(line, `"`) {
			field, line = quotedField(line[1:])
		} else if i := strings.IndexByte(line, '\t'); i >= 0 {
			field, line = line[:i], line[i:]
		} else {
			field, line = line, ""
		}
		dst = append(dst, field)
		if line == "" {
			return dst
		}
		line = line[1:]
	}
}

// quotedField reads a quoted field whose opening quote has been consumed.
// The returned rest is empty or starts at the tab ending the field.
func quotedField(s string) (field, rest string) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		tail := s[i+1:]
		if j := strings.IndexByte(tail, '\t'); j >= 0 {
			b.WriteString(tail[:j])
			return b.String(), tail[j:]
		}
		b.WriteString(tail)
		return b.String(), ""
	}
	return b.String(), ""
}
