// Package vocabulary indexes standard OMOP concepts by domain and turns
// them into JSON Schema enumerations.
package vocabulary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// NoMatchingConceptID is the sentinel concept valid in every domain.
	NoMatchingConceptID int64 = 0
	// NoMatchingConceptName is used when a domain lacks concept 0.
	NoMatchingConceptName = "No matching concept"

	standardMarker = "S"
)

// Concept is one raw row of the CONCEPT table.
type Concept struct {
	ID       string
	Name     string
	Domain   string
	Standard string
}

// Index maps domain -> concept id -> concept name.
type Index struct {
	domains map[string]map[int64]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{domains: make(map[string]map[int64]string)}
}

// Add indexes c if it is a standard concept or the no-match sentinel.
// Rows with a missing id, name or domain, or a non-integer id, are skipped.
// It reports whether the row was kept.
func (ix *Index) Add(c Concept) bool {
	id := strings.TrimSpace(c.ID)
	name := strings.TrimSpace(c.Name)
	domain := strings.TrimSpace(c.Domain)

	if strings.TrimSpace(c.Standard) != standardMarker && id != "0" {
		return false
	}
	if id == "" || name == "" || domain == "" {
		return false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false
	}

	concepts, ok := ix.domains[domain]
	if !ok {
		concepts = make(map[int64]string)
		ix.domains[strings.Clone(domain)] = concepts
	}
	// clone so the retained name does not pin the whole input line
	concepts[n] = strings.Clone(name)
	return true
}

// Domains returns the indexed domain ids in sorted order.
func (ix *Index) Domains() []string {
	out := make([]string, 0, len(ix.domains))
	for d := range ix.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of concepts in domain.
func (ix *Index) Len(domain string) int {
	return len(ix.domains[domain])
}

// Lookup returns the name of concept id in domain.
func (ix *Index) Lookup(domain string, id int64) (string, bool) {
	name, ok := ix.domains[domain][id]
	return name, ok
}

// Equal reports whether two indexes hold the same concepts.
func (ix *Index) Equal(other *Index) bool {
	if len(ix.domains) != len(other.domains) {
		return false
	}
	for d, concepts := range ix.domains {
		oc, ok := other.domains[d]
		if !ok || len(oc) != len(concepts) {
			return false
		}
		for id, name := range concepts {
			if oc[id] != name {
				return false
			}
		}
	}
	return true
}

// Choice is one entry of a oneOf enumeration.
type Choice struct {
	Const int64  `json:"const"`
	Title string `json:"title"`
}

// Enumerations maps domain -> choices ordered by ascending concept id.
type Enumerations map[string][]Choice

// Enumerations builds the oneOf array for every domain. Concept 0 is always
// present; the index itself is not modified.
func (ix *Index) Enumerations() Enumerations {
	out := make(Enumerations, len(ix.domains))
	for domain, concepts := range ix.domains {
		ids := make([]int64, 0, len(concepts)+1)
		for id := range concepts {
			ids = append(ids, id)
		}
		if _, ok := concepts[NoMatchingConceptID]; !ok {
			ids = append(ids, NoMatchingConceptID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		choices := make([]Choice, len(ids))
		for i, id := range ids {
			name, ok := concepts[id]
			if !ok {
				name = NoMatchingConceptName
			}
			choices[i] = Choice{Const: id, Title: fmt.Sprintf("%d - %s", id, name)}
		}
		out[domain] = choices
	}
	return out
}

// Large returns the domains with more than threshold choices, sorted.
func (e Enumerations) Large(threshold int) []string {
	var out []string
	for domain, choices := range e {
		if len(choices) > threshold {
			out = append(out, domain)
		}
	}
	sort.Strings(out)
	return out
}
