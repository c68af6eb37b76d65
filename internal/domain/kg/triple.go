// Package kg contains the knowledge-graph fact model backing the copilot's
// context retrieval and the graph neighbourhood endpoint.
package kg

import (
	"context"
	"fmt"
	"strings"
)

// Triple is one (head, relation, tail) fact, e.g.
// ("Aspirin", "treats", "Pain").
type Triple struct {
	Head     string
	Relation string
	Tail     string
}

// Sentence renders the triple as a plain-language fact for LLM prompts.
func (t Triple) Sentence() string {
	relation := strings.ReplaceAll(t.Relation, "_", " ")
	return fmt.Sprintf("%s %s %s.", t.Head, relation, t.Tail)
}

// Mentions reports whether the term appears in the head or tail,
// case-insensitively.
func (t Triple) Mentions(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(t.Head), term) ||
		strings.Contains(strings.ToLower(t.Tail), term)
}

// Repository is the query contract for the knowledge graph.  The Neo4j
// implementation lives in the infrastructure layer.
type Repository interface {
	// FindByHead returns every triple whose head matches the drug name,
	// case-insensitively, up to limit.
	FindByHead(ctx context.Context, head string, limit int) ([]Triple, error)

	// SearchTerm returns triples mentioning the term in head or tail.
	SearchTerm(ctx context.Context, term string, limit int) ([]Triple, error)

	// DrugNames returns the distinct head entities present in the graph.
	DrugNames(ctx context.Context) ([]string, error)
}
