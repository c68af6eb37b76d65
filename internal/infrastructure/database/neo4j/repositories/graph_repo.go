// Package repositories contains Neo4j-backed repository implementations.
package repositories

import (
	"context"
	"strings"

	neo4jdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/medimatch/medimatch/internal/domain/kg"
	"github.com/medimatch/medimatch/internal/infrastructure/database/neo4j"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

const (
	defaultTripleLimit = 50
	maxTripleLimit     = 500
)

// GraphRepository implements kg.Repository on top of Neo4j.
type GraphRepository struct {
	driver neo4j.DriverInterface
	log    logging.Logger
}

// NewGraphRepository creates a GraphRepository.
func NewGraphRepository(driver neo4j.DriverInterface, log logging.Logger) *GraphRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &GraphRepository{driver: driver, log: log.Named("graph-repo")}
}

var _ kg.Repository = (*GraphRepository)(nil)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultTripleLimit
	}
	if limit > maxTripleLimit {
		return maxTripleLimit
	}
	return limit
}

func tripleFromRecord(record *neo4jdriver.Record) (kg.Triple, error) {
	if len(record.Values) < 3 {
		return kg.Triple{}, errors.New(errors.ErrCodeDatabaseError, "malformed triple record")
	}
	head, _ := record.Values[0].(string)
	relation, _ := record.Values[1].(string)
	tail, _ := record.Values[2].(string)
	return kg.Triple{Head: head, Relation: relation, Tail: tail}, nil
}

// FindByHead returns triples whose head node matches name case-insensitively.
func (r *GraphRepository) FindByHead(ctx context.Context, head string, limit int) ([]kg.Triple, error) {
	head = strings.TrimSpace(head)
	if head == "" {
		return nil, errors.New(errors.ErrCodeValidation, "head must not be empty")
	}

	cypher := `MATCH (h:Drug)-[rel]->(t)
		WHERE toLower(h.name) = toLower($head)
		RETURN h.name AS head, type(rel) AS relation, t.name AS tail
		LIMIT $limit`

	result, err := r.driver.ExecuteRead(ctx, func(tx neo4j.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"head":  head,
			"limit": clampLimit(limit),
		})
		if err != nil {
			return nil, err
		}
		return neo4j.CollectRecords(ctx, res, tripleFromRecord)
	})
	if err != nil {
		return nil, err
	}
	return result.([]kg.Triple), nil
}

// SearchTerm returns triples mentioning term in either the head or tail node.
func (r *GraphRepository) SearchTerm(ctx context.Context, term string, limit int) ([]kg.Triple, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New(errors.ErrCodeValidation, "term must not be empty")
	}

	cypher := `MATCH (h:Drug)-[rel]->(t)
		WHERE toLower(h.name) CONTAINS toLower($term)
		   OR toLower(t.name) CONTAINS toLower($term)
		RETURN h.name AS head, type(rel) AS relation, t.name AS tail
		LIMIT $limit`

	result, err := r.driver.ExecuteRead(ctx, func(tx neo4j.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"term":  term,
			"limit": clampLimit(limit),
		})
		if err != nil {
			return nil, err
		}
		return neo4j.CollectRecords(ctx, res, tripleFromRecord)
	})
	if err != nil {
		return nil, err
	}
	return result.([]kg.Triple), nil
}

// DrugNames returns the distinct head-node names in the graph.
func (r *GraphRepository) DrugNames(ctx context.Context) ([]string, error) {
	cypher := `MATCH (h:Drug) RETURN DISTINCT h.name AS name ORDER BY name`

	result, err := r.driver.ExecuteRead(ctx, func(tx neo4j.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}
		return neo4j.CollectRecords(ctx, res, func(record *neo4jdriver.Record) (string, error) {
			name, _ := record.Values[0].(string)
			return name, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// UpsertTriples merges triples into the graph. Relation types are sanitized
// because Cypher cannot parameterize relationship types.
func (r *GraphRepository) UpsertTriples(ctx context.Context, triples []kg.Triple) (int, error) {
	if len(triples) == 0 {
		return 0, nil
	}

	upserted := 0
	_, err := r.driver.ExecuteWrite(ctx, func(tx neo4j.Transaction) (any, error) {
		for _, t := range triples {
			if t.Head == "" || t.Relation == "" || t.Tail == "" {
				r.log.Warn("skipping incomplete triple",
					logging.String("head", t.Head),
					logging.String("relation", t.Relation))
				continue
			}
			cypher := `MERGE (h:Drug {name: $head})
				MERGE (t:Entity {name: $tail})
				MERGE (h)-[:` + sanitizeRelation(t.Relation) + `]->(t)`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"head": t.Head,
				"tail": t.Tail,
			}); err != nil {
				return nil, err
			}
			upserted++
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Info("upserted knowledge-graph triples", logging.Int("count", upserted))
	return upserted, nil
}

// EnsureConstraints creates the uniqueness constraints the repository relies on.
func (r *GraphRepository) EnsureConstraints(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT drug_name_unique IF NOT EXISTS FOR (d:Drug) REQUIRE d.name IS UNIQUE`,
		`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
	}
	_, err := r.driver.ExecuteWrite(ctx, func(tx neo4j.Transaction) (any, error) {
		for _, stmt := range statements {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// sanitizeRelation normalizes a free-text relation into a Cypher-safe
// relationship type, e.g. "may treat" -> "MAY_TREAT".
func sanitizeRelation(relation string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(relation)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "RELATED_TO"
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "REL_" + out
	}
	return out
}
