package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

const drugIndexSuffix = "drugs"

var (
	ErrIndexCreationFailed = errors.New(errors.ErrCodeInternal, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeInternal, "document index failed")
)

// drugIndexMapping tunes the name field for both exact keyword matches and
// typo-tolerant full-text queries.
const drugIndexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1,
    "analysis": {
      "analyzer": {
        "drug_name": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "name":      {"type": "text", "analyzer": "drug_name", "fields": {"keyword": {"type": "keyword"}}},
      "synonyms":  {"type": "text", "analyzer": "drug_name"},
      "indication":{"type": "text"},
      "mechanism": {"type": "text"},
      "target":    {"type": "text"},
      "smiles":    {"type": "keyword"}
    }
  }
}`

// drugDocument is the indexed projection of a drug record.
type drugDocument struct {
	Name       string   `json:"name"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Indication string   `json:"indication,omitempty"`
	Mechanism  string   `json:"mechanism,omitempty"`
	Target     string   `json:"target,omitempty"`
	SMILES     string   `json:"smiles,omitempty"`
}

// DrugIndexer manages the drug index lifecycle and document ingestion.
type DrugIndexer struct {
	client    *Client
	index     string
	batchSize int
	log       logging.Logger
}

// NewDrugIndexer creates a DrugIndexer over the client's configured prefix.
func NewDrugIndexer(client *Client, log logging.Logger) *DrugIndexer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	batch := client.cfg.BulkBatchSize
	if batch <= 0 {
		batch = defaultBulkBatchSize
	}
	return &DrugIndexer{
		client:    client,
		index:     client.cfg.IndexPrefix + drugIndexSuffix,
		batchSize: batch,
		log:       log.Named("drug-indexer"),
	}
}

// Index returns the fully qualified index name.
func (i *DrugIndexer) Index() string { return i.index }

// EnsureIndex creates the drug index if it does not exist.
func (i *DrugIndexer) EnsureIndex(ctx context.Context) error {
	exists, err := i.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	resp, err := i.client.api.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: i.index,
		Body:  strings.NewReader(drugIndexMapping),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create drug index")
	}
	if !resp.Acknowledged {
		return ErrIndexCreationFailed
	}

	i.log.Info("drug index created", logging.String("index", i.index))
	return nil
}

func (i *DrugIndexer) indexExists(ctx context.Context) (bool, error) {
	resp, err := i.client.api.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{
		Indices: []string{i.index},
	})
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if resp != nil {
		switch resp.StatusCode {
		case 200:
			return true, nil
		case 404:
			return false, nil
		}
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternal, "failed to check drug index existence")
	}
	return false, errors.New(errors.ErrCodeInternal, "unexpected index existence response")
}

// IndexDrug indexes a single drug, keyed by its lowercased name.
func (i *DrugIndexer) IndexDrug(ctx context.Context, d *drug.Drug) error {
	if d == nil || d.Name == "" {
		return errors.New(errors.ErrCodeValidation, "drug with a name is required")
	}

	body, err := json.Marshal(toDocument(d))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal drug document")
	}

	_, err = i.client.api.Index(ctx, opensearchapi.IndexReq{
		Index:      i.index,
		DocumentID: docID(d.Name),
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to index drug document")
	}
	return nil
}

// BulkIndex ingests drugs in batches and returns the number of documents
// accepted by the cluster.
func (i *DrugIndexer) BulkIndex(ctx context.Context, drugs []*drug.Drug) (int, error) {
	if len(drugs) == 0 {
		return 0, nil
	}

	indexed := 0
	for start := 0; start < len(drugs); start += i.batchSize {
		end := start + i.batchSize
		if end > len(drugs) {
			end = len(drugs)
		}

		var buf bytes.Buffer
		batched := 0
		for _, d := range drugs[start:end] {
			if d == nil || d.Name == "" {
				continue
			}
			meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, i.index, docID(d.Name))
			doc, err := json.Marshal(toDocument(d))
			if err != nil {
				i.log.Warn("skipping unmarshalable drug", logging.String("drug", d.Name), logging.Err(err))
				continue
			}
			buf.WriteString(meta)
			buf.WriteByte('\n')
			buf.Write(doc)
			buf.WriteByte('\n')
			batched++
		}
		if batched == 0 {
			continue
		}

		resp, err := i.client.api.Bulk(ctx, opensearchapi.BulkReq{Body: &buf})
		if err != nil {
			return indexed, errors.Wrap(err, errors.ErrCodeInternal, "bulk index request failed")
		}

		failed := 0
		if resp.Errors {
			for _, item := range resp.Items {
				for _, action := range item {
					if action.Status >= 300 {
						failed++
					}
				}
			}
		}
		indexed += batched - failed
		if failed > 0 {
			i.log.Warn("bulk batch had failures",
				logging.Int("failed", failed),
				logging.Int("batch", batched))
		}
	}

	i.log.Info("bulk indexed drugs", logging.Int("indexed", indexed), logging.String("index", i.index))
	return indexed, nil
}

// DeleteDrug removes a drug document by name.
func (i *DrugIndexer) DeleteDrug(ctx context.Context, name string) error {
	if name == "" {
		return errors.New(errors.ErrCodeValidation, "drug name is required")
	}
	_, err := i.client.api.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      i.index,
		DocumentID: docID(name),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete drug document")
	}
	return nil
}

func toDocument(d *drug.Drug) drugDocument {
	return drugDocument{
		Name:       d.Name,
		Synonyms:   d.Synonyms,
		Indication: d.Indication,
		Mechanism:  d.MechanismOfAction,
		Target:     d.Target,
		SMILES:     d.SMILES,
	}
}

func docID(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
