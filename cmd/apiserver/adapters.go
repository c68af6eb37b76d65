package main

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/internal/infrastructure/search/milvus"
	"github.com/medimatch/medimatch/internal/infrastructure/search/opensearch"
)

// searchBackedRepo is a drug.Repository whose SearchByName is served from the
// OpenSearch index instead of a SQL LIKE scan. Hits are hydrated back through
// the underlying repository so callers always see canonical rows. Any index
// failure falls back to the plain repository search, keeping the endpoint up
// while the cluster is down.
type searchBackedRepo struct {
	drug.Repository
	searcher *opensearch.DrugSearcher
	log      logging.Logger
}

func newSearchBackedRepo(repo drug.Repository, searcher *opensearch.DrugSearcher, log logging.Logger) drug.Repository {
	if searcher == nil {
		return repo
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &searchBackedRepo{Repository: repo, searcher: searcher, log: log}
}

func (r *searchBackedRepo) SearchByName(ctx context.Context, query string, limit int) ([]*drug.Drug, error) {
	hits, err := r.searcher.SearchByName(ctx, query, limit)
	if err != nil {
		r.log.Warn("index search failed, falling back to repository",
			logging.String("query", query), logging.Err(err))
		return r.Repository.SearchByName(ctx, query, limit)
	}
	if len(hits) == 0 {
		return r.Repository.SearchByName(ctx, query, limit)
	}

	drugs := make([]*drug.Drug, 0, len(hits))
	for _, hit := range hits {
		d, err := r.Repository.FindByName(ctx, hit.Name)
		if err != nil {
			// The index can lag behind the table after a delete; skip
			// hits that no longer hydrate.
			r.log.Debug("stale index hit", logging.String("name", hit.Name))
			continue
		}
		drugs = append(drugs, d)
	}
	return drugs, nil
}

// syncSearchIndexes pushes the full drug dataset into OpenSearch and Milvus.
// It runs once at startup in the background: the dataset is a small curated
// reference set, so a full resync is cheaper than incremental bookkeeping.
// Either target may be nil when its cluster is not configured.
func syncSearchIndexes(ctx context.Context, repo drug.Repository, indexer *opensearch.DrugIndexer, fingerprints *milvus.FingerprintIndex, log logging.Logger) error {
	drugs, err := repo.List(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if indexer != nil {
		g.Go(func() error {
			if err := indexer.EnsureIndex(ctx); err != nil {
				return err
			}
			n, err := indexer.BulkIndex(ctx, drugs)
			if err != nil {
				return err
			}
			log.Info("drug name index synced", logging.Int("indexed", n))
			return nil
		})
	}

	if fingerprints != nil {
		g.Go(func() error {
			if err := fingerprints.EnsureCollection(ctx); err != nil {
				return err
			}
			n, err := fingerprints.IndexDrugs(ctx, drugs)
			if err != nil {
				return err
			}
			log.Info("fingerprint index synced", logging.Int("indexed", n))
			return nil
		})
	}

	return g.Wait()
}
