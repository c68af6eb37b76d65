package opensearch

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/pkg/errors"
)

func testDrug(name, smiles string) *drug.Drug {
	return &drug.Drug{
		Name:              name,
		SMILES:            smiles,
		Indication:        "Pain",
		MechanismOfAction: "COX inhibition",
	}
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(404, ""),
		jsonResponse(200, `{"acknowledged":true,"shards_acknowledged":true,"index":"medimatch_drugs"}`),
	}}
	indexer := NewDrugIndexer(newTestClient(t, transport), nil)

	require.NoError(t, indexer.EnsureIndex(context.Background()))
	require.Len(t, transport.requests, 2)
	assert.Equal(t, "HEAD", transport.requests[0].Method)
	assert.Equal(t, "/medimatch_drugs", transport.requests[0].Path)
	assert.Equal(t, "PUT", transport.requests[1].Method)
	assert.Contains(t, transport.requests[1].Body, "drug_name")
	assert.Contains(t, transport.requests[1].Body, `"keyword": {"type": "keyword"}`)
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(200, ""),
	}}
	indexer := NewDrugIndexer(newTestClient(t, transport), nil)

	require.NoError(t, indexer.EnsureIndex(context.Background()))
	assert.Len(t, transport.requests, 1)
}

func TestIndexDrug(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(201, `{"_index":"medimatch_drugs","_id":"aspirin","result":"created","_version":1,"_shards":{"total":2,"successful":1,"failed":0},"_seq_no":0,"_primary_term":1}`),
	}}
	indexer := NewDrugIndexer(newTestClient(t, transport), nil)

	require.NoError(t, indexer.IndexDrug(context.Background(), testDrug("Aspirin", "CC(=O)Oc1ccccc1C(=O)O")))
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "/medimatch_drugs/_doc/aspirin", transport.requests[0].Path)
	assert.Contains(t, transport.requests[0].Body, `"name":"Aspirin"`)
	assert.Contains(t, transport.requests[0].Body, `"mechanism":"COX inhibition"`)
}

func TestIndexDrug_Validation(t *testing.T) {
	indexer := NewDrugIndexer(newTestClient(t, &scriptedTransport{}), nil)

	err := indexer.IndexDrug(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	err = indexer.IndexDrug(context.Background(), &drug.Drug{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestBulkIndex_Batches(t *testing.T) {
	bulkOK := `{"took":3,"errors":false,"items":[{"index":{"_id":"a","status":201}},{"index":{"_id":"b","status":201}}]}`
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(200, bulkOK),
		jsonResponse(200, `{"took":1,"errors":false,"items":[{"index":{"_id":"c","status":201}}]}`),
	}}
	indexer := NewDrugIndexer(newTestClient(t, transport), nil)

	// BulkBatchSize is 2 in the test config, so three drugs mean two requests.
	n, err := indexer.BulkIndex(context.Background(), []*drug.Drug{
		testDrug("Aspirin", "CC(=O)Oc1ccccc1C(=O)O"),
		testDrug("Ibuprofen", "CC(C)Cc1ccc(cc1)C(C)C(=O)O"),
		testDrug("Metformin", "CN(C)C(=N)NC(=N)N"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, transport.requests, 2)
	assert.Contains(t, transport.requests[0].Body, `"_id":"aspirin"`)
	assert.Contains(t, transport.requests[1].Body, `"_id":"metformin"`)
}

func TestBulkIndex_CountsFailures(t *testing.T) {
	bulkPartial := `{"took":3,"errors":true,"items":[{"index":{"_id":"a","status":201}},{"index":{"_id":"b","status":400}}]}`
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(200, bulkPartial),
	}}
	indexer := NewDrugIndexer(newTestClient(t, transport), nil)

	n, err := indexer.BulkIndex(context.Background(), []*drug.Drug{
		testDrug("Aspirin", ""),
		testDrug("Ibuprofen", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBulkIndex_SkipsNameless(t *testing.T) {
	indexer := NewDrugIndexer(newTestClient(t, &scriptedTransport{}), nil)

	n, err := indexer.BulkIndex(context.Background(), []*drug.Drug{nil, {}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteDrug(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(200, `{"_index":"medimatch_drugs","_id":"aspirin","result":"deleted","_version":2,"_shards":{"total":2,"successful":1,"failed":0},"_seq_no":1,"_primary_term":1}`),
	}}
	indexer := NewDrugIndexer(newTestClient(t, transport), nil)

	require.NoError(t, indexer.DeleteDrug(context.Background(), "Aspirin"))
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "DELETE", transport.requests[0].Method)
	assert.Equal(t, "/medimatch_drugs/_doc/aspirin", transport.requests[0].Path)
}
