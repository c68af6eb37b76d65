//go:build integration

package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres/repositories"
	"github.com/medimatch/medimatch/internal/testutil"
	"github.com/medimatch/medimatch/pkg/errors"
)

func TestDrugRepository_RoundTrip(t *testing.T) {
	ctx := testCtx(t)
	repo := repositories.NewDrugRepository(postgresConn(t).Pool(), nil)

	for _, d := range testutil.SampleDrugs() {
		require.NoError(t, repo.Upsert(ctx, d))
	}

	got, err := repo.FindByName(ctx, "aspirin")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", got.Name)
	assert.Equal(t, "CC(=O)Oc1ccccc1C(=O)O", got.SMILES)
	require.NotNil(t, got.MolecularWeight)
	assert.InDelta(t, 180.16, *got.MolecularWeight, 0.001)
	require.NotNil(t, got.MaxPhase)
	assert.Equal(t, 4, *got.MaxPhase)
	assert.Equal(t, []string{"Acetylsalicylic acid", "ASA"}, got.Synonyms)
}

func TestDrugRepository_FindBySynonym(t *testing.T) {
	ctx := testCtx(t)
	repo := repositories.NewDrugRepository(postgresConn(t).Pool(), nil)
	require.NoError(t, repo.Upsert(ctx, testutil.SampleDrugs()[3]))

	got, err := repo.FindByName(ctx, "acetaminophen")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", got.Name)
}

func TestDrugRepository_SearchByName(t *testing.T) {
	ctx := testCtx(t)
	repo := repositories.NewDrugRepository(postgresConn(t).Pool(), nil)
	for _, d := range testutil.SampleDrugs() {
		require.NoError(t, repo.Upsert(ctx, d))
	}

	hits, err := repo.SearchByName(ctx, "PROFEN", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Ibuprofen", hits[0].Name)

	none, err := repo.SearchByName(ctx, "zzz-no-match", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDrugRepository_UpsertUpdatesExistingRow(t *testing.T) {
	ctx := testCtx(t)
	repo := repositories.NewDrugRepository(postgresConn(t).Pool(), nil)

	d := &drug.Drug{Name: "Lisinopril", SMILES: "CCCC", Source: "local"}
	require.NoError(t, repo.Upsert(ctx, d))

	// Same name, different case: must update in place, not duplicate.
	update := &drug.Drug{Name: "lisinopril", SMILES: "CCCC", Target: "ACE", Source: "chembl"}
	require.NoError(t, repo.Upsert(ctx, update))

	got, err := repo.FindByName(ctx, "Lisinopril")
	require.NoError(t, err)
	assert.Equal(t, "ACE", got.Target)
	assert.Equal(t, "chembl", got.Source)

	hits, err := repo.SearchByName(ctx, "lisinopril", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestDrugRepository_NotFoundCode(t *testing.T) {
	ctx := testCtx(t)
	repo := repositories.NewDrugRepository(postgresConn(t).Pool(), nil)

	_, err := repo.FindByName(ctx, "definitely-not-a-drug")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrugNotFound))
}

func TestDrugRepository_NamesSorted(t *testing.T) {
	ctx := testCtx(t)
	repo := repositories.NewDrugRepository(postgresConn(t).Pool(), nil)
	for _, d := range testutil.SampleDrugs() {
		require.NoError(t, repo.Upsert(ctx, d))
	}

	names, err := repo.Names(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(names), 4)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "Metformin")
}
