//go:build integration

package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/domain/prescription"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres"
	appErrors "github.com/medimatch/medimatch/pkg/errors"
)

func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "medimatch",
				"POSTGRES_PASSWORD": "medimatch",
				"POSTGRES_DB":       "medimatch_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:          host,
		Port:          port.Int(),
		User:          "medimatch",
		Password:      "medimatch",
		DBName:        "medimatch_test",
		SSLMode:       "disable",
		MaxConns:      5,
		MigrationPath: "file://../migrations",
	}
}

func f64ptr(v float64) *float64 { return &v }

func TestRepositories(t *testing.T) {
	cfg := startPostgres(t)
	require.NoError(t, postgres.RunMigrations(cfg))

	ctx := context.Background()
	conn, err := postgres.Connect(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	t.Run("drug upsert and lookup", func(t *testing.T) {
		repo := NewDrugRepository(conn.Pool(), nil)

		phase := 4
		aspirin := &drug.Drug{
			Name:              "Aspirin",
			ChEMBLID:          "CHEMBL25",
			SMILES:            "CC(=O)OC1=CC=CC=C1C(=O)O",
			LogP:              f64ptr(1.31),
			MaxPhase:          &phase,
			Target:            "Cyclooxygenase-1",
			MechanismOfAction: "COX inhibitor",
			Synonyms:          []string{"acetylsalicylic acid"},
			Source:            "chembl",
		}
		require.NoError(t, repo.Upsert(ctx, aspirin))
		require.NoError(t, repo.Upsert(ctx, &drug.Drug{Name: "Ibuprofen", SMILES: "CC(C)Cc1ccc(cc1)C(C)C(=O)O"}))

		found, err := repo.FindByName(ctx, "aspirin")
		require.NoError(t, err)
		assert.Equal(t, "Aspirin", found.Name)
		require.NotNil(t, found.LogP)
		assert.InDelta(t, 1.31, *found.LogP, 1e-9)
		require.NotNil(t, found.MaxPhase)
		assert.Equal(t, 4, *found.MaxPhase)

		// Synonym lookup, case-insensitive.
		bySyn, err := repo.FindByName(ctx, "Acetylsalicylic Acid")
		require.NoError(t, err)
		assert.Equal(t, found.ID, bySyn.ID)

		// Upsert on the same name updates instead of duplicating.
		aspirin.Indication = "Pain"
		require.NoError(t, repo.Upsert(ctx, aspirin))
		names, err := repo.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Aspirin", "Ibuprofen"}, names)

		matches, err := repo.SearchByName(ctx, "spir", 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "Aspirin", matches[0].Name)

		bySmiles, err := repo.FindBySMILES(ctx, "CC(=O)OC1=CC=CC=C1C(=O)O")
		require.NoError(t, err)
		assert.Equal(t, "Aspirin", bySmiles.Name)

		_, err = repo.FindByName(ctx, "nosuchdrug")
		require.Error(t, err)
		assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeDrugNotFound))
	})

	t.Run("prescription lifecycle", func(t *testing.T) {
		repo := NewPrescriptionRepository(conn.Pool(), nil)

		p := prescription.New("prescriptions/abc.jpg")
		require.NoError(t, repo.Create(ctx, p))

		p.MarkProcessing()
		require.NoError(t, repo.Update(ctx, p))

		p.Complete("hosted", []prescription.Item{
			{DrugName: "Aspirin", Dosage: "75mg", Confidence: 0.85, DosageValid: true},
		}, "**Aspirin**\n75 mg")
		require.NoError(t, repo.Update(ctx, p))

		stored, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Status, stored.Status)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "Aspirin", stored.Items[0].DrugName)
		assert.InDelta(t, 0.85, stored.OverallConfidence, 1e-9)

		_, err = repo.FindByID(ctx, "missing")
		require.Error(t, err)
		assert.True(t, appErrors.IsCode(err, appErrors.ErrCodePrescriptionNotFound))

		missing := prescription.New("prescriptions/x.jpg")
		missing.ID = fmt.Sprintf("gone-%d", time.Now().UnixNano())
		err = repo.Update(ctx, missing)
		assert.True(t, appErrors.IsCode(err, appErrors.ErrCodePrescriptionNotFound))
	})
}
