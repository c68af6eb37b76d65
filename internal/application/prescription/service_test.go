package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainrx "github.com/medimatch/medimatch/internal/domain/prescription"
	"github.com/medimatch/medimatch/pkg/errors"
	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

// memRepo is an in-memory prescription store. The pipeline creates, re-reads,
// and updates the same aggregate, which a canned mock cannot express.
type memRepo struct {
	byID map[string]*domainrx.Prescription
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*domainrx.Prescription{}}
}

func (r *memRepo) Create(_ context.Context, p *domainrx.Prescription) error {
	r.byID[p.ID] = p
	return nil
}

func (r *memRepo) Update(_ context.Context, p *domainrx.Prescription) error {
	r.byID[p.ID] = p
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domainrx.Prescription, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePrescriptionNotFound, "prescription %s not found", id)
	}
	return p, nil
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

type MockOCR struct {
	mock.Mock
}

func (m *MockOCR) Configured() bool { return m.Called().Bool(0) }

func (m *MockOCR) Extract(ctx context.Context, imageBase64 string) (string, error) {
	args := m.Called(ctx, imageBase64)
	return args.String(0), args.Error(1)
}

type MockVision struct {
	mock.Mock
}

func (m *MockVision) Configured() bool { return m.Called().Bool(0) }

func (m *MockVision) AnalyzeImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error) {
	args := m.Called(ctx, prompt, imageBase64, mimeType)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOCRRequested(ctx context.Context, prescriptionID string) error {
	return m.Called(ctx, prescriptionID).Error(0)
}

type MockNames struct {
	mock.Mock
}

func (m *MockNames) Names(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

const hostedText = `**Aspirin**
75 mg
once daily
for 30 days`

func TestUpload_HostedEngine(t *testing.T) {
	repo := newMemRepo()
	store := new(MockStore)
	ocr := new(MockOCR)
	names := new(MockNames)

	store.On("Upload", mock.Anything, mock.Anything, []byte("img"), "image/png").Return(nil)
	store.On("Get", mock.Anything, mock.Anything).Return([]byte("img"), nil)
	ocr.On("Configured").Return(true)
	ocr.On("Extract", mock.Anything, mock.Anything).Return(hostedText, nil)
	names.On("Names", mock.Anything).Return([]string{"Aspirin", "Warfarin"}, nil)

	svc := NewService(repo, store, ocr, nil, nil, names, nil)
	dto, err := svc.Upload(context.Background(), UploadRequest{Image: []byte("img"), ContentType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, rxtypes.StatusCompleted, dto.Status)
	assert.Equal(t, rxtypes.EngineHosted, dto.Engine)
	assert.InDelta(t, 0.85, dto.OverallConfidence, 1e-9)
	require.Len(t, dto.Items, 1)

	item := dto.Items[0]
	assert.Equal(t, "Aspirin", item.DrugName)
	assert.True(t, item.DosageValid)
	assert.Equal(t, "75mg", item.Dosage)
	assert.True(t, item.FrequencyValid)
	assert.Equal(t, "once daily", item.Frequency)
	assert.Empty(t, item.Suggestions)

	store.AssertExpectations(t)
	ocr.AssertExpectations(t)
}

func TestUpload_FallsBackToGemini(t *testing.T) {
	repo := newMemRepo()
	store := new(MockStore)
	ocr := new(MockOCR)
	vision := new(MockVision)
	names := new(MockNames)

	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Get", mock.Anything, mock.Anything).Return([]byte("img"), nil)
	ocr.On("Configured").Return(true)
	ocr.On("Extract", mock.Anything, mock.Anything).
		Return("", errors.New(errors.ErrCodeOCRExtractionFailed, "endpoint down"))
	vision.On("Configured").Return(true)
	vision.On("AnalyzeImage", mock.Anything, mock.Anything, mock.Anything, "image/jpeg").
		Return(`{"medicines":[{"drug_name":"Metformin","dosage":"500 mg","frequency":"BD"}],"confidence_score":0.9}`, nil)
	names.On("Names", mock.Anything).Return([]string{"Metformin"}, nil)

	svc := NewService(repo, store, ocr, vision, nil, names, nil)
	dto, err := svc.Upload(context.Background(), UploadRequest{Image: []byte("img")})
	require.NoError(t, err)

	assert.Equal(t, rxtypes.EngineGemini, dto.Engine)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "Metformin", dto.Items[0].DrugName)
	assert.Equal(t, "500mg", dto.Items[0].Dosage)
	assert.Equal(t, "Twice Daily", dto.Items[0].Frequency)
	assert.InDelta(t, 0.9, dto.OverallConfidence, 1e-9)
}

func TestUpload_Async(t *testing.T) {
	repo := newMemRepo()
	store := new(MockStore)
	publisher := new(MockPublisher)

	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishOCRRequested", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	svc := NewService(repo, store, nil, nil, publisher, nil, nil)
	dto, err := svc.Upload(context.Background(), UploadRequest{Image: []byte("img"), Async: true})
	require.NoError(t, err)

	assert.Equal(t, rxtypes.StatusPending, dto.Status)
	assert.Empty(t, dto.Items)
	publisher.AssertExpectations(t)
}

func TestUpload_EmptyImage(t *testing.T) {
	svc := NewService(newMemRepo(), new(MockStore), nil, nil, nil, nil, nil)
	_, err := svc.Upload(context.Background(), UploadRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePrescriptionFileInvalid))
}

func TestProcess_SuggestionsForUnknownDrug(t *testing.T) {
	repo := newMemRepo()
	store := new(MockStore)
	ocr := new(MockOCR)
	names := new(MockNames)

	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Get", mock.Anything, mock.Anything).Return([]byte("img"), nil)
	ocr.On("Configured").Return(true)
	ocr.On("Extract", mock.Anything, mock.Anything).Return("**Asprin**\n75 mg", nil)
	names.On("Names", mock.Anything).Return([]string{"Aspirin", "Ibuprofen"}, nil)

	svc := NewService(repo, store, ocr, nil, nil, names, nil)
	dto, err := svc.Upload(context.Background(), UploadRequest{Image: []byte("img")})
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	require.NotEmpty(t, dto.Items[0].Suggestions)
	assert.Equal(t, "Aspirin", dto.Items[0].Suggestions[0])
}

func TestProcess_NoEngineConfigured(t *testing.T) {
	repo := newMemRepo()
	store := new(MockStore)
	ocr := new(MockOCR)

	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Get", mock.Anything, mock.Anything).Return([]byte("img"), nil)
	ocr.On("Configured").Return(false)

	svc := NewService(repo, store, ocr, nil, nil, nil, nil)
	dto, err := svc.Upload(context.Background(), UploadRequest{Image: []byte("img")})
	require.Error(t, err)
	assert.Nil(t, dto)
	assert.True(t, errors.IsCode(err, errors.ErrCodeOCRExtractionFailed))

	// The failure is persisted.
	var stored *domainrx.Prescription
	for _, p := range repo.byID {
		stored = p
	}
	require.NotNil(t, stored)
	assert.Equal(t, rxtypes.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestProcess_UnknownID(t *testing.T) {
	svc := NewService(newMemRepo(), new(MockStore), nil, nil, nil, nil, nil)
	_, err := svc.Process(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGet_PresignedURL(t *testing.T) {
	repo := newMemRepo()
	store := new(MockStore)

	p := domainrx.New("prescriptions/abc.jpg")
	require.NoError(t, repo.Create(context.Background(), p))
	store.On("PresignedURL", mock.Anything, "prescriptions/abc.jpg", presignedURLExpiry).
		Return("https://minio.local/prescriptions/abc.jpg?sig=x", nil)

	svc := NewService(repo, store, nil, nil, nil, nil, nil)
	dto, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, p.ID, dto.ID)
	assert.Equal(t, "https://minio.local/prescriptions/abc.jpg?sig=x", dto.ImageURL)
}

func TestCheckInteractionsOperation(t *testing.T) {
	svc := NewService(newMemRepo(), new(MockStore), nil, nil, nil, nil, nil)
	resp, err := svc.CheckInteractions(context.Background(), rxtypes.InteractionRequest{
		Drugs: []string{"aspirin", "ibuprofen"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "Increased GI bleeding risk", resp.Warnings[0].Description)
}
