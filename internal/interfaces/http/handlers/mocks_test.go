package handlers

import (
	"context"

	"github.com/medimatch/medimatch/internal/application/prescription"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

// Func-field mocks for the application services. Unset funcs panic, which
// surfaces unexpected calls immediately in tests.

type mockSearchService struct {
	searchFn   func(ctx context.Context, query string, limit int) (*drugtypes.SearchResponse, error)
	namesFn    func(ctx context.Context) ([]string, error)
	lookupFn   func(ctx context.Context, name string) (*drugtypes.DrugDTO, error)
	molBlockFn func(ctx context.Context, req *drugtypes.MolBlockRequest) (*drugtypes.MolBlockResponse, error)
}

func (m *mockSearchService) Search(ctx context.Context, query string, limit int) (*drugtypes.SearchResponse, error) {
	return m.searchFn(ctx, query, limit)
}

func (m *mockSearchService) Names(ctx context.Context) ([]string, error) {
	return m.namesFn(ctx)
}

func (m *mockSearchService) Lookup(ctx context.Context, name string) (*drugtypes.DrugDTO, error) {
	return m.lookupFn(ctx, name)
}

func (m *mockSearchService) MolBlock(ctx context.Context, req *drugtypes.MolBlockRequest) (*drugtypes.MolBlockResponse, error) {
	return m.molBlockFn(ctx, req)
}

type mockComparisonService struct {
	compareFn func(ctx context.Context, name1, name2 string) (*drugtypes.CompareResponse, error)
}

func (m *mockComparisonService) Compare(ctx context.Context, name1, name2 string) (*drugtypes.CompareResponse, error) {
	return m.compareFn(ctx, name1, name2)
}

type mockPredictionService struct {
	predictFn func(ctx context.Context, req *drugtypes.PredictRequest) (*drugtypes.PredictResponse, error)
}

func (m *mockPredictionService) Predict(ctx context.Context, req *drugtypes.PredictRequest) (*drugtypes.PredictResponse, error) {
	return m.predictFn(ctx, req)
}

type mockInsightService struct {
	insightFn func(ctx context.Context, req *drugtypes.InsightRequest) (*drugtypes.InsightResponse, error)
}

func (m *mockInsightService) Insight(ctx context.Context, req *drugtypes.InsightRequest) (*drugtypes.InsightResponse, error) {
	return m.insightFn(ctx, req)
}

type mockAssistantService struct {
	copilotFn func(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error)
	chatbotFn func(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error)
	graphFn   func(ctx context.Context, drugName string, maxNodes int) (*drugtypes.GraphResponse, error)
}

func (m *mockAssistantService) Copilot(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error) {
	return m.copilotFn(ctx, req)
}

func (m *mockAssistantService) Chatbot(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error) {
	return m.chatbotFn(ctx, req)
}

func (m *mockAssistantService) Graph(ctx context.Context, drugName string, maxNodes int) (*drugtypes.GraphResponse, error) {
	return m.graphFn(ctx, drugName, maxNodes)
}

type mockPrescriptionService struct {
	uploadFn       func(ctx context.Context, req prescription.UploadRequest) (*rxtypes.PrescriptionDTO, error)
	processFn      func(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error)
	getFn          func(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error)
	interactionsFn func(ctx context.Context, req rxtypes.InteractionRequest) (*rxtypes.InteractionResponse, error)
}

func (m *mockPrescriptionService) Upload(ctx context.Context, req prescription.UploadRequest) (*rxtypes.PrescriptionDTO, error) {
	return m.uploadFn(ctx, req)
}

func (m *mockPrescriptionService) Process(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error) {
	return m.processFn(ctx, id)
}

func (m *mockPrescriptionService) Get(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error) {
	return m.getFn(ctx, id)
}

func (m *mockPrescriptionService) CheckInteractions(ctx context.Context, req rxtypes.InteractionRequest) (*rxtypes.InteractionResponse, error) {
	return m.interactionsFn(ctx, req)
}
