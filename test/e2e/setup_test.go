// Package e2e exercises the full HTTP API: real routers, handlers,
// application services, and external-API clients, backed by in-memory
// repositories and stubbed upstream servers.
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/assistant"
	"github.com/medimatch/medimatch/internal/application/comparison"
	"github.com/medimatch/medimatch/internal/application/insight"
	"github.com/medimatch/medimatch/internal/application/prediction"
	"github.com/medimatch/medimatch/internal/application/prescription"
	"github.com/medimatch/medimatch/internal/application/search"
	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/domain/molecule"
	"github.com/medimatch/medimatch/internal/infrastructure/external/pubchem"
	"github.com/medimatch/medimatch/internal/infrastructure/llm/groq"
	"github.com/medimatch/medimatch/internal/infrastructure/vision/gemini"
	"github.com/medimatch/medimatch/internal/testutil"
	httpserver "github.com/medimatch/medimatch/internal/interfaces/http"
	"github.com/medimatch/medimatch/internal/interfaces/http/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	copilotAnswer = "Aspirin relieves pain by inhibiting cyclooxygenase enzymes."

	insightJSON = `{
		"description": "Aspirin is a nonsteroidal anti-inflammatory drug.",
		"mechanism_of_action": "Irreversible cyclooxygenase inhibition.",
		"common_side_effects": ["gastric irritation"],
		"serious_interactions": ["warfarin"],
		"contraindications": ["active bleeding"],
		"clinical_pearls": ["low dose for cardioprotection"]
	}`

	visionOutput = "```json\n{\"medicines\":[{\"drug_name\":\"Aspirin\",\"dosage\":\"500 mg\",\"frequency\":\"twice daily\"},{\"drug_name\":\"Metforminn\",\"dosage\":\"850 mg\",\"frequency\":\"once daily\"}],\"confidence_score\":0.91}\n```"
)

// stack is one fully wired API instance plus handles to its fakes.
type stack struct {
	srv      *httptest.Server
	drugRepo *testutil.DrugRepo
	rxRepo   *testutil.PrescriptionRepo
	store    *testutil.ObjectStore
}

func (s *stack) url(path string) string {
	return s.srv.URL + path
}

// stubGroq answers chat completions. JSON-mode requests get the insight
// document; plain requests get the copilot answer.
func stubGroq(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		content := copilotAnswer
		if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
			content = insightJSON
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// stubPubChem resolves the single compound "Caffeine" and 404s everything
// else, mimicking the PUG REST record layout.
func stubPubChem(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/compound/name/Caffeine/"):
			_, _ = w.Write([]byte(`{
				"PC_Compounds": [{
					"id": {"id": {"cid": 2519}},
					"props": [
						{"urn": {"label": "SMILES", "name": "Canonical"}, "value": {"sval": "CN1C=NC2=C1C(=O)N(C)C(=O)N2C"}},
						{"urn": {"label": "Molecular Formula", "name": ""}, "value": {"sval": "C8H10N4O2"}},
						{"urn": {"label": "Molecular Weight", "name": ""}, "value": {"fval": 194.19}}
					]
				}]
			}`))
		case strings.Contains(r.URL.Path, "/compound/cid/2519/property/"):
			_, _ = w.Write([]byte(`{"PropertyTable": {"Properties": [{"XLogP": -0.07, "TPSA": 58.4}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"Fault": {"Code": "PUGREST.NotFound"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// stubGemini returns a fixed vision extraction for any analyze call.
func stubGemini(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": visionOutput}}}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newStack wires the complete service graph against in-memory repositories
// and the stub upstreams, then serves it over httptest.
func newStack(t *testing.T) *stack {
	t.Helper()

	drugRepo := testutil.NewDrugRepo(testutil.SampleDrugs()...)
	tripleRepo := testutil.NewTripleRepo(testutil.SampleTriples()...)
	rxRepo := testutil.NewPrescriptionRepo()
	store := testutil.NewObjectStore()

	pubchemClient := pubchem.New(config.APIEndpointConfig{
		BaseURL: stubPubChem(t).URL,
		Timeout: 5 * time.Second,
	}, nil)
	groqClient := groq.New(config.LLMConfig{
		GroqBaseURL: stubGroq(t).URL,
		GroqAPIKey:  "test-key",
		GroqModel:   "test-model",
		GroqTimeout: 5 * time.Second,
	}, nil)
	geminiClient := gemini.New(config.LLMConfig{
		GeminiBaseURL: stubGemini(t).URL,
		GeminiAPIKey:  "test-key",
		GeminiModel:   "test-vision",
		GeminiTimeout: 5 * time.Second,
	}, nil)

	searchSvc := search.NewService(drugRepo, nil, search.Sources{
		PubChem: pubchemClient,
	}, nil, time.Minute, nil)

	ranker := molecule.NewRanker(2, 2048, 64, nil)
	predictSvc := prediction.NewService(drugRepo, searchSvc, nil, ranker, 5, nil)
	compareSvc := comparison.NewService(searchSvc, nil)
	insightSvc := insight.NewService(nil, nil, groqClient, nil)
	assistantSvc := assistant.NewService(tripleRepo, groqClient, nil)
	rxSvc := prescription.NewService(rxRepo, store, nil, geminiClient, nil, drugRepo, nil)

	router := httpserver.NewRouter(httpserver.Handlers{
		Health:       handlers.NewHealthHandler("e2e", nil, nil),
		Drug:         handlers.NewDrugHandler(searchSvc, compareSvc, nil),
		Molecule:     handlers.NewMoleculeHandler(searchSvc, nil),
		Prediction:   handlers.NewPredictionHandler(predictSvc, nil),
		Insight:      handlers.NewInsightHandler(insightSvc, nil),
		Assistant:    handlers.NewAssistantHandler(assistantSvc, nil),
		Prescription: handlers.NewPrescriptionHandler(rxSvc, nil),
	}, httpserver.RouterConfig{})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &stack{srv: srv, drugRepo: drugRepo, rxRepo: rxRepo, store: store}
}

// getJSON issues a GET and decodes the body into dest, returning the status.
func getJSON(t *testing.T, url string, dest any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// decodeBody decodes an already-received response body into dest.
func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// postJSON issues a POST with a JSON body and decodes the response.
func postJSON(t *testing.T, url string, body any, dest any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
