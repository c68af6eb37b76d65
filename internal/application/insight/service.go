// Package insight produces evidence-backed clinical drug summaries: web
// search snippets and arXiv abstracts are gathered for the drug, then an
// LLM synthesizes them into a structured JSON answer. When retrieval comes
// back empty, the model answers from its internal clinical knowledge and
// the response is marked with a model source.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medimatch/medimatch/internal/infrastructure/external/arxiv"
	"github.com/medimatch/medimatch/internal/infrastructure/external/serper"
	"github.com/medimatch/medimatch/internal/infrastructure/llm/groq"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// searchResultCount bounds both the web and the scholarly retrieval.
const searchResultCount = 5

// searchQueryTemplate mirrors the curated clinical-site query used for drug
// grounding.
const searchQueryTemplate = "%s mechanism of action dosage side effects interactions contraindications scientific review site:nih.gov OR site:mayoclinic.org OR site:drugs.com"

// WebSearcher retrieves web snippets. The serper client satisfies this.
type WebSearcher interface {
	Search(ctx context.Context, query string, num int) ([]serper.Result, error)
}

// PaperSearcher retrieves scholarly abstracts. The arxiv client satisfies
// this.
type PaperSearcher interface {
	Search(ctx context.Context, term string, maxResults int) ([]arxiv.Article, error)
}

// Completer generates text from a conversation. The groq client satisfies
// this.
type Completer interface {
	Complete(ctx context.Context, messages []groq.Message, opts groq.Options) (string, error)
}

// Service produces structured clinical summaries.
type Service interface {
	Insight(ctx context.Context, req *drugtypes.InsightRequest) (*drugtypes.InsightResponse, error)
}

type serviceImpl struct {
	web    WebSearcher
	papers PaperSearcher
	llm    Completer
	logger logging.Logger
}

// NewService creates the insight service. web and papers may be nil; the
// summary then relies on the model's internal knowledge.
func NewService(web WebSearcher, papers PaperSearcher, llm Completer, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		web:    web,
		papers: papers,
		llm:    llm,
		logger: logger.Named("insight"),
	}
}

// synthesized mirrors the JSON shape the prompt asks the model for.
type synthesized struct {
	Description       string   `json:"description"`
	MechanismOfAction string   `json:"mechanism_of_action"`
	CommonSideEffects []string `json:"common_side_effects"`
	SeriousInteractions []string `json:"serious_interactions"`
	Contraindications []string `json:"contraindications"`
	ClinicalPearls    []string `json:"clinical_pearls"`
}

func (s *serviceImpl) Insight(ctx context.Context, req *drugtypes.InsightRequest) (*drugtypes.InsightResponse, error) {
	drugName := strings.TrimSpace(req.DrugName)
	if drugName == "" {
		return nil, errors.New(errors.ErrCodeDrugNameInvalid, "drug name is empty")
	}

	snippets, sources := s.retrieve(ctx, drugName)

	answer, err := s.llm.Complete(ctx, []groq.Message{
		{Role: "system", Content: "You are an expert clinical pharmacist. Respond with a single JSON object."},
		{Role: "user", Content: buildPrompt(drugName, snippets)},
	}, groq.Options{Temperature: 0.1, JSONMode: true})
	if err != nil {
		return nil, err
	}

	var parsed synthesized
	if err := json.Unmarshal([]byte(answer), &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLLMResponseInvalid, "insight synthesis is not valid JSON")
	}

	if len(sources) == 0 {
		sources = []drugtypes.SourceRef{{Title: "Model internal knowledge", Kind: "model"}}
	}

	resp := &drugtypes.InsightResponse{
		DrugName:          drugName,
		Description:       parsed.Description,
		Mechanism:         parsed.MechanismOfAction,
		SideEffects:       parsed.CommonSideEffects,
		Interactions:      parsed.SeriousInteractions,
		Contraindications: parsed.Contraindications,
		ClinicalPearls:    parsed.ClinicalPearls,
		Sources:           sources,
	}
	s.logger.Info("drug insight done",
		logging.String("drug", drugName),
		logging.Int("sources", len(sources)),
	)
	return resp, nil
}

// retrieve gathers web and scholarly evidence. Both retrievals are best
// effort; a failure just shrinks the context.
func (s *serviceImpl) retrieve(ctx context.Context, drugName string) ([]string, []drugtypes.SourceRef) {
	var snippets []string
	var sources []drugtypes.SourceRef

	if s.web != nil {
		query := fmt.Sprintf(searchQueryTemplate, drugName)
		results, err := s.web.Search(ctx, query, searchResultCount)
		if err != nil {
			s.logger.Warn("web retrieval failed", logging.String("drug", drugName), logging.Err(err))
		}
		for _, r := range results {
			if r.Snippet == "" || r.Link == "" {
				continue
			}
			snippets = append(snippets, fmt.Sprintf("Source: %s (%s)\nContent: %s", r.Title, r.Link, r.Snippet))
			sources = append(sources, drugtypes.SourceRef{Title: r.Title, URL: r.Link, Kind: "web"})
		}
	}

	if s.papers != nil {
		articles, err := s.papers.Search(ctx, drugName, searchResultCount)
		if err != nil {
			s.logger.Warn("scholarly retrieval failed", logging.String("drug", drugName), logging.Err(err))
		}
		for _, a := range articles {
			snippets = append(snippets, fmt.Sprintf("Source: %s (%s)\nContent: %s", a.Title, a.Link, a.Summary))
			sources = append(sources, drugtypes.SourceRef{Title: a.Title, URL: a.Link, Kind: "arxiv"})
		}
	}

	return snippets, sources
}

func buildPrompt(drugName string, snippets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the drug %s for a clinical audience.\n\n", drugName)

	if len(snippets) == 0 {
		b.WriteString("Web search unavailable. Answer from internal clinical knowledge.\n\n")
	} else {
		b.WriteString("Use the following evidence:\n\n")
		for i, sn := range snippets {
			fmt.Fprintf(&b, "%d. %s\n\n", i+1, sn)
		}
	}

	b.WriteString(`Return a JSON object with exactly these fields:
{
  "description": string,
  "mechanism_of_action": string,
  "common_side_effects": [string],
  "serious_interactions": [string],
  "contraindications": [string],
  "clinical_pearls": [string]
}`)
	return b.String()
}
