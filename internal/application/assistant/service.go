// Package assistant powers the copilot and chatbot endpoints: knowledge
// graph facts relevant to the question are retrieved as context, then a
// chat completion generates the answer. The copilot supports a humanized
// conversational style and a terse clinical one; the chatbot always answers
// in two or three sentences.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/medimatch/medimatch/internal/domain/kg"
	"github.com/medimatch/medimatch/internal/infrastructure/llm/groq"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// contextTripleLimit bounds how many knowledge-graph facts are folded into
// a prompt.
const contextTripleLimit = 5

// defaultGraphNodeLimit bounds the neighbourhood returned for
// visualization.
const defaultGraphNodeLimit = 15

// Completer generates text from a conversation. The groq client satisfies
// this.
type Completer interface {
	Complete(ctx context.Context, messages []groq.Message, opts groq.Options) (string, error)
}

// Service answers free-text questions grounded in the knowledge graph.
type Service interface {
	// Copilot answers with the configurable conversational style.
	Copilot(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error)

	// Chatbot answers briefly (two to three sentences).
	Chatbot(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error)

	// Graph returns the knowledge-graph neighbourhood of one drug.
	Graph(ctx context.Context, drugName string, maxNodes int) (*drugtypes.GraphResponse, error)
}

type serviceImpl struct {
	triples kg.Repository
	llm     Completer
	logger  logging.Logger
}

// NewService creates the assistant service. triples may be nil; answers
// then rely purely on the model.
func NewService(triples kg.Repository, llm Completer, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		triples: triples,
		llm:     llm,
		logger:  logger.Named("assistant"),
	}
}

func (s *serviceImpl) Copilot(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.New(errors.CodeInvalidParam, "question is empty")
	}

	contextTriples := s.retrieveContext(ctx, question)
	contextStr := "No specific context available."
	if len(contextTriples) > 0 {
		contextStr = strings.Join(contextTriples, "\n")
	}

	var prompt string
	var opts groq.Options
	if req.Humanize {
		prompt = fmt.Sprintf(`You are MediMatch AI Copilot, a friendly and knowledgeable medical assistant.
Be conversational, use plain language, structure longer answers with bullet points,
and always mention when something requires professional medical advice.
Keep responses concise (2-4 paragraphs).

Knowledge Graph Context (use if relevant):
%s

User's Question: %s

Provide a helpful, friendly response:`, contextStr, question)
		opts = groq.Options{Temperature: 0.5, MaxTokens: 600}
	} else {
		prompt = fmt.Sprintf(`You are an expert biomedical assistant. Answer the following question accurately and helpfully.

Context from Knowledge Graph:
%s

Question: %s

Provide a clear, informative response:`, contextStr, question)
		opts = groq.Options{Temperature: 0.3, MaxTokens: 600}
	}

	answer, err := s.llm.Complete(ctx, []groq.Message{{Role: "user", Content: prompt}}, opts)
	if err != nil {
		return nil, err
	}

	s.logger.Info("copilot answer generated",
		logging.Bool("humanize", req.Humanize),
		logging.Int("context_triples", len(contextTriples)),
	)
	return &drugtypes.AssistantResponse{
		Answer:         answer,
		ContextTriples: contextTriples,
	}, nil
}

func (s *serviceImpl) Chatbot(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.New(errors.CodeInvalidParam, "question is empty")
	}

	contextTriples := s.retrieveContext(ctx, question)

	var b strings.Builder
	b.WriteString("You are an expert biomedical assistant. Provide a SHORT, CONCISE answer (2-3 sentences maximum).")
	if len(contextTriples) > 0 {
		b.WriteString("\n\nContext from Knowledge Graph:\n")
		b.WriteString(strings.Join(contextTriples, "\n"))
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nProvide a brief, accurate answer:", question)

	answer, err := s.llm.Complete(ctx, []groq.Message{{Role: "user", Content: b.String()}},
		groq.Options{Temperature: 0.3, MaxTokens: 150})
	if err != nil {
		return nil, err
	}
	return &drugtypes.AssistantResponse{
		Answer:         answer,
		ContextTriples: contextTriples,
	}, nil
}

// retrieveContext finds up to contextTripleLimit knowledge-graph facts
// mentioning terms from the question. Retrieval is best effort.
func (s *serviceImpl) retrieveContext(ctx context.Context, question string) []string {
	if s.triples == nil {
		return nil
	}
	found, err := s.triples.SearchTerm(ctx, question, contextTripleLimit)
	if err != nil {
		s.logger.Debug("knowledge-graph retrieval failed", logging.Err(err))
		return nil
	}
	sentences := make([]string, 0, len(found))
	for _, t := range found {
		sentences = append(sentences, t.Sentence())
	}
	return sentences
}

func (s *serviceImpl) Graph(ctx context.Context, drugName string, maxNodes int) (*drugtypes.GraphResponse, error) {
	drugName = strings.TrimSpace(drugName)
	if drugName == "" {
		return nil, errors.New(errors.ErrCodeDrugNameInvalid, "drug name is empty")
	}
	if s.triples == nil {
		return nil, errors.New(errors.ErrCodeKGQueryFailed, "knowledge graph is not configured")
	}
	if maxNodes <= 0 {
		maxNodes = defaultGraphNodeLimit
	}

	found, err := s.triples.FindByHead(ctx, drugName, maxNodes)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.Newf(errors.ErrCodeKGDrugUnknown, "drug %q is not in the knowledge graph", drugName)
	}

	resp := &drugtypes.GraphResponse{Drug: drugName}
	seen := make(map[string]struct{})
	addNode := func(id, kind string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		resp.Nodes = append(resp.Nodes, drugtypes.GraphNode{ID: id, Label: id, Kind: kind})
	}

	for _, t := range found {
		addNode(t.Head, "drug")
		addNode(t.Tail, "entity")
		resp.Edges = append(resp.Edges, drugtypes.GraphEdge{
			From:     t.Head,
			To:       t.Tail,
			Relation: t.Relation,
		})
	}
	return resp, nil
}
