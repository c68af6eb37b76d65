// Package drug defines the drug-domain Data Transfer Objects, enumerations,
// and request/response structures used across every layer of the MediMatch
// platform.  No domain logic lives here, only plain data types that are safe
// to import from any layer without creating circular dependencies.
package drug

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations
// ─────────────────────────────────────────────────────────────────────────────

// Solubility is the qualitative aqueous-solubility class derived from the
// LogP / LogD / PSA descriptor triple.
type Solubility string

const (
	SolubilityGood     Solubility = "Good"
	SolubilityModerate Solubility = "Moderate"
	SolubilityPoor     Solubility = "Poor"
	SolubilityUnknown  Solubility = "Unknown"
)

// SharedProperty labels what a similar drug has in common with the query
// molecule: the same mechanism of action, the same biological target, or
// structural similarity only.
type SharedProperty string

const (
	SharedMechanism SharedProperty = "mechanism"
	SharedTarget    SharedProperty = "target"
	SharedStructure SharedProperty = "structure"
)

// FingerprintType identifies which fingerprint algorithm was used to generate
// a particular bit-vector for a molecule.
type FingerprintType string

const (
	// FPMorgan is the circular Morgan / ECFP fingerprint (radius 2 by default).
	FPMorgan FingerprintType = "morgan"

	// FPMACCS is the 166-bit MACCS structural keys fingerprint.
	FPMACCS FingerprintType = "maccs"

	// FPTopological is the Daylight-style path fingerprint.
	FPTopological FingerprintType = "topological"
)

// ─────────────────────────────────────────────────────────────────────────────
// DrugDTO
// ─────────────────────────────────────────────────────────────────────────────

// DrugDTO is the canonical drug representation passed between the
// application, interface, and client layers.  Numeric descriptor fields are
// pointers because upstream sources frequently omit them; a nil pointer means
// "not reported" and is distinct from zero.
type DrugDTO struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ChEMBLID string `json:"chembl_id,omitempty"`
	SMILES   string `json:"smiles,omitempty"`
	Formula  string `json:"formula,omitempty"`

	MolecularWeight *float64 `json:"molecular_weight,omitempty"`
	LogP            *float64 `json:"log_p,omitempty"`
	LogD            *float64 `json:"log_d,omitempty"`
	PSA             *float64 `json:"psa,omitempty"`
	DrugLikeness    *float64 `json:"drug_likeness,omitempty"`
	IC50            *float64 `json:"ic50,omitempty"`
	PIC50           *float64 `json:"pic50,omitempty"`
	MaxPhase        *int     `json:"max_phase,omitempty"`

	Solubility        Solubility `json:"solubility,omitempty"`
	Target            string     `json:"target,omitempty"`
	Organism          string     `json:"organism,omitempty"`
	TargetType        string     `json:"target_type,omitempty"`
	MechanismOfAction string     `json:"mechanism_of_action,omitempty"`
	EFOTerm           string     `json:"efo_term,omitempty"`
	MeSHHeading       string     `json:"mesh_heading,omitempty"`
	ToxicityAlert     string     `json:"toxicity_alert,omitempty"`
	Indication        string     `json:"indication,omitempty"`
	Description       string     `json:"description,omitempty"`
	Synonyms          []string   `json:"synonyms,omitempty"`

	// Source names the upstream that contributed the record: "local",
	// "pubchem", "drugcentral", "chembl", or a "+"-joined combination when
	// fields were merged from several sources.
	Source string `json:"source,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────────────────────────────────────

// SearchResponse is the output DTO for drug name/substring search.
type SearchResponse struct {
	Query   string    `json:"query"`
	Results []DrugDTO `json:"results"`

	// Corrected carries the RxNorm-normalized form of the query when it
	// differs from what the caller sent.
	Corrected string `json:"corrected,omitempty"`
}

// NamesResponse lists every drug name known to the local dataset.
type NamesResponse struct {
	Names []string `json:"names"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule rendering
// ─────────────────────────────────────────────────────────────────────────────

// MolBlockRequest asks for a MOL block rendering. Either a SMILES string
// or a drug name (resolved through lookup) must be provided; SMILES wins
// when both are set.
type MolBlockRequest struct {
	SMILES string `json:"smiles,omitempty"`
	Name   string `json:"name,omitempty"`
}

// MolBlockResponse carries the generated V2000 MOL block and the SMILES it
// was rendered from.
type MolBlockResponse struct {
	SMILES   string `json:"smiles"`
	MolBlock string `json:"molblock"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Target prediction
// ─────────────────────────────────────────────────────────────────────────────

// PredictRequest is the input DTO for similarity-based target prediction.
// Query may be a SMILES string or a drug name; the service resolves names to
// structures before fingerprinting.
type PredictRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SimilarDrugDTO describes one nearest neighbour of the query molecule.
type SimilarDrugDTO struct {
	Name              string         `json:"name"`
	Similarity        float64        `json:"similarity"`
	SharedProperty    SharedProperty `json:"shared_property"`
	Justification     string         `json:"justification"`
	Target            string         `json:"target,omitempty"`
	MechanismOfAction string         `json:"mechanism_of_action,omitempty"`
	MaxPhase          *int           `json:"max_phase,omitempty"`
}

// PredictedTargetDTO is one aggregated target hypothesis.  Confidence is the
// maximum Tanimoto similarity among the neighbours that vote for the target.
type PredictedTargetDTO struct {
	Target        string  `json:"target"`
	Organism      string  `json:"organism,omitempty"`
	TargetType    string  `json:"target_type,omitempty"`
	SupportCount  int     `json:"support_count"`
	MaxSimilarity float64 `json:"max_similarity"`
	Confidence    float64 `json:"confidence"`
}

// PredictResponse is the output DTO for target prediction.
type PredictResponse struct {
	Query            string               `json:"query"`
	QuerySMILES      string               `json:"query_smiles"`
	SimilarDrugs     []SimilarDrugDTO     `json:"similar_drugs"`
	PredictedTargets []PredictedTargetDTO `json:"predicted_targets"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Comparison
// ─────────────────────────────────────────────────────────────────────────────

// ComparisonPoint is a single per-property row of a two-drug comparison.
type ComparisonPoint struct {
	Property string `json:"property"`
	Value1   string `json:"value1"`
	Value2   string `json:"value2"`
	Summary  string `json:"summary,omitempty"`
}

// CompareResponse is the output DTO for a two-drug comparison.
type CompareResponse struct {
	Drug1  DrugDTO           `json:"drug1"`
	Drug2  DrugDTO           `json:"drug2"`
	Points []ComparisonPoint `json:"points"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Insights (web RAG)
// ─────────────────────────────────────────────────────────────────────────────

// InsightRequest asks for an evidence-backed clinical summary of a drug.
type InsightRequest struct {
	DrugName string `json:"drug_name"`
}

// SourceRef points at one snippet the synthesis drew on.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Kind  string `json:"kind"` // "web" | "arxiv" | "model"
}

// InsightResponse is the structured clinical summary produced by the
// web-retrieval plus LLM-synthesis pipeline.
type InsightResponse struct {
	DrugName          string      `json:"drug_name"`
	Description       string      `json:"description"`
	Mechanism         string      `json:"mechanism"`
	SideEffects       []string    `json:"side_effects"`
	Interactions      []string    `json:"interactions"`
	Contraindications []string    `json:"contraindications"`
	ClinicalPearls    []string    `json:"clinical_pearls"`
	Sources           []SourceRef `json:"sources,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Assistant
// ─────────────────────────────────────────────────────────────────────────────

// AssistantRequest is the input DTO for the copilot and chatbot endpoints.
type AssistantRequest struct {
	Question string `json:"question"`

	// Humanize selects the conversational prompt style instead of the
	// terse clinical one.  Only honoured by the copilot endpoint.
	Humanize bool `json:"humanize,omitempty"`
}

// AssistantResponse carries the generated answer and the knowledge-graph
// facts that grounded it.
type AssistantResponse struct {
	Answer         string   `json:"answer"`
	ContextTriples []string `json:"context_triples,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Knowledge graph
// ─────────────────────────────────────────────────────────────────────────────

// GraphNode is one vertex of a knowledge-graph neighbourhood.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"` // "drug" | "entity"
}

// GraphEdge is one labelled edge of a knowledge-graph neighbourhood.
type GraphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// GraphResponse is the JSON neighbourhood of a drug in the knowledge graph.
type GraphResponse struct {
	Drug  string      `json:"drug"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
