// Package drugcentral fetches approved-drug records from the DrugCentral
// public API. DrugCentral is strongest on mechanism of action, regulatory
// status, and safety annotations, so merged lookups prefer it for those
// fields while deferring to PubChem and ChEMBL for structure data.
package drugcentral

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// SourceName identifies this client in merged drug records.
const SourceName = "drugcentral"

// maxJoinedTargets caps how many target names are folded into the
// comma-joined Target field of a merged record.
const maxJoinedTargets = 5

// Client talks to the DrugCentral REST API.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// New constructs a Client. The public DrugCentral endpoint serves a
// certificate chain that some trust stores reject, so insecureSkipVerify
// optionally disables verification for that host only.
func New(cfg config.APIEndpointConfig, insecureSkipVerify bool, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if insecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		log:     log.Named("drugcentral"),
	}
}

// Name returns the source identifier used in merge priority tables.
func (c *Client) Name() string { return SourceName }

type drugRecord struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Approved          bool   `json:"approved"`
	MechanismOfAction string `json:"mechanism_of_action"`
	BlackBoxWarning   string `json:"black_box_warning"`
	Indication        string `json:"indication"`
	Structure         struct {
		SMILES           string   `json:"smiles"`
		ALogP            *float64 `json:"alogp"`
		PolarSurfaceArea *float64 `json:"polar_surface_area"`
	} `json:"structure"`
	Targets []targetRecord `json:"targets"`
}

type targetRecord struct {
	Name        string `json:"name"`
	TargetClass string `json:"target_class"`
}

// FetchDrug looks a drug up by name and maps the record onto the shared
// drug entity. Approved drugs are reported as max phase 4; DrugCentral
// only curates human targets, so the organism is always Homo sapiens.
func (c *Client) FetchDrug(ctx context.Context, name string) (*drug.Drug, error) {
	u := fmt.Sprintf("%s/drug?name=%s", c.baseURL, url.QueryEscape(name))

	rec, err := c.getDrug(ctx, u)
	if err != nil {
		return nil, err
	}

	d := &drug.Drug{
		ID:                fmt.Sprintf("DC%d", rec.ID),
		Name:              rec.Name,
		SMILES:            rec.Structure.SMILES,
		LogP:              rec.Structure.ALogP,
		PSA:               rec.Structure.PolarSurfaceArea,
		MechanismOfAction: rec.MechanismOfAction,
		ToxicityAlert:     rec.BlackBoxWarning,
		Indication:        rec.Indication,
		Organism:          "Homo sapiens",
		Source:            SourceName,
	}
	if rec.Approved {
		phase := 4
		d.MaxPhase = &phase
	}
	d.Target, d.TargetType = joinTargets(rec.Targets)

	c.log.Debug("drugcentral record resolved",
		logging.String("name", name),
		logging.Int64("id", rec.ID),
		logging.Int("targets", len(rec.Targets)),
	)
	return d, nil
}

// getDrug fetches and decodes a record. The endpoint returns either a JSON
// array of matches or a single object depending on the query, so both
// shapes are accepted and the first match wins.
func (c *Client) getDrug(ctx context.Context, u string) (*drugRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "build drugcentral request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "call drugcentral")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.New(errors.ErrCodeSourceNotFound, "drug not found in drugcentral")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeSourceUnavailable, "drugcentral returned status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "decode drugcentral response")
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []drugRecord
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "decode drugcentral list")
		}
		if len(list) == 0 {
			return nil, errors.New(errors.ErrCodeSourceNotFound, "drug not found in drugcentral")
		}
		return &list[0], nil
	}

	var rec drugRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "decode drugcentral record")
	}
	if rec.ID == 0 && rec.Name == "" {
		return nil, errors.New(errors.ErrCodeSourceNotFound, "drug not found in drugcentral")
	}
	return &rec, nil
}

// joinTargets folds the curated target list into a single display string
// plus a deduplicated list of target classes.
func joinTargets(targets []targetRecord) (string, string) {
	if len(targets) == 0 {
		return "", ""
	}

	names := make([]string, 0, maxJoinedTargets)
	for _, t := range targets {
		if t.Name == "" {
			continue
		}
		names = append(names, t.Name)
		if len(names) == maxJoinedTargets {
			break
		}
	}

	seen := make(map[string]struct{})
	classes := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.TargetClass == "" {
			continue
		}
		if _, ok := seen[t.TargetClass]; ok {
			continue
		}
		seen[t.TargetClass] = struct{}{}
		classes = append(classes, t.TargetClass)
	}

	return strings.Join(names, ", "), strings.Join(classes, ", ")
}
