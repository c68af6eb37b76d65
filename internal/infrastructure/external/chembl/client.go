// Package chembl fetches bioactivity-grade drug records from the ChEMBL
// REST API. A lookup is a four-step walk: name search, molecule detail,
// mechanism records, and activity records. ChEMBL is the preferred source
// for computed descriptors (logD, pChEMBL, max phase) in merged lookups.
package chembl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

// SourceName identifies this client in merged drug records.
const SourceName = "chembl"

// activityLimit bounds the activity page; only the first IC50 or Potency
// record is used, so a single page suffices.
const activityLimit = 50

// Client talks to the ChEMBL data API.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// New constructs a Client from the endpoint configuration.
func New(cfg config.APIEndpointConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.Named("chembl"),
	}
}

// Name returns the source identifier used in merge priority tables.
func (c *Client) Name() string { return SourceName }

// flexFloat decodes a JSON value that ChEMBL serves inconsistently as
// either a number or a numeric string ("1.31"). Null and empty strings
// decode to an unset value.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse numeric value %q: %w", s, err)
	}
	f.Value = v
	f.Set = true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

type pageMeta struct {
	TotalCount int `json:"total_count"`
}

type searchResponse struct {
	PageMeta  pageMeta `json:"page_meta"`
	Molecules []struct {
		MoleculeChemblID string `json:"molecule_chembl_id"`
	} `json:"molecules"`
}

type moleculeResponse struct {
	PrefName           string `json:"pref_name"`
	MoleculeStructures struct {
		CanonicalSMILES string `json:"canonical_smiles"`
	} `json:"molecule_structures"`
	MoleculeProperties struct {
		CxLogP      flexFloat `json:"cx_logp"`
		CxLogD      flexFloat `json:"cx_logd"`
		PSA         flexFloat `json:"psa"`
		QEDWeighted flexFloat `json:"qed_weighted"`
	} `json:"molecule_properties"`
	MaxPhase flexFloat `json:"max_phase"`
}

type mechanismResponse struct {
	PageMeta   pageMeta `json:"page_meta"`
	Mechanisms []struct {
		MechanismOfAction string `json:"mechanism_of_action"`
		TargetChemblID    string `json:"target_chembl_id"`
		TargetType        string `json:"target_type"`
		Organism          string `json:"organism"`
	} `json:"mechanisms"`
}

type activityResponse struct {
	Activities []struct {
		StandardType  string    `json:"standard_type"`
		StandardValue flexFloat `json:"standard_value"`
		PchemblValue  flexFloat `json:"pchembl_value"`
	} `json:"activities"`
}

// FetchDrug resolves a drug name through the search endpoint and assembles
// a record from the molecule, mechanism, and activity resources. Mechanism
// and activity fetches are best effort; a failure there degrades the record
// rather than failing the lookup.
func (c *Client) FetchDrug(ctx context.Context, name string) (*drug.Drug, error) {
	var search searchResponse
	u := fmt.Sprintf("%s/molecule/search?q=%s&format=json", c.baseURL, url.QueryEscape(name))
	if err := c.getJSON(ctx, u, &search); err != nil {
		return nil, err
	}
	if search.PageMeta.TotalCount == 0 || len(search.Molecules) == 0 {
		return nil, errors.Newf(errors.ErrCodeSourceNotFound, "no chembl molecule matches %q", name)
	}
	chemblID := search.Molecules[0].MoleculeChemblID

	var mol moleculeResponse
	u = fmt.Sprintf("%s/molecule/%s?format=json", c.baseURL, url.PathEscape(chemblID))
	if err := c.getJSON(ctx, u, &mol); err != nil {
		return nil, err
	}

	d := &drug.Drug{
		ID:           chemblID,
		ChEMBLID:     chemblID,
		Name:         strings.ToUpper(name),
		SMILES:       mol.MoleculeStructures.CanonicalSMILES,
		LogP:         mol.MoleculeProperties.CxLogP.ptr(),
		LogD:         mol.MoleculeProperties.CxLogD.ptr(),
		PSA:          mol.MoleculeProperties.PSA.ptr(),
		DrugLikeness: mol.MoleculeProperties.QEDWeighted.ptr(),
		Source:       SourceName,
	}
	if mol.PrefName != "" {
		d.Synonyms = []string{mol.PrefName}
	}
	if mol.MaxPhase.Set {
		phase := int(mol.MaxPhase.Value)
		d.MaxPhase = &phase
	}

	c.fetchMechanism(ctx, chemblID, d)
	c.fetchActivity(ctx, chemblID, d)

	c.log.Debug("chembl record resolved",
		logging.String("name", name),
		logging.String("chembl_id", chemblID),
	)
	return d, nil
}

// fetchMechanism fills mechanism of action, targets, target types, and
// organisms from the mechanism resource. The first populated mechanism of
// action wins; targets and organisms are comma-joined across records.
func (c *Client) fetchMechanism(ctx context.Context, chemblID string, d *drug.Drug) {
	var mech mechanismResponse
	u := fmt.Sprintf("%s/mechanism?molecule_chembl_id=%s&format=json", c.baseURL, url.QueryEscape(chemblID))
	if err := c.getJSON(ctx, u, &mech); err != nil {
		c.log.Debug("chembl mechanism fetch failed", logging.String("chembl_id", chemblID), logging.Err(err))
		return
	}
	if mech.PageMeta.TotalCount == 0 {
		return
	}

	var targets, targetTypes, organisms []string
	for _, m := range mech.Mechanisms {
		if d.MechanismOfAction == "" && m.MechanismOfAction != "" {
			d.MechanismOfAction = m.MechanismOfAction
		}
		if m.TargetChemblID != "" {
			targets = append(targets, m.TargetChemblID)
		}
		if m.TargetType != "" {
			targetTypes = append(targetTypes, m.TargetType)
		}
		if m.Organism != "" {
			organisms = append(organisms, m.Organism)
		}
	}
	d.Target = strings.Join(targets, ", ")
	d.TargetType = strings.Join(targetTypes, ", ")
	d.Organism = strings.Join(organisms, ", ")
}

// fetchActivity fills IC50 and pChEMBL from the first IC50 or Potency
// activity record.
func (c *Client) fetchActivity(ctx context.Context, chemblID string, d *drug.Drug) {
	var act activityResponse
	u := fmt.Sprintf("%s/activity?molecule_chembl_id=%s&limit=%d&format=json", c.baseURL, url.QueryEscape(chemblID), activityLimit)
	if err := c.getJSON(ctx, u, &act); err != nil {
		c.log.Debug("chembl activity fetch failed", logging.String("chembl_id", chemblID), logging.Err(err))
		return
	}

	for _, a := range act.Activities {
		if a.StandardType != "IC50" && a.StandardType != "Potency" {
			continue
		}
		d.IC50 = a.StandardValue.ptr()
		d.PIC50 = a.PchemblValue.ptr()
		return
	}
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "build chembl request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "call chembl")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.New(errors.ErrCodeSourceNotFound, "chembl resource not found")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeSourceUnavailable, "chembl returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceParseError, "decode chembl response")
	}
	return nil
}
