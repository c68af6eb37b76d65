// Package pubchem implements the PubChem PUG REST client.  PubChem is the
// preferred source for chemical structure: SMILES, formula, weight, and the
// XLogP / TPSA descriptors.
package pubchem

import (
	"context"
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
const SourceName = "pubchem"

// Client queries the PubChem PUG REST API.
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
		log:     log.Named("pubchem"),
	}
}

// Name returns the source identifier used in merge priority tables.
func (c *Client) Name() string { return SourceName }

// compoundResponse mirrors the PC_Compounds record layout.  Property values
// arrive as a tagged union; sval carries strings and fval floats.
type compoundResponse struct {
	PCCompounds []struct {
		ID struct {
			ID struct {
				CID int64 `json:"cid"`
			} `json:"id"`
		} `json:"id"`
		Props []struct {
			URN struct {
				Label string `json:"label"`
				Name  string `json:"name"`
			} `json:"urn"`
			Value struct {
				SVal string  `json:"sval"`
				FVal float64 `json:"fval"`
			} `json:"value"`
		} `json:"props"`
	} `json:"PC_Compounds"`
}

type propertyTableResponse struct {
	PropertyTable struct {
		Properties []struct {
			XLogP *float64 `json:"XLogP"`
			TPSA  *float64 `json:"TPSA"`
		} `json:"Properties"`
	} `json:"PropertyTable"`
}

// FetchDrug looks the compound up by name and returns a partially-populated
// drug record (structure and physicochemical descriptors; no pharmacology).
func (c *Client) FetchDrug(ctx context.Context, name string) (*drug.Drug, error) {
	u := fmt.Sprintf("%s/compound/name/%s/JSON", c.baseURL, url.PathEscape(name))
	var compound compoundResponse
	if err := c.getJSON(ctx, u, &compound); err != nil {
		return nil, err
	}
	if len(compound.PCCompounds) == 0 {
		return nil, errors.New(errors.ErrCodeSourceNotFound, "pubchem: compound not found")
	}

	rec := compound.PCCompounds[0]
	d := &drug.Drug{
		Name:   strings.ToUpper(name),
		Source: SourceName,
	}
	if cid := rec.ID.ID.CID; cid != 0 {
		d.ID = fmt.Sprintf("CID%d", cid)
	}

	for _, p := range rec.Props {
		switch p.URN.Label {
		case "SMILES":
			if d.SMILES == "" {
				d.SMILES = p.Value.SVal
			}
		case "IUPAC Name":
			if p.URN.Name == "Preferred" || len(d.Synonyms) == 0 {
				d.Synonyms = []string{p.Value.SVal}
			}
		case "Molecular Formula":
			d.Formula = p.Value.SVal
		case "Molecular Weight":
			if p.Value.FVal != 0 {
				mw := p.Value.FVal
				d.MolecularWeight = &mw
			}
		}
	}

	// XLogP and TPSA come from the property endpoint; a failure here only
	// costs the two descriptors.
	if rec.ID.ID.CID != 0 {
		c.fetchProperties(ctx, rec.ID.ID.CID, d)
	}

	c.log.Debug("pubchem compound resolved",
		logging.String("name", name),
		logging.String("id", d.ID))
	return d, nil
}

func (c *Client) fetchProperties(ctx context.Context, cid int64, d *drug.Drug) {
	u := fmt.Sprintf("%s/compound/cid/%d/property/XLogP,TPSA/JSON", c.baseURL, cid)
	var table propertyTableResponse
	if err := c.getJSON(ctx, u, &table); err != nil {
		c.log.Debug("pubchem property endpoint failed", logging.Err(err))
		return
	}
	if props := table.PropertyTable.Properties; len(props) > 0 {
		d.LogP = props[0].XLogP
		d.PSA = props[0].TPSA
	}
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "pubchem: building request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "pubchem: request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodeSourceNotFound, "pubchem: compound not found")
	case resp.StatusCode != http.StatusOK:
		return errors.Newf(errors.ErrCodeSourceUnavailable, "pubchem: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceParseError, "pubchem: decoding response")
	}
	return nil
}
