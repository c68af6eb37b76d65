package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

// PrescriptionsClient covers prescription OCR and interaction checks.
type PrescriptionsClient struct {
	client *Client
}

// UploadOptions tunes a prescription upload.
type UploadOptions struct {
	// Engine forces an OCR backend; empty lets the server choose.
	Engine rxtypes.Engine

	// Async stores the prescription and defers extraction to the worker.
	Async bool
}

// Upload submits a prescription image for OCR extraction.
func (p *PrescriptionsClient) Upload(ctx context.Context, image []byte, contentType string, opts UploadOptions) (*rxtypes.PrescriptionDTO, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("medimatch: image is required")
	}
	if contentType == "" {
		return nil, fmt.Errorf("medimatch: image content type is required")
	}

	// The multipart body is rebuilt per attempt so retries resend it intact.
	bodyFn := func() (io.Reader, string) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="prescription"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, ""
		}
		if _, err := part.Write(image); err != nil {
			return nil, ""
		}
		if opts.Engine != "" {
			_ = w.WriteField("mode", string(opts.Engine))
		}
		if opts.Async {
			_ = w.WriteField("async", strconv.FormatBool(opts.Async))
		}
		if err := w.Close(); err != nil {
			return nil, ""
		}
		return &buf, w.FormDataContentType()
	}

	var dto rxtypes.PrescriptionDTO
	if err := p.client.doRaw(ctx, http.MethodPost, "/api/v1/prescriptions", bodyFn, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Get returns a prescription by ID, including a presigned image URL.
func (p *PrescriptionsClient) Get(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error) {
	if id == "" {
		return nil, fmt.Errorf("medimatch: prescription id is required")
	}
	var dto rxtypes.PrescriptionDTO
	if err := p.client.get(ctx, "/api/v1/prescriptions/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// CheckInteractions flags known drug-drug interactions in a medication list.
func (p *PrescriptionsClient) CheckInteractions(ctx context.Context, drugs []string) (*rxtypes.InteractionResponse, error) {
	if len(drugs) < 2 {
		return nil, fmt.Errorf("medimatch: at least two drugs are required")
	}
	req := rxtypes.InteractionRequest{Drugs: drugs}

	var resp rxtypes.InteractionResponse
	if err := p.client.post(ctx, "/api/v1/prescriptions/interactions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
