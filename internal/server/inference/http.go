package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/netx"
)

const maxResponseBytes = 1 << 20

// HTTPProvider posts the image as multipart field "file" to a model service.
type HTTPProvider struct {
	url    string
	client *http.Client
	logger logging.Logger
}

func NewHTTPProvider(url string, timeout time.Duration, logger logging.Logger) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("module", "inference"),
	}
}

func (p *HTTPProvider) Name() string { return "http" }

// Predict runs to completion or timeout even when the caller goes away.
// Transport failures, non-2xx answers and unknown shapes all map to
// common.ErrInferenceUnavailable. Item-level problems are left to Validate.
func (p *HTTPProvider) Predict(ctx context.Context, img Image) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	req, err := netx.NewMultipartRequest(ctx, p.url, netx.FilePart{
		Field:       "file",
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Data:        img.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInferenceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn(ctx, "inference request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrInferenceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := netx.ReadErrorBody(resp)
		p.logger.Warn(ctx, "inference service error", "status_code", resp.StatusCode, "body", msg)
		return nil, fmt.Errorf("%w: status %d", common.ErrInferenceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", common.ErrInferenceUnavailable, err)
	}

	result, err := Parse(body)
	if err != nil {
		if errors.Is(err, ErrUnsupportedShape) {
			p.logger.Warn(ctx, "unsupported inference response", "error", err)
			return nil, fmt.Errorf("%w: %w", common.ErrInferenceUnavailable, err)
		}
		return nil, err
	}

	p.logger.Debug(ctx, "inference done", "shape", result.Shape, "items", len(result.Items),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
