// Package prover requests zero-knowledge proofs from a zkLogin proving service.
package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

const (
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 4 << 10
)

// HTTPProver implements the Prover interface over HTTP
type HTTPProver struct {
	url    string
	client *http.Client
}

// NewHTTPProver creates a prover posting to url, e.g. https://prover-dev.mystenlabs.com/v1
func NewHTTPProver(url string, timeout time.Duration) (ports.Prover, error) {
	if url == "" {
		return nil, fmt.Errorf("prover url: %w", core.ErrMissingConfig)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// FetchProof posts the proof inputs and decodes the returned proof
func (p *HTTPProver) FetchProof(ctx context.Context, req ports.ProofRequest) (*core.ZKProof, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proof request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create proof request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach prover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("prover returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var proof core.ZKProof
	if err := json.NewDecoder(resp.Body).Decode(&proof); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	if len(proof.ProofPoints.A) == 0 || len(proof.ProofPoints.B) == 0 || len(proof.ProofPoints.C) == 0 {
		return nil, fmt.Errorf("prover returned incomplete proof points")
	}
	return &proof, nil
}
