package esm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mutscan/mutscan/pkg/net"
)

// Client calls a remote ESM-2 inference service for masked forward passes.
// The service holds the loaded model weights; this client only ships token
// ids and reads back logits.
type Client struct {
	endpoint   string
	checkpoint string
	http       *http.Client
}

type forwardRequest struct {
	Model     string `json:"model"`
	Tokens    []int  `json:"tokens"`
	MaskIndex int    `json:"mask_index"`
}

type forwardResponse struct {
	Logits []float64 `json:"logits"`
	Error  string    `json:"error,omitempty"`
}

// NewClient creates a client for the given inference endpoint and
// checkpoint short name. The token, when not empty, is sent as a bearer
// credential on every request.
func NewClient(ctx context.Context, endpoint, checkpoint, token string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("inference endpoint is required")
	}
	id, err := ResolveCheckpoint(checkpoint)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint:   endpoint,
		checkpoint: id,
		http:       net.GetBearerClient(ctx, token),
	}, nil
}

// Checkpoint returns the resolved checkpoint id.
func (c *Client) Checkpoint() string {
	return c.checkpoint
}

// Logits runs one masked forward pass and returns the logits at maskIndex.
func (c *Client) Logits(ctx context.Context, tokens []int, maskIndex int) ([]float64, error) {
	if maskIndex < 0 || maskIndex >= len(tokens) {
		return nil, fmt.Errorf("mask index %d out of token range [0,%d)", maskIndex, len(tokens))
	}

	req := &forwardRequest{
		Model:     c.checkpoint,
		Tokens:    tokens,
		MaskIndex: maskIndex,
	}

	var resp forwardResponse
	if err := net.PostJSON(ctx, c.http, c.endpoint+"/v1/forward", req, &resp); err != nil {
		return nil, fmt.Errorf("forward pass failed: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("inference service error: %s", resp.Error)
	}
	if len(resp.Logits) == 0 {
		return nil, fmt.Errorf("inference service returned no logits")
	}
	return resp.Logits, nil
}
