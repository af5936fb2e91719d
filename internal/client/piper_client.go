package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storytailer/api/internal/config"
)

// SynthesisParams are the voice tuning knobs passed to the synthesis engine.
// Each story flavor maps to one fixed profile.
type SynthesisParams struct {
	LengthScale float64 `json:"length_scale"`
	NoiseScale  float64 `json:"noise_scale"`
	NoiseWScale float64 `json:"noise_w_scale"`
	Volume      float64 `json:"volume"`
}

type synthesizeRequest struct {
	Text string `json:"text"`
	SynthesisParams
}

// PiperClient talks to a Piper TTS HTTP server that renders text to a WAV
// container.
type PiperClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewPiperClient(cfg *config.PiperConfig) *PiperClient {
	return &PiperClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: cfg.URL,
	}
}

// Synthesize renders text to raw WAV bytes.
func (c *PiperClient) Synthesize(ctx context.Context, text string, params SynthesisParams) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, SynthesisParams: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("piper API error (status %d): %s", resp.StatusCode, string(data))
	}

	return data, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *PiperClient) IsConfigured() bool {
	return c.baseURL != ""
}
