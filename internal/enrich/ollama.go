// Package enrich asks a locally hosted language model for remediation
// suggestions. Best effort only: every failure here is recoverable and never
// blocks event persistence.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leptons1618/sia-proto/internal/config"
	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/model"
)

var (
	ErrUnavailable       = errors.New("suggestion service unreachable")
	ErrTimeout           = errors.New("suggestion request timed out")
	ErrMalformedResponse = errors.New("malformed suggestion response")
)

// probeTimeout bounds the reachability check so a down service costs far
// less than a full request timeout.
const probeTimeout = 2 * time.Second

type Client struct {
	httpc         *http.Client
	baseURL       string
	model         string
	probeInterval time.Duration
	health        *health.Health
	log           zerolog.Logger

	mu        sync.Mutex
	available bool
	lastProbe time.Time
}

func New(cfg config.LLMConfig, h *health.Health, log zerolog.Logger) *Client {
	return &Client{
		httpc:         &http.Client{Timeout: cfg.Timeout()},
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		model:         cfg.Model,
		probeInterval: cfg.ProbeInterval(),
		health:        h,
		log:           log.With().Str("component", "enrich").Logger(),
	}
}

func (c *Client) Model() string { return c.model }

// Available reports whether the suggestion service answered a recent probe.
// The result is cached for the probe interval so critical-event bursts do
// not pay a probe per event.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	if !c.lastProbe.IsZero() && time.Since(c.lastProbe) < c.probeInterval {
		ok := c.available
		c.mu.Unlock()
		return ok
	}
	c.mu.Unlock()

	ok := c.probe(ctx)

	c.mu.Lock()
	c.available = ok
	c.lastProbe = time.Now()
	c.mu.Unlock()
	if c.health != nil {
		c.health.SetEnrichmentAvailable(ok)
	}
	return ok
}

func (c *Client) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("probe failed")
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Int("status", resp.StatusCode).Msg("probe rejected")
		return false
	}
	return true
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Suggest asks the model for an analysis of the event. Callers bound the
// call with a context deadline.
func (c *Client) Suggest(ctx context.Context, ev model.Event) (*model.Suggestion, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: c.prompt(ev),
		Stream: false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}
	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(gr.Response) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	return &model.Suggestion{
		Analysis:  strings.TrimSpace(gr.Response),
		Source:    "ollama",
		Model:     c.model,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (c *Client) prompt(ev model.Event) string {
	snapshot := string(ev.Snapshot)
	if snapshot == "" {
		snapshot = "{}"
	}
	return fmt.Sprintf(`You are a system administrator AI assistant analyzing a system event.

Event Details:
- Type: %s
- Severity: %s
- Timestamp: %s
- Evidence: %s

Please provide:
1. Brief analysis of what caused this issue
2. Immediate recommended actions (2-3 steps)
3. Preventive measures for the future

Keep your response concise and actionable (max 200 words).`,
		ev.Type, ev.Severity, time.Unix(ev.TS, 0).UTC().Format(time.RFC3339), snapshot)
}
