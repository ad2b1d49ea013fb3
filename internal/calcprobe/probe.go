// Package calcprobe implements an end-to-end smoke check: it submits a
// synthetic calculation event to a running server and verifies that the
// recommendation becomes visible through the query API.
package calcprobe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Config parameterizes one probe run.
type Config struct {
	BaseURL         string
	Source          string
	NbaDefinitionID string
	AccountID       string
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

// Report is the outcome of one probe run.
type Report struct {
	EventID     string
	Fingerprint string
	NbaID       string
	PagesWalked int
}

// Probe drives one synthetic event through the full pipeline.
type Probe struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New creates a Probe.
func New(logger *slog.Logger, cfg Config) *Probe {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	return &Probe{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger.With("component", "calcprobe"),
	}
}

// Run submits the event and polls the list endpoint until the created
// record shows up or the poll timeout expires.
func (p *Probe) Run(ctx context.Context) (Report, error) {
	eventID := uuid.New().String()
	fingerprint := p.fingerprint(eventID)

	report := Report{EventID: eventID, Fingerprint: fingerprint}

	if err := p.submit(ctx, eventID, fingerprint); err != nil {
		return report, err
	}

	p.log.Info("event submitted", slog.String("event_id", eventID))

	deadline := time.Now().Add(p.cfg.PollTimeout)
	for {
		nbaID, pages, err := p.find(ctx, fingerprint)
		if err != nil {
			return report, err
		}
		report.PagesWalked = pages
		if nbaID != "" {
			report.NbaID = nbaID
			return report, nil
		}

		if time.Now().After(deadline) {
			return report, fmt.Errorf("nba for event %s not visible after %s", eventID, p.cfg.PollTimeout)
		}

		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// fingerprint ties the probe record to this run so polling cannot match a
// leftover from an earlier probe.
func (p *Probe) fingerprint(eventID string) string {
	sum := sha256.Sum256([]byte(p.cfg.Source + "|" + p.cfg.NbaDefinitionID + "|" + p.cfg.AccountID + "|" + eventID))
	return hex.EncodeToString(sum[:])
}

func (p *Probe) submit(ctx context.Context, eventID, fingerprint string) error {
	payload := map[string]any{
		"event_id":          eventID,
		"occurred_at":       time.Now().UTC().Format(time.RFC3339),
		"source":            p.cfg.Source,
		"nba_definition_id": p.cfg.NbaDefinitionID,
		"account_id":        p.cfg.AccountID,
		"context": map[string]any{
			"probe":       true,
			"fingerprint": fingerprint,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/api/v1/internal/events/nba-calculation", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "calcprobe-"+eventID)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("submit event: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type listPage struct {
	Items []struct {
		ID      string         `json:"id"`
		Context map[string]any `json:"context"`
	} `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// find walks the paginated active list looking for the fingerprint.
// Returns the nba id ("" when absent) and the number of pages read.
func (p *Probe) find(ctx context.Context, fingerprint string) (string, int, error) {
	const pageSize = 200

	offset := 0
	pages := 0
	for {
		page, err := p.fetchPage(ctx, pageSize, offset)
		if err != nil {
			return "", pages, err
		}
		pages++

		for _, item := range page.Items {
			if item.Context["fingerprint"] == fingerprint {
				return item.ID, pages, nil
			}
		}

		offset += page.Limit
		if offset >= page.Total || len(page.Items) == 0 {
			return "", pages, nil
		}
	}
}

func (p *Probe) fetchPage(ctx context.Context, limit, offset int) (*listPage, error) {
	q := url.Values{}
	q.Set("account_id", p.cfg.AccountID)
	q.Set("status", "new")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/api/v1/nba?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list nbas: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list nbas: unexpected status %d", resp.StatusCode)
	}

	var page listPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode list page: %w", err)
	}
	return &page, nil
}
