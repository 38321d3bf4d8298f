package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AngelCh415/agentic-analyst/internal/config"
	"github.com/AngelCh415/agentic-analyst/internal/models"
)

var ErrSinkNotConfigured = errors.New("sink not configured")

// Source supplies an ordered collection of daily performance records.
type Source interface {
	Records(ctx context.Context) ([]models.PerformanceRecord, error)
}

// Remote reads a JSON array of records from an HTTP endpoint.
type Remote struct {
	C   HTTPClient
	URL string
}

type recordResp []struct {
	Date            string  `json:"date"`
	CampaignName    string  `json:"campaign_name"`
	AdSetName       string  `json:"adset_name"`
	Spend           float64 `json:"spend"`
	Impressions     int     `json:"impressions"`
	Clicks          int     `json:"clicks"`
	Purchases       int     `json:"purchases"`
	Revenue         float64 `json:"revenue"`
	CreativeType    string  `json:"creative_type"`
	CreativeMessage string  `json:"creative_message"`
	AudienceType    string  `json:"audience_type"`
}

func (r Remote) Records(ctx context.Context) ([]models.PerformanceRecord, error) {
	var resp recordResp
	if err := GetJSONWithRetry(ctx, r.C, r.URL, &resp); err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	out := make([]models.PerformanceRecord, 0, len(resp))
	for _, rr := range resp {
		d, err := time.Parse(models.DateLayout, strings.TrimSpace(rr.Date))
		if err != nil {
			continue
		}
		out = append(out, models.PerformanceRecord{
			Date:            d,
			CampaignName:    rr.CampaignName,
			AdSetName:       rr.AdSetName,
			Spend:           rr.Spend,
			Impressions:     rr.Impressions,
			Clicks:          rr.Clicks,
			Purchases:       rr.Purchases,
			Revenue:         rr.Revenue,
			CreativeType:    models.CreativeType(strings.ToLower(strings.TrimSpace(rr.CreativeType))),
			CreativeMessage: rr.CreativeMessage,
			AudienceType:    models.AudienceType(strings.ToLower(strings.TrimSpace(rr.AudienceType))),
		})
	}
	return out, nil
}

type ETL struct {
	src Source
	c   HTTPClient
	log *slog.Logger
	cfg config.Config
}

func NewETL(src Source, c HTTPClient, log *slog.Logger, cfg config.Config) *ETL {
	return &ETL{src: src, c: c, log: log, cfg: cfg}
}

// NewSource picks the remote endpoint when DATA_API_URL is set and the
// synthetic generator otherwise.
func NewSource(c HTTPClient, cfg config.Config) Source {
	if cfg.DataURL != "" {
		return Remote{C: c, URL: cfg.DataURL}
	}
	return Synthetic{Days: cfg.SyntheticDays, Seed: cfg.DataSeed}
}

// Extract pulls records from the source, normalizes them and drops
// duplicates of the same day/campaign/ad set/creative.
func (e *ETL) Extract(ctx context.Context) ([]models.PerformanceRecord, error) {
	raw, err := e.src.Records(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]models.PerformanceRecord, 0, len(raw))
	for _, r := range raw {
		r.CampaignName = strings.TrimSpace(r.CampaignName)
		r.CreativeMessage = strings.TrimSpace(r.CreativeMessage)
		if r.CampaignName == "" || r.Date.IsZero() {
			continue
		}
		r.Date = dayUTC(r.Date)
		key := r.Date.Format(models.DateLayout) + "|" + r.CampaignName + "|" + r.AdSetName + "|" + r.CreativeMessage
		if _, ok := seen[key]; ok {
			continue
		} // idempotencia
		seen[key] = struct{}{}

		r.AdSetName = coalesce(r.AdSetName, r.CampaignName+"_AdSet_1")
		r.Spend = maxf(r.Spend)
		r.Revenue = maxf(r.Revenue)
		r.Impressions = max0(r.Impressions)
		r.Clicks = max0(r.Clicks)
		r.Purchases = max0(r.Purchases)
		out = append(out, derive(r))
	}
	e.log.Info("extract complete", slog.Int("raw", len(raw)), slog.Int("records", len(out)))
	return out, nil
}

// ExportSession posts the session as JSON to the configured sink, signed
// with an HMAC-SHA256 of the body. It returns the number of insights and
// recommendations exported.
func (e *ETL) ExportSession(ctx context.Context, s models.Session) (int, error) {
	if e.cfg.SinkURL == "" || e.cfg.SinkSecret == "" {
		return 0, ErrSinkNotConfigured
	}
	b, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}
	mac := hmac.New(sha256.New, []byte(e.cfg.SinkSecret))
	mac.Write(b)
	sig := hex.EncodeToString(mac.Sum(nil))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sig)
	resp, err := e.c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("export sink non-2xx: %d", resp.StatusCode)
	}
	n := len(s.Insights) + len(s.Recommendations)
	e.log.Info("session exported", slog.String("session", s.ID), slog.Int("items", n))
	return n, nil
}

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
func safeDivF(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
