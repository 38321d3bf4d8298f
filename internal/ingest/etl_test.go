package ingest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/agentic-analyst/internal/config"
	"github.com/AngelCh415/agentic-analyst/internal/models"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestGenerateShape(t *testing.T) {
	today := time.Date(2025, 8, 31, 15, 0, 0, 0, time.UTC)
	recs := Generate(30, today, rand.New(rand.NewSource(7)))
	require.Len(t, recs, 31*3)

	assert.Equal(t, "2025-08-01", recs[0].Date.Format(models.DateLayout))
	assert.Equal(t, "2025-08-31", recs[len(recs)-1].Date.Format(models.DateLayout))

	days := map[string]struct{}{}
	for _, r := range recs {
		days[r.Date.Format(models.DateLayout)] = struct{}{}
	}
	require.Len(t, days, 31, "N days back plus today")

	for _, r := range recs {
		assert.LessOrEqual(t, r.Clicks, r.Impressions)
		assert.GreaterOrEqual(t, r.Spend, 200.0)
		assert.InDelta(t, float64(r.Clicks)/float64(r.Impressions), r.CTR, 1e-12)
		if r.Purchases == 0 {
			assert.Zero(t, r.CPA)
		}
		assert.Equal(t, r.CampaignName+"_AdSet_1", r.AdSetName)
		assert.Equal(t, math.Round(r.Spend*100)/100, r.Spend)
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	today := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	a := Generate(5, today, rand.New(rand.NewSource(42)))
	b := Generate(5, today, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestGenerateFatigueLowersProspectingCTR(t *testing.T) {
	today := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	recs := Generate(30, today, rand.New(rand.NewSource(1)))
	var early, late struct{ clicks, imps int }
	for _, r := range recs {
		if r.CampaignName != fatiguedCampaign {
			continue
		}
		if today.Sub(r.Date) < fatigueWindow*24*time.Hour {
			late.clicks += r.Clicks
			late.imps += r.Impressions
		} else {
			early.clicks += r.Clicks
			early.imps += r.Impressions
		}
	}
	earlyCTR := float64(early.clicks) / float64(early.imps)
	lateCTR := float64(late.clicks) / float64(late.imps)
	assert.Less(t, lateCTR, earlyCTR*0.8)
}

func TestExtractFromRemoteDedupesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"date":"2025-08-01","campaign_name":" Camp A ","adset_name":"","spend":100,"impressions":1000,"clicks":10,"purchases":2,"revenue":300,"creative_type":"IMAGE","creative_message":"Hi","audience_type":"broad"},
			{"date":"2025-08-01","campaign_name":"Camp A","adset_name":"","spend":100,"impressions":1000,"clicks":10,"purchases":2,"revenue":300,"creative_type":"image","creative_message":"Hi","audience_type":"broad"},
			{"date":"bad","campaign_name":"Camp B","spend":1},
			{"date":"2025-08-02","campaign_name":"Camp B","spend":-5,"impressions":0,"clicks":0,"purchases":0,"revenue":0,"creative_message":"Yo"}
		]`)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second)
	cfg := config.Config{DataURL: srv.URL}
	etl := NewETL(NewSource(c, cfg), c, quietLogger(), cfg)

	recs, err := etl.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	a := recs[0]
	assert.Equal(t, "Camp A", a.CampaignName)
	assert.Equal(t, "Camp A_AdSet_1", a.AdSetName)
	assert.Equal(t, models.CreativeImage, a.CreativeType)
	assert.InDelta(t, 0.01, a.CTR, 1e-12)
	assert.InDelta(t, 3.0, a.ROAS, 1e-12)
	assert.InDelta(t, 50.0, a.CPA, 1e-12)

	b := recs[1]
	assert.Zero(t, b.Spend)
	assert.Zero(t, b.CTR)
	assert.Zero(t, b.ROAS)
}

func TestExtractSyntheticByDefault(t *testing.T) {
	cfg := config.Config{SyntheticDays: 3, DataSeed: 9}
	etl := NewETL(NewSource(nil, cfg), nil, quietLogger(), cfg)
	recs, err := etl.Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 4*3)
}

func TestExportSessionSignsBody(t *testing.T) {
	var gotSig string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.Config{SinkURL: srv.URL, SinkSecret: "s3cret"}
	etl := NewETL(nil, NewHTTPClient(time.Second), quietLogger(), cfg)

	n, err := etl.ExportSession(context.Background(), models.Session{
		ID:       "abc",
		Insights: []models.InsightResult{{Title: "t"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func TestExportSessionErrors(t *testing.T) {
	etl := NewETL(nil, NewHTTPClient(time.Second), quietLogger(), config.Config{})
	_, err := etl.ExportSession(context.Background(), models.Session{})
	assert.ErrorIs(t, err, ErrSinkNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	etl = NewETL(nil, NewHTTPClient(time.Second), quietLogger(), config.Config{SinkURL: srv.URL, SinkSecret: "x"})
	_, err = etl.ExportSession(context.Background(), models.Session{})
	assert.ErrorContains(t, err, "502")
}
