package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

type CreativeType string

const (
	CreativeImage    CreativeType = "image"
	CreativeVideo    CreativeType = "video"
	CreativeCarousel CreativeType = "carousel"
)

type AudienceType string

const (
	AudienceBroad       AudienceType = "broad"
	AudienceLookalike   AudienceType = "lookalike"
	AudienceRetargeting AudienceType = "retargeting"
)

// PerformanceRecord is one campaign's results for one day.
type PerformanceRecord struct {
	Date            time.Time    `json:"-"`
	CampaignName    string       `json:"campaign_name"`
	AdSetName       string       `json:"adset_name"`
	Spend           float64      `json:"spend"`
	Impressions     int          `json:"impressions"`
	Clicks          int          `json:"clicks"`
	Purchases       int          `json:"purchases"`
	Revenue         float64      `json:"revenue"`
	CTR             float64      `json:"ctr"`
	ROAS            float64      `json:"roas"`
	CPA             float64      `json:"cpa"`
	CreativeType    CreativeType `json:"creative_type"`
	CreativeMessage string       `json:"creative_message"`
	AudienceType    AudienceType `json:"audience_type"`
}

func (r PerformanceRecord) MarshalJSON() ([]byte, error) {
	type alias PerformanceRecord
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: r.Date.Format(DateLayout), alias: alias(r)})
}

// UnmarshalJSON reads the "date" member written by MarshalJSON. An empty or
// missing date leaves Date zero.
func (r *PerformanceRecord) UnmarshalJSON(b []byte) error {
	type alias PerformanceRecord
	aux := struct {
		Date string `json:"date"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Date = time.Time{}
	if aux.Date == "" {
		return nil
	}
	d, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return fmt.Errorf("record date: %w", err)
	}
	r.Date = d
	return nil
}

type TrendPoint struct {
	Date    string  `json:"date"`
	Spend   float64 `json:"spend"`
	Revenue float64 `json:"revenue"`
	ROAS    Ratio   `json:"roas"`
}

type CampaignStat struct {
	Name string `json:"name"`
	ROAS Ratio  `json:"roas"`
	CTR  Ratio  `json:"ctr"`
}

type CreativeStat struct {
	Message string `json:"message"`
	ROAS    Ratio  `json:"roas"`
	CTR     Ratio  `json:"ctr"`
}

type Totals struct {
	Spend     float64 `json:"total_spend"`
	Revenue   float64 `json:"total_revenue"`
	Purchases int     `json:"total_purchases"`
	ROAS      Ratio   `json:"total_roas"`
	CTR       Ratio   `json:"avg_ctr"`
}

// AggregatedContext is derived from a record collection and recomputed whenever it changes.
type AggregatedContext struct {
	Trend                  []TrendPoint   `json:"trendData"`
	CampaignStats          []CampaignStat `json:"campaignStats"`
	LowPerformingCreatives []CreativeStat `json:"lowPerformingCreatives"`
	Totals                 Totals         `json:"totals"`
}

// Underperformers returns the low-performing creatives whose CTR is strictly
// below the overall CTR. Undefined ratios never qualify.
func (c AggregatedContext) Underperformers() []CreativeStat {
	if !c.Totals.CTR.Defined() {
		return nil
	}
	var out []CreativeStat
	for _, cs := range c.LowPerformingCreatives {
		if cs.CTR.Defined() && cs.CTR < c.Totals.CTR {
			out = append(out, cs)
		}
	}
	return out
}

type Stage string

const (
	StagePlanning     Stage = "planning"
	StageRetrieving   Stage = "retrieving"
	StageDiagnosing   Stage = "diagnosing"
	StageRecommending Stage = "recommending"
	StageDone         Stage = "done"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusWorking   Status = "working"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

type AgentLogEntry struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type InsightResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Metric      string   `json:"metric"`
	Change      string   `json:"change"` // signed percentage, e.g. "-15%"
}

type RecommendationType string

const (
	RecommendHeadline RecommendationType = "headline"
	RecommendCTA      RecommendationType = "cta"
	RecommendBody     RecommendationType = "body"
)

type CreativeRecommendation struct {
	CampaignName     string             `json:"campaign_name"`
	OriginalMessage  string             `json:"original_message"`
	SuggestedMessage string             `json:"suggested_message"`
	Reasoning        string             `json:"reasoning"`
	Type             RecommendationType `json:"type"`
}

type Session struct {
	ID              string                   `json:"id"`
	Query           string                   `json:"query"`
	Logs            []AgentLogEntry          `json:"logs"`
	Insights        []InsightResult          `json:"insights"`
	Recommendations []CreativeRecommendation `json:"recommendations"`
	IsProcessing    bool                     `json:"isProcessing"`
	Error           string                   `json:"error,omitempty"`
}
