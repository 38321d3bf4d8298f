package metrics

import (
	"sort"
	"time"

	"github.com/AngelCh415/agentic-analyst/internal/models"
)

const lowPerformerLimit = 3

type totals struct {
	spend       float64
	revenue     float64
	clicks      int
	impressions int
}

func (t *totals) add(r models.PerformanceRecord) {
	t.spend += r.Spend
	t.revenue += r.Revenue
	t.clicks += r.Clicks
	t.impressions += r.Impressions
}

func (t totals) roas() models.Ratio { return models.Div(t.revenue, t.spend) }
func (t totals) ctr() models.Ratio  { return models.Div(float64(t.clicks), float64(t.impressions)) }

// keyed keeps accumulators in first-seen order so output is deterministic.
type keyed[K comparable] struct {
	order []K
	m     map[K]*totals
}

func newKeyed[K comparable]() *keyed[K] { return &keyed[K]{m: make(map[K]*totals)} }

func (k *keyed[K]) get(key K) *totals {
	t, ok := k.m[key]
	if !ok {
		t = &totals{}
		k.m[key] = t
		k.order = append(k.order, key)
	}
	return t
}

// Aggregate rolls daily records up by date, campaign and creative message.
// Ratios are always computed from summed numerators and denominators.
func Aggregate(records []models.PerformanceRecord) models.AggregatedContext {
	byDate := newKeyed[time.Time]()
	byCampaign := newKeyed[string]()
	byCreative := newKeyed[string]()
	var all totals
	purchases := 0

	for _, r := range records {
		byDate.get(dayUTC(r.Date)).add(r)
		byCampaign.get(r.CampaignName).add(r)
		byCreative.get(r.CreativeMessage).add(r)
		all.add(r)
		purchases += r.Purchases
	}

	out := models.AggregatedContext{
		Trend:                  make([]models.TrendPoint, 0, len(byDate.order)),
		CampaignStats:          make([]models.CampaignStat, 0, len(byCampaign.order)),
		LowPerformingCreatives: []models.CreativeStat{},
		Totals: models.Totals{
			Spend:     all.spend,
			Revenue:   all.revenue,
			Purchases: purchases,
			ROAS:      all.roas(),
			CTR:       all.ctr(),
		},
	}

	days := append([]time.Time(nil), byDate.order...)
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	for _, d := range days {
		t := byDate.m[d]
		out.Trend = append(out.Trend, models.TrendPoint{
			Date:    d.Format(models.DateLayout),
			Spend:   t.spend,
			Revenue: t.revenue,
			ROAS:    t.roas(),
		})
	}

	for _, name := range byCampaign.order {
		t := byCampaign.m[name]
		out.CampaignStats = append(out.CampaignStats, models.CampaignStat{Name: name, ROAS: t.roas(), CTR: t.ctr()})
	}

	creatives := make([]models.CreativeStat, 0, len(byCreative.order))
	for _, msg := range byCreative.order {
		t := byCreative.m[msg]
		creatives = append(creatives, models.CreativeStat{Message: msg, ROAS: t.roas(), CTR: t.ctr()})
	}
	sort.SliceStable(creatives, func(i, j int) bool { return ratioLess(creatives[i].CTR, creatives[j].CTR) })
	if len(creatives) > lowPerformerLimit {
		creatives = creatives[:lowPerformerLimit]
	}
	out.LowPerformingCreatives = append(out.LowPerformingCreatives, creatives...)
	return out
}

// ratioLess orders defined ratios ascending; undefined ones go last.
func ratioLess(a, b models.Ratio) bool {
	switch {
	case !a.Defined():
		return false
	case !b.Defined():
		return true
	default:
		return a < b
	}
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
