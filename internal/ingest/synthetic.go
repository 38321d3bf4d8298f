package ingest

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/agentic-analyst/internal/models"
)

type campaign struct {
	name     string
	audience models.AudienceType
}

type creative struct {
	msg  string
	kind models.CreativeType
}

var campaigns = []campaign{
	{name: "Prospecting_Broad_US", audience: models.AudienceBroad},
	{name: "Retargeting_Visitors_30D", audience: models.AudienceRetargeting},
	{name: "LAL_1pct_Purchasers", audience: models.AudienceLookalike},
}

var creatives = []creative{
	{msg: "Get 50% Off - Limited Time Only!", kind: models.CreativeImage},
	{msg: "The Solution You've Been Waiting For.", kind: models.CreativeVideo},
	{msg: "Why 10,000+ Customers Love Us.", kind: models.CreativeCarousel},
	{msg: "Stop Wasting Time. Start Saving Today.", kind: models.CreativeImage},
}

const (
	fatiguedCampaign = "Prospecting_Broad_US"
	fatigueWindow    = 10
	fatigueFactor    = 0.6
)

// Synthetic produces Days+1 days of records ending today for a fixed
// campaign and creative catalog. The last fatigueWindow days of the
// prospecting campaign have their CTR scaled down.
type Synthetic struct {
	Days int
	Seed int64
	Now  func() time.Time
}

func (s Synthetic) Records(ctx context.Context) ([]models.PerformanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Generate(s.Days, now(), rand.New(rand.NewSource(seed))), nil
}

func Generate(days int, today time.Time, rng *rand.Rand) []models.PerformanceRecord {
	if days < 0 {
		days = 0
	}
	out := make([]models.PerformanceRecord, 0, (days+1)*len(campaigns))
	base := dayUTC(today)

	for i := days; i >= 0; i-- {
		date := base.AddDate(0, 0, -i)
		for _, camp := range campaigns {
			spend := float64(rng.Intn(500) + 200)
			cpm := 20 + rng.Float64()*5
			impressions := int(spend / cpm * 1000)

			ctr := 0.015 + rng.Float64()*0.01
			if camp.name == fatiguedCampaign && i < fatigueWindow {
				ctr *= fatigueFactor
			}
			clicks := int(float64(impressions) * ctr)

			cvr := 0.02 + rng.Float64()*0.01
			purchases := int(float64(clicks) * cvr)
			aov := 60 + rng.Float64()*20
			revenue := money(float64(purchases) * aov)

			cr := creatives[rng.Intn(len(creatives))]
			out = append(out, derive(models.PerformanceRecord{
				Date:            date,
				CampaignName:    camp.name,
				AdSetName:       camp.name + "_AdSet_1",
				Spend:           money(spend),
				Impressions:     impressions,
				Clicks:          clicks,
				Purchases:       purchases,
				Revenue:         revenue,
				CreativeType:    cr.kind,
				CreativeMessage: cr.msg,
				AudienceType:    camp.audience,
			}))
		}
	}
	return out
}

// derive fills the per-record ratio fields from the raw counters.
func derive(r models.PerformanceRecord) models.PerformanceRecord {
	r.CTR = safeDivF(float64(r.Clicks), float64(r.Impressions))
	r.ROAS = safeDivF(r.Revenue, r.Spend)
	r.CPA = 0
	if r.Purchases > 0 {
		r.CPA = money(r.Spend / float64(r.Purchases))
	}
	return r
}

func money(f float64) float64 { return decimal.NewFromFloat(f).Round(2).InexactFloat64() }
