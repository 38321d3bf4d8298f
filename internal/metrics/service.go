package metrics

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/agentic-analyst/internal/models"
)

// Dataset is the read side of the session store.
type Dataset interface {
	Context() models.AggregatedContext
}

type Service struct{ ds Dataset }

func NewService(ds Dataset) *Service { return &Service{ds: ds} }
func norm(s string) string           { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

func (s *Service) Summary() models.Totals { return s.ds.Context().Totals }

func (s *Service) LowPerformers() []models.CreativeStat {
	return s.ds.Context().LowPerformingCreatives
}

// QueryTrend filters the daily trend by an inclusive from/to range.
// An empty bound is open.
func (s *Service) QueryTrend(v url.Values) ([]models.TrendPoint, error) {
	from, err := parseDay(v.Get("from"))
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := parseDay(v.Get("to"))
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("to %s is before from %s", v.Get("to"), v.Get("from"))
	}
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	var rows []models.TrendPoint
	for _, p := range s.ds.Context().Trend {
		d, err := time.Parse(models.DateLayout, p.Date)
		if err != nil {
			continue
		}
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		rows = append(rows, p)
	}

	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

func (s *Service) QueryCampaigns(v url.Values) ([]models.CampaignStat, error) {
	names := csvSet(v.Get("campaign"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	var rows []models.CampaignStat
	for _, c := range s.ds.Context().CampaignStats {
		if len(names) > 0 {
			if _, ok := names[norm(c.Name)]; !ok {
				continue
			}
		}
		rows = append(rows, c)
	}

	// orden determinista: nombre primero, luego la métrica pedida (mejores arriba)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	switch norm(v.Get("sort")) {
	case "":
	case "roas":
		sort.SliceStable(rows, func(i, j int) bool { return ratioGreater(rows[i].ROAS, rows[j].ROAS) })
	case "ctr":
		sort.SliceStable(rows, func(i, j int) bool { return ratioGreater(rows[i].CTR, rows[j].CTR) })
	default:
		return nil, fmt.Errorf("unknown sort %q (want roas or ctr)", v.Get("sort"))
	}

	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

// ratioGreater orders defined ratios descending; undefined ones go last.
func ratioGreater(a, b models.Ratio) bool {
	switch {
	case !a.Defined():
		return false
	case !b.Defined():
		return true
	default:
		return a > b
	}
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(models.DateLayout, s)
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
