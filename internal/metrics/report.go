package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Filter narrows the bets a report covers. The zero value selects all bets.
type Filter struct {
	From            time.Time // inclusive, compared with the bet's day time
	To              time.Time // exclusive
	ExcludePending  bool
	ExcludeRefunded bool
	Sportsbook      string
	Sport           string
	Source          domain.Source
}

// Match reports whether b passes f.
func (f Filter) Match(b *domain.Bet) bool {
	day := b.DayTime()
	switch {
	case !f.From.IsZero() && day.Before(f.From):
		return false
	case !f.To.IsZero() && !day.Before(f.To):
		return false
	case f.ExcludePending && b.Status == domain.BetStatusPending:
		return false
	case f.ExcludeRefunded && b.Status == domain.BetStatusRefunded:
		return false
	case f.Sportsbook != "" && !strings.EqualFold(f.Sportsbook, b.Sportsbook):
		return false
	case f.Sport != "" && !strings.EqualFold(f.Sport, b.Sport):
		return false
	case f.Source != "" && f.Source != b.Source:
		return false
	}
	return true
}

// Group is one slice of a report. All and ValidCLV have the same shape;
// ValidCLV only counts bets with both an entry and a closing price.
type Group struct {
	Key      string `json:"key"`
	All      Totals `json:"all"`
	ValidCLV Totals `json:"valid_clv"`
	// BeatCLVRate is the percentage of graded bets with a closing line whose
	// entry price beat it.
	BeatCLVRate float64 `json:"beat_clv_rate"`

	graded, beat int
}

func newGroup(key string) *Group {
	return &Group{Key: key, All: newTotals(), ValidCLV: newTotals()}
}

func (g *Group) add(a Analysis) {
	g.All.add(a)
	if !a.HasCLV {
		return
	}
	g.ValidCLV.add(a)
	if a.Bet.Status.IsSettled() {
		g.graded++
		if a.BeatCLV {
			g.beat++
		}
	}
}

func (g *Group) finish() {
	g.All.finish()
	g.ValidCLV.finish()
	if g.graded > 0 {
		g.BeatCLVRate = round2(float64(g.beat) / float64(g.graded) * 100)
	}
}

// Report is the full grouped summary for a filter.
type Report struct {
	Overall      Group   `json:"overall"`
	BySportsbook []Group `json:"by_sportsbook"`
	BySport      []Group `json:"by_sport"`
	ByStatus     []Group `json:"by_status"`
	ByDay        []Group `json:"by_day"`
	BySource     []Group `json:"by_source"`
	ByEVCategory []Group `json:"by_ev_category"`
}

// Engine groups bets using a fixed timezone for day buckets.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an Engine bucketing days in loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// DayKey returns the YYYY-MM-DD bucket of b.
func (e *Engine) DayKey(b *domain.Bet) string {
	return b.DayTime().In(e.loc).Format(time.DateOnly)
}

// grouping accumulates groups keyed by a derived label.
type grouping struct {
	keyOf  func(Analysis) string
	groups map[string]*Group
}

func (g *grouping) add(a Analysis) {
	k := g.keyOf(a)
	grp, ok := g.groups[k]
	if !ok {
		grp = newGroup(k)
		g.groups[k] = grp
	}
	grp.add(a)
}

func (g *grouping) list(less func(a, b *Group) bool) []Group {
	out := make([]*Group, 0, len(g.groups))
	for _, grp := range g.groups {
		grp.finish()
		out = append(out, grp)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	flat := make([]Group, len(out))
	for i, grp := range out {
		flat[i] = *grp
	}
	return flat
}

func byProfitDesc(a, b *Group) bool {
	if c := a.All.Profit.Cmp(b.All.Profit); c != 0 {
		return c > 0
	}
	return a.Key < b.Key
}

func byKey(a, b *Group) bool { return a.Key < b.Key }

func byOrder(order []string) func(a, b *Group) bool {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	return func(a, b *Group) bool { return rank[a.Key] < rank[b.Key] }
}

func labelOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// Summarize builds the grouped report over the bets that pass f.
func (e *Engine) Summarize(bets []*domain.Bet, f Filter) Report {
	overall := newGroup("all")
	groups := map[string]*grouping{}
	for name, keyOf := range map[string]func(Analysis) string{
		"sportsbook": func(a Analysis) string { return labelOr(a.Bet.Sportsbook, "Unknown") },
		"sport":      func(a Analysis) string { return labelOr(a.Bet.Sport, "Unknown") },
		"status":     func(a Analysis) string { return string(a.Bet.Status) },
		"day":        func(a Analysis) string { return e.DayKey(a.Bet) },
		"source":     func(a Analysis) string { return string(a.Bet.Source) },
		"ev":         func(a Analysis) string { return string(a.Category) },
	} {
		groups[name] = &grouping{keyOf: keyOf, groups: map[string]*Group{}}
	}

	for _, b := range bets {
		if !f.Match(b) {
			continue
		}
		a := Analyze(b)
		overall.add(a)
		for _, g := range groups {
			g.add(a)
		}
	}
	overall.finish()

	statusOrder := make([]string, len(domain.BetStatuses))
	for i, s := range domain.BetStatuses {
		statusOrder[i] = string(s)
	}
	evOrder := make([]string, len(EVCategories))
	for i, c := range EVCategories {
		evOrder[i] = string(c)
	}
	sourceOrder := make([]string, len(domain.Sources))
	for i, s := range domain.Sources {
		sourceOrder[i] = string(s)
	}

	return Report{
		Overall:      *overall,
		BySportsbook: groups["sportsbook"].list(byProfitDesc),
		BySport:      groups["sport"].list(byProfitDesc),
		ByStatus:     groups["status"].list(byOrder(statusOrder)),
		ByDay:        groups["day"].list(byKey),
		BySource:     groups["source"].list(byOrder(sourceOrder)),
		ByEVCategory: groups["ev"].list(byOrder(evOrder)),
	}
}

// AnalyzeAll evaluates every bet passing f, most recently placed first.
func (e *Engine) AnalyzeAll(bets []*domain.Bet, f Filter) []Analysis {
	var out []Analysis
	for _, b := range bets {
		if f.Match(b) {
			out = append(out, Analyze(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Bet.TimePlaced.After(out[j].Bet.TimePlaced)
	})
	return out
}
