package metrics

import (
	"sort"
	"time"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Day is one calendar cell.
type Day struct {
	Date   string `json:"date"`
	Totals Totals `json:"totals"`
}

// Month is the calendar view of one month.
type Month struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Days    []Day  `json:"days"` // only days with bets, ascending
	Summary Totals `json:"summary"`
}

// DayDetail lists the bets of one calendar day.
type DayDetail struct {
	Date        string        `json:"date"`
	Bets        []*domain.Bet `json:"bets"`
	Totals      Totals        `json:"totals"`
	BiggestWin  *domain.Bet   `json:"biggest_win,omitempty"`
	BiggestLoss *domain.Bet   `json:"biggest_loss,omitempty"`
}

// monthRange returns [first day, first day of next month) in loc.
func (e *Engine) monthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, e.loc)
	return start, start.AddDate(0, 1, 0)
}

// Calendar buckets the bets falling in the given month by day.
func (e *Engine) Calendar(bets []*domain.Bet, year int, month time.Month) Month {
	from, to := e.monthRange(year, month)
	f := Filter{From: from, To: to}

	days := map[string]*Totals{}
	summary := newTotals()
	for _, b := range bets {
		if !f.Match(b) {
			continue
		}
		a := Analyze(b)
		key := e.DayKey(b)
		t, ok := days[key]
		if !ok {
			nt := newTotals()
			t = &nt
			days[key] = t
		}
		t.add(a)
		summary.add(a)
	}

	out := Month{Year: year, Month: int(month), Days: make([]Day, 0, len(days))}
	for k, t := range days {
		t.finish()
		out.Days = append(out.Days, Day{Date: k, Totals: *t})
	}
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Date < out.Days[j].Date })
	summary.finish()
	out.Summary = summary
	return out
}

// Day returns the bets whose day bucket is date, pending first, then most
// recently placed.
func (e *Engine) Day(bets []*domain.Bet, date time.Time) DayDetail {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, e.loc)
	f := Filter{From: start, To: start.AddDate(0, 0, 1)}

	d := DayDetail{Date: start.Format(time.DateOnly), Bets: []*domain.Bet{}, Totals: newTotals()}
	for _, b := range bets {
		if !f.Match(b) {
			continue
		}
		d.Bets = append(d.Bets, b)
		d.Totals.add(Analyze(b))
		if b.Status == domain.BetStatusWon && (d.BiggestWin == nil || b.Profit.GreaterThan(d.BiggestWin.Profit)) {
			d.BiggestWin = b
		}
		if b.Status == domain.BetStatusLost && (d.BiggestLoss == nil || b.Profit.LessThan(d.BiggestLoss.Profit)) {
			d.BiggestLoss = b
		}
	}
	d.Totals.finish()

	sort.SliceStable(d.Bets, func(i, j int) bool {
		pi, pj := d.Bets[i].Status == domain.BetStatusPending, d.Bets[j].Status == domain.BetStatusPending
		if pi != pj {
			return pi
		}
		return d.Bets[i].TimePlaced.After(d.Bets[j].TimePlaced)
	})
	return d
}
