// Package betinfo turns structured wager parts into a single description and
// recovers a best-effort structure from free-text descriptions.
package betinfo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

const (
	// MarketOther is used when no market keyword is recognised.
	MarketOther = "Other"
	// MarketParlay is the market of every multi-leg description.
	MarketParlay = "Parlay"
	// UnknownEvent is used when no matchup separator is present.
	UnknownEvent = "Unknown Event"

	// LegSeparator splits parlay legs in automated-feed descriptions.
	LegSeparator = "|"
	// MaxSelectionLen caps the stored selection of long parlays (in runes).
	MaxSelectionLen = 500
)

// Parsed is the structure recovered from a free-text description.
type Parsed struct {
	Selection string
	Market    string
	Matchup   string
	Legs      int
	// LowConfidence is set when the matchup or the selection boundary had to
	// be guessed.
	LowConfidence bool
}

// Compose joins the non-empty trimmed parts with single spaces, in order.
// Typical use is Compose(betName, marketName, eventName).
func Compose(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// ── Market inference ──────────────────────────────────────────────────────────

type marketRule struct {
	re   *regexp.Regexp
	name string
}

// Ordered: the first matching rule names the market.
var marketRules = []marketRule{
	{regexp.MustCompile(`(?i)\btotal\s+points?\b`), "Total Points"},
	{regexp.MustCompile(`(?i)\btotal\s+assists?\b`), "Total Assists"},
	{regexp.MustCompile(`(?i)\btotal\s+rebounds?\b`), "Total Rebounds"},
	{regexp.MustCompile(`(?i)\btotal\s+goals?\b`), "Total Goals"},
	{regexp.MustCompile(`(?i)\btotal\s+yards?\b`), "Total Yards"},
	{regexp.MustCompile(`(?i)\btotal\s+touchdowns?\b`), "Total Touchdowns"},
	{regexp.MustCompile(`(?i)\bspread\b`), "Spread"},
	{regexp.MustCompile(`(?i)\bmoneyline\b`), "Moneyline"},
	{regexp.MustCompile(`(?i)\bover\s*/\s*under\b`), "Over/Under"},
	{regexp.MustCompile(`(?i)\b(?:over|under)\s+\d`), "Total"},
	{regexp.MustCompile(`(?i)\bthree\s+pointers?\b`), "Three Pointers"},
	{regexp.MustCompile(`(?i)\brebounds?\b`), "Rebounds"},
	{regexp.MustCompile(`(?i)\bassists?\b`), "Assists"},
	{regexp.MustCompile(`(?i)\bpoints?\b`), "Points"},
}

// InferMarket names the market described by text, or MarketOther.
func InferMarket(text string) string {
	for _, r := range marketRules {
		if r.re.MatchString(text) {
			return r.name
		}
	}
	return MarketOther
}

// ── Matchup extraction ────────────────────────────────────────────────────────

type separator struct {
	re    *regexp.Regexp
	label string
}

// Checked in precedence order; within one separator the last occurrence wins.
var separators = []separator{
	{regexp.MustCompile(`(?i)\s+at\s+`), "at"},
	{regexp.MustCompile(`(?i)\s+vs\.?\s+`), "vs"},
	{regexp.MustCompile(`\s*@\s*`), "@"},
}

// anchors mark where a selection ends and the first team name begins.
var anchors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btotal\b`),
	regexp.MustCompile(`(?:^|\s)[+-]?\d+(?:\.\d+)?\b`),
}

func init() {
	for _, r := range marketRules {
		anchors = append(anchors, r.re)
	}
}

// lastAnchorEnd returns the byte offset just past the right-most anchor in s,
// or 0 when s contains none.
func lastAnchorEnd(s string) int {
	end := 0
	for _, re := range anchors {
		for _, loc := range re.FindAllStringIndex(s, -1) {
			if loc[1] > end {
				end = loc[1]
			}
		}
	}
	return end
}

// Parse recovers selection, market and matchup from a description.
func Parse(text string, kind domain.BetKind) Parsed {
	text = strings.TrimSpace(text)
	if text == "" {
		return Parsed{Market: MarketOther, Matchup: UnknownEvent, Legs: 1, LowConfidence: true}
	}
	if kind == domain.BetKindParlay && strings.Contains(text, LegSeparator) {
		return parseParlay(text)
	}

	for _, sep := range separators {
		locs := sep.re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		loc := locs[len(locs)-1]
		left := strings.TrimSpace(text[:loc[0]])
		teamB := strings.TrimSpace(text[loc[1]:])
		if left == "" || teamB == "" {
			continue
		}
		return splitMatchup(left, sep.label, teamB)
	}

	return Parsed{
		Selection:     text,
		Market:        InferMarket(text),
		Matchup:       UnknownEvent,
		Legs:          1,
		LowConfidence: true,
	}
}

func splitMatchup(left, label, teamB string) Parsed {
	p := Parsed{Legs: 1}
	end := lastAnchorEnd(left)
	teamA := strings.TrimSpace(left[end:])
	selection := strings.TrimSpace(left[:end])

	if end == 0 || teamA == "" {
		// No reliable boundary: keep the whole left side as the selection and
		// let the matchup repeat it.
		p.Selection = left
		p.Matchup = left + " " + label + " " + teamB
		p.LowConfidence = true
	} else {
		p.Selection = selection
		p.Matchup = teamA + " " + label + " " + teamB
	}
	p.Market = InferMarket(p.Selection)
	if p.Market == MarketOther {
		p.LowConfidence = true
	}
	return p
}

func parseParlay(text string) Parsed {
	legs := 0
	for _, leg := range strings.Split(text, LegSeparator) {
		if strings.TrimSpace(leg) != "" {
			legs++
		}
	}
	return Parsed{
		Selection: truncate(text, MaxSelectionLen),
		Market:    MarketParlay,
		Matchup:   fmt.Sprintf("Parlay (%d legs)", legs),
		Legs:      legs,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
