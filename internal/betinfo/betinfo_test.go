package betinfo_test

import (
	"strings"
	"testing"

	"github.com/Apsteward8/my-bet-tracker/internal/betinfo"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

func TestCompose(t *testing.T) {
	cases := []struct {
		parts []string
		want  string
	}{
		{[]string{"Lakers -4.5", "Spread", "Lakers vs Celtics"}, "Lakers -4.5 Spread Lakers vs Celtics"},
		{[]string{" Lakers -4.5 ", "", "Lakers vs Celtics"}, "Lakers -4.5 Lakers vs Celtics"},
		{[]string{"", "  ", ""}, ""},
		{[]string{"Over 220.5"}, "Over 220.5"},
	}
	for _, tc := range cases {
		if got := betinfo.Compose(tc.parts...); got != tc.want {
			t.Errorf("Compose(%q) = %q, want %q", tc.parts, got, tc.want)
		}
	}
}

func TestInferMarket(t *testing.T) {
	cases := map[string]string{
		"LeBron James Total Points Over 25.5": "Total Points",
		"Lakers -4.5 Spread":                  "Spread",
		"Lakers Moneyline":                    "Moneyline",
		"Over 2.5":                            "Total",
		"Under 9 runs":                        "Total",
		"Stephen Curry Three Pointers 4+":     "Three Pointers",
		"Jokic 12+ Rebounds":                  "Rebounds",
		"Jokic 10+ assists":                   "Assists",
		"Jokic 30+ Points":                    "Points",
		"Anytime Goalscorer":                  betinfo.MarketOther,
	}
	for in, want := range cases {
		if got := betinfo.InferMarket(in); got != want {
			t.Errorf("InferMarket(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		text string
		kind domain.BetKind
		want betinfo.Parsed
	}{
		{
			name: "spread with vs",
			text: "Lakers -4.5 Spread Lakers vs Celtics",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{Selection: "Lakers -4.5 Spread", Market: "Spread", Matchup: "Lakers vs Celtics", Legs: 1},
		},
		{
			name: "moneyline with @",
			text: "Phoenix Suns Moneyline Phoenix Suns @ Houston Rockets",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{Selection: "Phoenix Suns Moneyline", Market: "Moneyline", Matchup: "Phoenix Suns @ Houston Rockets", Legs: 1},
		},
		{
			name: "player prop with at",
			text: "under 14.5 Bryce Thompson Total Points Cincinnati Bearcats at Oklahoma State Cowboys",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{
				Selection: "under 14.5 Bryce Thompson Total Points",
				Market:    "Total Points",
				Matchup:   "Cincinnati Bearcats at Oklahoma State Cowboys",
				Legs:      1,
			},
		},
		{
			name: "total split on number",
			text: "Over 2.5 Kansas City Chiefs at Denver Broncos",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{Selection: "Over 2.5", Market: "Total", Matchup: "Kansas City Chiefs at Denver Broncos", Legs: 1},
		},
		{
			name: "no matchup",
			text: "Lakers -4.5",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{Selection: "Lakers -4.5", Market: betinfo.MarketOther, Matchup: betinfo.UnknownEvent, Legs: 1, LowConfidence: true},
		},
		{
			name: "no selection boundary",
			text: "Lakers vs Celtics",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{Selection: "Lakers", Market: betinfo.MarketOther, Matchup: "Lakers vs Celtics", Legs: 1, LowConfidence: true},
		},
		{
			name: "parlay legs",
			text: "Lakers ML | Celtics -3.5 | Over 220.5",
			kind: domain.BetKindParlay,
			want: betinfo.Parsed{Selection: "Lakers ML | Celtics -3.5 | Over 220.5", Market: betinfo.MarketParlay, Matchup: "Parlay (3 legs)", Legs: 3},
		},
		{
			name: "parlay without separator is parsed as a single leg",
			text: "Lakers -4.5 Spread Lakers vs Celtics",
			kind: domain.BetKindParlay,
			want: betinfo.Parsed{Selection: "Lakers -4.5 Spread", Market: "Spread", Matchup: "Lakers vs Celtics", Legs: 1},
		},
		{
			name: "empty",
			text: "   ",
			kind: domain.BetKindStraight,
			want: betinfo.Parsed{Market: betinfo.MarketOther, Matchup: betinfo.UnknownEvent, Legs: 1, LowConfidence: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := betinfo.Parse(tc.text, tc.kind); got != tc.want {
				t.Errorf("Parse(%q) =\n  %+v\nwant\n  %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParse_LongParlayIsTruncated(t *testing.T) {
	leg := "Some Team Moneyline"
	text := strings.Repeat(leg+" | ", 60) + leg

	got := betinfo.Parse(text, domain.BetKindParlay)
	if got.Legs != 61 {
		t.Errorf("Legs = %d, want 61", got.Legs)
	}
	if n := len([]rune(got.Selection)); n != betinfo.MaxSelectionLen+3 {
		t.Errorf("selection length = %d, want %d", n, betinfo.MaxSelectionLen+3)
	}
	if !strings.HasSuffix(got.Selection, "...") {
		t.Errorf("truncated selection should end with an ellipsis: %q", got.Selection[len(got.Selection)-10:])
	}
}

// A composed description parses back into its matchup.
func TestComposeParse_RecoversMatchup(t *testing.T) {
	desc := betinfo.Compose("Celtics +3.5", "Spread", "Celtics at Knicks")
	got := betinfo.Parse(desc, domain.BetKindStraight)
	if got.Matchup != "Celtics at Knicks" {
		t.Errorf("Matchup = %q, want %q", got.Matchup, "Celtics at Knicks")
	}
	if got.LowConfidence {
		t.Error("well-formed description should not be low confidence")
	}
}
