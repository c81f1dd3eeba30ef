package mapping

import (
	"fmt"
	"strings"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Status vocabularies, keyed by the upper-cased raw value.
var statusTables = map[domain.Source]map[string]domain.BetStatus{
	domain.SourceOddsJam: {
		"PENDING":  domain.BetStatusPending,
		"WON":      domain.BetStatusWon,
		"LOST":     domain.BetStatusLost,
		"REFUNDED": domain.BetStatusRefunded,
		"VOID":     domain.BetStatusRefunded,
		"PUSH":     domain.BetStatusRefunded,
	},
	domain.SourcePikkit: {
		"PLACED":       domain.BetStatusPending,
		"PENDING":      domain.BetStatusPending,
		"SETTLED_WIN":  domain.BetStatusWon,
		"SETTLED_LOSS": domain.BetStatusLost,
		"SETTLED_PUSH": domain.BetStatusRefunded,
		"SETTLED_VOID": domain.BetStatusRefunded,
		"CANCELLED":    domain.BetStatusRefunded,
		"VOIDED":       domain.BetStatusRefunded,
		"PUSHED":       domain.BetStatusRefunded,
		"REFUNDED":     domain.BetStatusRefunded,
	},
}

// NormalizeStatus maps a source status string onto the canonical vocabulary.
// Matching ignores case and surrounding whitespace. An empty value is pending.
// Anything outside the vocabulary returns pending together with an error
// wrapping domain.ErrUnknownStatus.
func NormalizeStatus(src domain.Source, raw string) (domain.BetStatus, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return domain.BetStatusPending, nil
	}
	if st, ok := statusTables[src][s]; ok {
		return st, nil
	}
	return domain.BetStatusPending, fmt.Errorf("%w %q for %s", domain.ErrUnknownStatus, raw, src)
}

// StatusVocabulary returns every status string src is documented to emit.
func StatusVocabulary(src domain.Source) []string {
	out := make([]string, 0, len(statusTables[src]))
	for s := range statusTables[src] {
		out = append(out, s)
	}
	return out
}

// NormalizeKind maps a source bet type onto straight or parlay. Only the
// literal "parlay" is a parlay; OddsJam strategy labels such as positive_ev
// or arbitrage are straight bets.
func NormalizeKind(raw string) domain.BetKind {
	if strings.EqualFold(strings.TrimSpace(raw), string(domain.BetKindParlay)) {
		return domain.BetKindParlay
	}
	return domain.BetKindStraight
}
