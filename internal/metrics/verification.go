package metrics

import (
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// SourceCoverage counts verification state for one source.
type SourceCoverage struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Unverified int `json:"unverified"`
}

// VerificationStats summarises how much of the store an operator has checked.
//
// UnverifiedSettled is the operator's work queue: graded manual bets that
// have not been checked yet.
type VerificationStats struct {
	Total             int                              `json:"total"`
	Verified          int                              `json:"verified"`
	Coverage          float64                          `json:"verified_percent"`
	BySource          map[domain.Source]SourceCoverage `json:"by_source"`
	UnverifiedSettled int                              `json:"unverified_settled"`
}

// Verification computes coverage over bets.
func Verification(bets []*domain.Bet) VerificationStats {
	s := VerificationStats{BySource: map[domain.Source]SourceCoverage{}}
	for _, src := range domain.Sources {
		s.BySource[src] = SourceCoverage{}
	}
	for _, b := range bets {
		c := s.BySource[b.Source]
		c.Total++
		s.Total++
		if b.Verified {
			c.Verified++
			s.Verified++
		} else {
			c.Unverified++
			if b.IsManual() && b.Status.IsTerminal() {
				s.UnverifiedSettled++
			}
		}
		s.BySource[b.Source] = c
	}
	if s.Total > 0 {
		s.Coverage = round2(float64(s.Verified) / float64(s.Total) * 100)
	}
	return s
}
