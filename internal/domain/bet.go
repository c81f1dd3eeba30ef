package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Source identifies the upstream feed a canonical record came from.
type Source string

const (
	SourceOddsJam Source = "oddsjam" // manual tracking, American odds
	SourcePikkit  Source = "pikkit"  // automated tracking, decimal odds
)

// Sources lists every known feed in a stable order.
var Sources = []Source{SourceOddsJam, SourcePikkit}

// ParseSource resolves a case-insensitive source name.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceOddsJam:
		return SourceOddsJam, nil
	case SourcePikkit:
		return SourcePikkit, nil
	}
	return "", ErrUnknownSource
}

// AutoVerified reports whether records from this feed are trusted without an
// operator check.
func (s Source) AutoVerified() bool {
	return s == SourcePikkit
}

// Other returns the opposite feed.
func (s Source) Other() Source {
	if s == SourcePikkit {
		return SourceOddsJam
	}
	return SourcePikkit
}

// BetKind distinguishes single wagers from combined ones.
type BetKind string

const (
	BetKindStraight BetKind = "straight"
	BetKindParlay   BetKind = "parlay"
)

// BetStatus is the canonical outcome vocabulary shared by both feeds.
type BetStatus string

const (
	BetStatusPending  BetStatus = "pending"
	BetStatusWon      BetStatus = "won"
	BetStatusLost     BetStatus = "lost"
	BetStatusRefunded BetStatus = "refunded" // push, void or cancelled
)

// BetStatuses lists the canonical statuses in display order.
var BetStatuses = []BetStatus{BetStatusPending, BetStatusWon, BetStatusLost, BetStatusRefunded}

// IsTerminal returns true once the wager has been graded.
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusWon || s == BetStatusLost || s == BetStatusRefunded
}

// IsSettled returns true for outcomes that count toward win rate.
func (s BetStatus) IsSettled() bool {
	return s == BetStatusWon || s == BetStatusLost
}

// CurrencyPlaces is the precision used for every stored money amount.
const CurrencyPlaces = 2

// RoundCurrency rounds half away from zero to CurrencyPlaces.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// ──────────────────────────────────────────────────────────────────────────────
// Bet, the canonical reconciled record
// ──────────────────────────────────────────────────────────────────────────────

// Bet is one reconciled wager. Exactly one record exists per real wager.
//
// Odds and ClosingLine are always American integers; 0 means unknown.
// TimePlaced and TimeSettled are wall-clock times in the canonical timezone.
type Bet struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	Source        Source          `json:"source"         db:"source"`
	OriginalID    string          `json:"original_id"    db:"original_id"`
	Sportsbook    string          `json:"sportsbook"     db:"sportsbook"`
	Kind          BetKind         `json:"bet_type"       db:"bet_kind"`
	Strategy      string          `json:"strategy"       db:"strategy"`
	Status        BetStatus       `json:"status"         db:"status"`
	Odds          int             `json:"odds"           db:"odds"`
	ClosingLine   int             `json:"closing_line"   db:"closing_line"`
	Stake         decimal.Decimal `json:"stake"          db:"stake"`
	Profit        decimal.Decimal `json:"bet_profit"     db:"profit"`
	TimePlaced    time.Time       `json:"time_placed"    db:"time_placed"`
	TimeSettled   *time.Time      `json:"time_settled"   db:"time_settled"`
	Description   string          `json:"bet_info"       db:"description"`
	Selection     string          `json:"bet_name"       db:"selection"`
	Market        string          `json:"market_name"    db:"market"`
	Matchup       string          `json:"event_name"     db:"matchup"`
	Sport         string          `json:"sport"          db:"sport"`
	League        string          `json:"league"         db:"league"`
	Tags          string          `json:"tags"           db:"tags"`
	Verified      bool            `json:"verified"       db:"verified"`
	LowConfidence bool            `json:"low_confidence" db:"low_confidence"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"     db:"updated_at"`
}

// IsManual returns true when the record needs an operator to verify it.
func (b *Bet) IsManual() bool {
	return !b.Source.AutoVerified()
}

// DayTime returns the timestamp used for daily bucketing: settlement time
// when known, otherwise placement time.
func (b *Bet) DayTime() time.Time {
	if b.TimeSettled != nil && !b.TimeSettled.IsZero() {
		return *b.TimeSettled
	}
	return b.TimePlaced
}

// MatchKey returns the identity used to find this record on re-import.
func (b *Bet) MatchKey() MatchKey {
	if b.Source == SourcePikkit {
		return MatchKey{Source: b.Source, OriginalID: b.OriginalID}
	}
	return MatchKey{
		Source:       b.Source,
		Description:  b.Description,
		PlacedMinute: b.TimePlaced.Truncate(time.Minute),
	}
}

// SameContent reports whether every mutable field of b equals the one in o.
// Identity, verification and bookkeeping timestamps are ignored.
func (b *Bet) SameContent(o *Bet) bool {
	return b.OriginalID == o.OriginalID &&
		b.Sportsbook == o.Sportsbook &&
		b.Kind == o.Kind &&
		b.Strategy == o.Strategy &&
		b.Status == o.Status &&
		b.Odds == o.Odds &&
		b.ClosingLine == o.ClosingLine &&
		b.Stake.Equal(o.Stake) &&
		b.Profit.Equal(o.Profit) &&
		b.TimePlaced.Equal(o.TimePlaced) &&
		sameTime(b.TimeSettled, o.TimeSettled) &&
		b.Description == o.Description &&
		b.Selection == o.Selection &&
		b.Market == o.Market &&
		b.Matchup == o.Matchup &&
		b.Sport == o.Sport &&
		b.League == o.League &&
		b.Tags == o.Tags &&
		b.LowConfidence == o.LowConfidence
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// ──────────────────────────────────────────────────────────────────────────────
// MatchKey
// ──────────────────────────────────────────────────────────────────────────────

// MatchKey is the per-source identity of a wager.
//
// Pikkit records are keyed by their native bet id. OddsJam exports carry no
// stable id, so they are keyed by description and placement minute; lookups
// tolerate ±MatchTolerance on the minute.
type MatchKey struct {
	Source       Source
	OriginalID   string
	Description  string
	PlacedMinute time.Time
}

// MatchTolerance is the placement-time slack allowed on OddsJam lookups.
const MatchTolerance = time.Minute

// String renders the key for logs and error samples.
func (k MatchKey) String() string {
	if k.Source == SourcePikkit {
		return string(k.Source) + ":" + k.OriginalID
	}
	return string(k.Source) + ":" + k.PlacedMinute.Format("2006-01-02T15:04") + ":" + k.Description
}
