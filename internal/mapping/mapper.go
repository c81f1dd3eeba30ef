package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/betinfo"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/odds"
)

// Mapper converts typed source rows into canonical bets.
type Mapper struct {
	books *authority.Table
	loc   *time.Location
}

// NewMapper returns a Mapper that canonicalises sportsbook names with books
// and expresses every timestamp in loc.
func NewMapper(books *authority.Table, loc *time.Location) *Mapper {
	return &Mapper{books: books, loc: loc}
}

// Location returns the canonical timezone.
func (m *Mapper) Location() *time.Location { return m.loc }

// OddsJam maps one OddsJam row. The record is unverified.
func (m *Mapper) OddsJam(r OddsJamRow) (*domain.Bet, error) {
	book := m.books.Canonical(r.Sportsbook)
	if book == "" {
		return nil, missing("sportsbook")
	}
	desc := betinfo.Compose(r.BetName, r.MarketName, r.EventName)
	if desc == "" {
		return nil, missing("bet_name")
	}

	status, err := NormalizeStatus(domain.SourceOddsJam, r.Status)
	if err != nil {
		return nil, err
	}
	placed, err := ParseOddsJamTime(r.CreatedAt, m.loc)
	if err != nil {
		return nil, field("created_at", err)
	}
	// The event start is the bucketing date for pending bets too: a wager on
	// next week's game belongs to next week's day.
	var settled *time.Time
	if strings.TrimSpace(r.EventStartDate) != "" {
		t, err := ParseOddsJamTime(r.EventStartDate, m.loc)
		if err != nil {
			return nil, field("event_start_date", err)
		}
		settled = &t
	}

	price, err := parseAmerican(r.Odds)
	if err != nil {
		return nil, field("odds", err)
	}
	closing, err := parseAmerican(r.CLV)
	if err != nil {
		return nil, field("clv", err)
	}
	stake, err := parseMoney(r.Stake)
	if err != nil {
		return nil, field("stake", err)
	}
	profit, err := parseMoney(r.BetProfit)
	if err != nil {
		return nil, field("bet_profit", err)
	}

	return &domain.Bet{
		Source:      domain.SourceOddsJam,
		OriginalID:  strconv.Itoa(r.Index),
		Sportsbook:  book,
		Kind:        NormalizeKind(r.BetType),
		Strategy:    strings.ToLower(strings.TrimSpace(r.BetType)),
		Status:      status,
		Odds:        price,
		ClosingLine: closing,
		Stake:       stake,
		Profit:      profit,
		TimePlaced:  placed,
		TimeSettled: settled,
		Description: desc,
		Selection:   strings.TrimSpace(r.BetName),
		Market:      strings.TrimSpace(r.MarketName),
		Matchup:     strings.TrimSpace(r.EventName),
		Sport:       strings.TrimSpace(r.Sport),
		League:      strings.TrimSpace(r.League),
		Tags:        strings.TrimSpace(r.Tags),
		Verified:    domain.SourceOddsJam.AutoVerified(),
	}, nil
}

// Pikkit maps one Pikkit row. The record is verified on arrival.
func (m *Mapper) Pikkit(r PikkitRow) (*domain.Bet, error) {
	id := strings.TrimSpace(r.BetID)
	if id == "" {
		return nil, missing("bet_id")
	}
	book := m.books.Canonical(r.Sportsbook)
	if book == "" {
		return nil, missing("sportsbook")
	}

	status, err := NormalizeStatus(domain.SourcePikkit, r.Status)
	if err != nil {
		return nil, err
	}
	placed, err := ParsePikkitTime(r.TimePlaced, m.loc)
	if err != nil {
		return nil, field("time_placed", err)
	}
	var settled *time.Time
	if strings.TrimSpace(r.TimeSettled) != "" {
		t, err := ParsePikkitTime(r.TimeSettled, m.loc)
		if err != nil {
			return nil, field("time_settled", err)
		}
		settled = &t
	}

	price, err := parseDecimalOdds(r.Odds)
	if err != nil {
		return nil, field("odds", err)
	}
	closing, err := parseDecimalOdds(r.ClosingLine)
	if err != nil {
		return nil, field("closing_line", err)
	}
	stake, err := parseMoney(r.Amount)
	if err != nil {
		return nil, field("amount", err)
	}
	profit, err := parseMoney(r.Profit)
	if err != nil {
		return nil, field("profit", err)
	}

	kind := NormalizeKind(r.Type)
	desc := strings.TrimSpace(r.BetInfo)
	parsed := betinfo.Parse(desc, kind)

	return &domain.Bet{
		Source:        domain.SourcePikkit,
		OriginalID:    id,
		Sportsbook:    book,
		Kind:          kind,
		Strategy:      string(kind),
		Status:        status,
		Odds:          price,
		ClosingLine:   closing,
		Stake:         stake,
		Profit:        profit,
		TimePlaced:    placed,
		TimeSettled:   settled,
		Description:   desc,
		Selection:     parsed.Selection,
		Market:        parsed.Market,
		Matchup:       parsed.Matchup,
		Sport:         strings.TrimSpace(r.Sports),
		League:        strings.TrimSpace(r.Leagues),
		Tags:          strings.TrimSpace(r.Tags),
		Verified:      domain.SourcePikkit.AutoVerified(),
		LowConfidence: parsed.LowConfidence,
	}, nil
}

// ── field parsing ─────────────────────────────────────────────────────────────

func missing(name string) error {
	return fmt.Errorf("%w: %s", domain.ErrMissingField, name)
}

func field(name string, err error) error {
	return fmt.Errorf("%s: %w", name, err)
}

var numberCleaner = strings.NewReplacer("$", "", ",", "", "−", "-", " ", "")

func cleanNumber(s string) string {
	return numberCleaner.Replace(strings.TrimSpace(s))
}

func parseFloat(raw string) (float64, error) {
	s := cleanNumber(raw)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w %q", domain.ErrInvalidNumber, raw)
	}
	return f, nil
}

// parseAmerican accepts "+150", "-110" and spreadsheet floats like "-110.0".
// Empty means unknown and returns 0.
func parseAmerican(raw string) (int, error) {
	f, err := parseFloat(raw)
	if err != nil {
		return 0, err
	}
	if math.Abs(f) > odds.MaxAmerican {
		return 0, fmt.Errorf("%w %q: out of range", domain.ErrInvalidNumber, raw)
	}
	return int(math.Round(f)), nil
}

// parseDecimalOdds converts a decimal price. Prices at or below 1.0 read as
// unknown; a price that has no representable American equivalent is an error.
func parseDecimalOdds(raw string) (int, error) {
	f, err := parseFloat(raw)
	if err != nil {
		return 0, err
	}
	american := odds.DecimalToAmerican(f)
	if american == 0 && f > 1 {
		return 0, fmt.Errorf("%w %q: out of range", domain.ErrInvalidNumber, raw)
	}
	return american, nil
}

// parseMoney reads a currency amount and rounds it to cents. Empty is zero.
func parseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimPrefix(cleanNumber(raw), "+")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q", domain.ErrInvalidNumber, raw)
	}
	return domain.RoundCurrency(d), nil
}
