// Package mapping converts raw source export rows into canonical records.
//
// Mapping is pure: it never touches storage. Any row that cannot be mapped
// returns an error wrapping one of the domain row errors.
package mapping

// OddsJamRow is one line of an OddsJam tracker export. Values are raw strings
// exactly as exported.
type OddsJamRow struct {
	Index          int // zero-based position in the export
	Sportsbook     string
	Sport          string
	League         string
	EventName      string
	BetName        string
	MarketName     string
	Odds           string // American
	CLV            string // American closing line
	Stake          string
	BetProfit      string
	Status         string
	BetType        string
	CreatedAt      string
	EventStartDate string
	Tags           string
}

// PikkitRow is one line of a Pikkit export.
type PikkitRow struct {
	BetID       string
	Sportsbook  string
	Type        string
	Status      string
	Odds        string // decimal
	ClosingLine string // decimal
	EV          string
	Amount      string
	Profit      string
	TimePlaced  string
	TimeSettled string
	BetInfo     string
	Tags        string
	Sports      string
	Leagues     string
}
