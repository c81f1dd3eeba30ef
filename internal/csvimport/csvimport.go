// Package csvimport reads source CSV exports into typed rows.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Apsteward8/my-bet-tracker/internal/mapping"
)

var (
	// ErrMissingColumn is returned when an export lacks a required header.
	ErrMissingColumn = errors.New("missing required column")

	// ErrMalformed is returned when the file is not valid CSV.
	ErrMalformed = errors.New("malformed csv")
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// table is a header-indexed view over CSV records.
type table struct {
	index map[string]int
	rows  [][]string
}

func (t *table) get(rec []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func read(r io.Reader, required []string) (*table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csvimport: empty file: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("csvimport: read header: %w: %v", ErrMalformed, err)
	}
	t := &table{index: make(map[string]int, len(headers))}
	for i, h := range headers {
		t.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csvimport: %w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvimport: read record: %w: %v", ErrMalformed, err)
		}
		if blank(rec) {
			continue
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadOddsJam parses an OddsJam tracker export. Row indexes count data rows
// from zero, skipping blank lines.
func ReadOddsJam(r io.Reader) ([]mapping.OddsJamRow, error) {
	t, err := read(r, []string{"sportsbook", "bet_name", "odds", "stake", "status", "created_at"})
	if err != nil {
		return nil, err
	}
	out := make([]mapping.OddsJamRow, len(t.rows))
	for i, rec := range t.rows {
		out[i] = mapping.OddsJamRow{
			Index:          i,
			Sportsbook:     t.get(rec, "sportsbook"),
			Sport:          t.get(rec, "sport"),
			League:         t.get(rec, "league"),
			EventName:      t.get(rec, "event_name"),
			BetName:        t.get(rec, "bet_name"),
			MarketName:     t.get(rec, "market_name"),
			Odds:           t.get(rec, "odds"),
			CLV:            t.get(rec, "clv"),
			Stake:          t.get(rec, "stake"),
			BetProfit:      t.get(rec, "bet_profit"),
			Status:         t.get(rec, "status"),
			BetType:        t.get(rec, "bet_type"),
			CreatedAt:      t.get(rec, "created_at"),
			EventStartDate: t.get(rec, "event_start_date"),
			Tags:           t.get(rec, "tags"),
		}
	}
	return out, nil
}

// ReadPikkit parses a Pikkit export.
func ReadPikkit(r io.Reader) ([]mapping.PikkitRow, error) {
	t, err := read(r, []string{"bet_id", "sportsbook", "status", "odds", "amount", "time_placed"})
	if err != nil {
		return nil, err
	}
	out := make([]mapping.PikkitRow, len(t.rows))
	for i, rec := range t.rows {
		out[i] = mapping.PikkitRow{
			BetID:       t.get(rec, "bet_id"),
			Sportsbook:  t.get(rec, "sportsbook"),
			Type:        t.get(rec, "type"),
			Status:      t.get(rec, "status"),
			Odds:        t.get(rec, "odds"),
			ClosingLine: t.get(rec, "closing_line"),
			EV:          t.get(rec, "ev"),
			Amount:      t.get(rec, "amount"),
			Profit:      t.get(rec, "profit"),
			TimePlaced:  t.get(rec, "time_placed"),
			TimeSettled: t.get(rec, "time_settled"),
			BetInfo:     t.get(rec, "bet_info"),
			Tags:        t.get(rec, "tags"),
			Sports:      t.get(rec, "sports"),
			Leagues:     t.get(rec, "leagues"),
		}
	}
	return out, nil
}
