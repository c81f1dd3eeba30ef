package authority_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

func TestDefault_Canonical(t *testing.T) {
	tbl := authority.Default()
	cases := map[string]string{
		"Fanduel Sportsbook":    "FanDuel",
		"fanduel":               "FanDuel",
		"Draftkings Sportsbook": "DraftKings",
		"Prophet X":             "ProphetX",
		"ESPNBet":               "ESPN BET",
		"Onyx Odds":             "Onyx",
		"Caesars Sportsbook":    "Caesars",
		" bovada ":              "Bovada",
		"Hard Rock Bet":         "Hard Rock Bet",
	}
	for in, want := range cases {
		if got := tbl.Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefault_AuthorityFor(t *testing.T) {
	tbl := authority.Default()
	cases := map[string]domain.Source{
		"FanDuel":            domain.SourcePikkit,
		"Fanduel Sportsbook": domain.SourcePikkit,
		"Prophet X":          domain.SourcePikkit,
		"Novig":              domain.SourcePikkit,
		"Bovada":             domain.SourceOddsJam,
		"bet105":             domain.SourceOddsJam,
		"Unlisted Book":      domain.SourceOddsJam,
	}
	for in, want := range cases {
		if got := tbl.AuthorityFor(in); got != want {
			t.Errorf("AuthorityFor(%q) = %s, want %s", in, got, want)
		}
	}
}

// Every listed book, and every alias of one, is owned by exactly one feed.
func TestDefault_ExclusiveOwnership(t *testing.T) {
	tbl := authority.Default()
	cfg := authority.DefaultConfig()
	names := append(append([]string{}, cfg.Pikkit...), cfg.OddsJam...)
	for variant := range cfg.Aliases {
		names = append(names, variant)
	}
	for _, n := range names {
		owners := 0
		for _, src := range domain.Sources {
			if tbl.Owns(src, n) {
				owners++
			}
		}
		if owners != 1 {
			t.Errorf("%q owned by %d sources, want 1", n, owners)
		}
	}
}

func TestNew_Rejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  authority.Config
	}{
		{"overlap", authority.Config{Pikkit: []string{"Bovada"}, OddsJam: []string{"bovada"}}},
		{"overlap through alias", authority.Config{
			Pikkit:  []string{"FanDuel"},
			OddsJam: []string{"Fanduel Sportsbook"},
			Aliases: map[string]string{"Fanduel Sportsbook": "FanDuel"},
		}},
		{"alias chain", authority.Config{Aliases: map[string]string{"A": "B", "B": "C"}}},
		{"ambiguous alias", authority.Config{Aliases: map[string]string{"Fanduel": "FanDuel", "FANDUEL": "FD"}}},
		{"unknown default", authority.Config{Default: "action"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := authority.New(tc.cfg)
			if !errors.Is(err, domain.ErrInvalidAuthority) {
				t.Errorf("New() err = %v, want ErrInvalidAuthority", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	yml := `pikkit:
  - FanDuel
  - Hard Rock Bet
oddsjam:
  - Bovada
aliases:
  Hard Rock: Hard Rock Bet
default: pikkit
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	tbl, err := authority.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := tbl.AuthorityFor("Hard Rock"); got != domain.SourcePikkit {
		t.Errorf("AuthorityFor(Hard Rock) = %s, want pikkit", got)
	}
	if got := tbl.AuthorityFor("Somewhere Else"); got != domain.SourcePikkit {
		t.Errorf("default authority = %s, want pikkit", got)
	}
	if got := tbl.Books(domain.SourceOddsJam); len(got) != 1 || got[0] != "Bovada" {
		t.Errorf("Books(oddsjam) = %v, want [Bovada]", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := authority.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
