// Package authority decides which feed is the source of truth for each
// sportsbook and resolves sportsbook name aliases.
//
// A Table is built once, validated, and never modified afterwards. It is safe
// for concurrent use.
package authority

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Config is the declarative form of a Table, as stored in YAML.
type Config struct {
	Pikkit  []string          `yaml:"pikkit"  json:"pikkit"`
	OddsJam []string          `yaml:"oddsjam" json:"oddsjam"`
	Aliases map[string]string `yaml:"aliases" json:"aliases"` // variant → canonical
	Default domain.Source     `yaml:"default" json:"default"` // authority for unlisted books
}

// DefaultConfig reproduces the production authority assignment.
func DefaultConfig() Config {
	return Config{
		Pikkit: []string{
			"BetMGM", "Caesars Sportsbook", "Caesars", "Draftkings Sportsbook", "DraftKings",
			"ESPN BET", "ESPNBet", "Fanatics", "Fanduel Sportsbook", "FanDuel", "Fliff",
			"PrizePicks", "Underdog Fantasy", "Novig", "Onyx", "Onyx Odds", "ProphetX",
			"Prophet X", "Rebet", "Thrillzz",
		},
		OddsJam: []string{
			"BetNow", "BetOnline", "BetUS", "BookMaker", "Bovada", "Everygame",
			"MyBookie", "Sportzino", "Xbet", "bet105", "betwhale",
		},
		Aliases: map[string]string{
			"Prophet X":             "ProphetX",
			"Draftkings Sportsbook": "DraftKings",
			"Fanduel Sportsbook":    "FanDuel",
			"ESPNBet":               "ESPN BET",
			"Onyx Odds":             "Onyx",
			"Caesars Sportsbook":    "Caesars",
		},
		Default: domain.SourceOddsJam,
	}
}

// Table is the immutable authority lookup.
type Table struct {
	aliases  map[string]string        // lower(variant) → canonical display name
	display  map[string]string        // lower(canonical) → canonical display name
	owners   map[string]domain.Source // lower(canonical) → authority
	fallback domain.Source
}

// Default returns the table built from DefaultConfig.
func Default() *Table {
	t, err := New(DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("authority: default config is invalid: %v", err))
	}
	return t
}

// Load reads a YAML Config from path and builds a Table from it.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authority.Load: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("authority.Load: parse %s: %w", path, err)
	}
	return New(cfg)
}

// New validates cfg and builds a Table. All problems are reported together,
// each wrapping domain.ErrInvalidAuthority.
func New(cfg Config) (*Table, error) {
	t := &Table{
		aliases:  make(map[string]string, len(cfg.Aliases)),
		display:  make(map[string]string),
		owners:   make(map[string]domain.Source),
		fallback: cfg.Default,
	}
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidAuthority}, args...)...))
	}

	if t.fallback == "" {
		t.fallback = domain.SourceOddsJam
	}
	if _, err := domain.ParseSource(string(t.fallback)); err != nil {
		bad("default source %q is not a known feed", cfg.Default)
	}

	canonicals := make(map[string]bool, len(cfg.Aliases))
	for _, target := range cfg.Aliases {
		canonicals[key(target)] = true
	}
	for variant, target := range cfg.Aliases {
		k := key(variant)
		switch {
		case k == "" || key(target) == "":
			bad("alias %q → %q has an empty side", variant, target)
		case canonicals[k] && k != key(target):
			bad("alias %q is itself a canonical name", variant)
		case t.aliases[k] != "" && key(t.aliases[k]) != key(target):
			bad("alias %q maps to both %q and %q", variant, t.aliases[k], target)
		default:
			t.aliases[k] = strings.TrimSpace(target)
		}
	}

	assign := func(books []string, src domain.Source) {
		for _, b := range books {
			name := t.Canonical(b)
			k := key(name)
			if k == "" {
				bad("empty sportsbook name in %s list", src)
				continue
			}
			if owner, ok := t.owners[k]; ok && owner != src {
				bad("sportsbook %q is listed for both %s and %s", name, owner, src)
				continue
			}
			t.owners[k] = src
			t.display[k] = name
		}
	}
	assign(cfg.Pikkit, domain.SourcePikkit)
	assign(cfg.OddsJam, domain.SourceOddsJam)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Canonical resolves aliases and returns the registered spelling of a book.
// Unknown books come back trimmed but otherwise untouched.
func (t *Table) Canonical(name string) string {
	k := key(name)
	if target, ok := t.aliases[k]; ok {
		k = key(target)
		if d, ok := t.display[k]; ok {
			return d
		}
		return target
	}
	if d, ok := t.display[k]; ok {
		return d
	}
	return strings.TrimSpace(name)
}

// AuthorityFor returns the feed that owns name. Unlisted books belong to the
// configured default feed.
func (t *Table) AuthorityFor(name string) domain.Source {
	if src, ok := t.owners[key(t.Canonical(name))]; ok {
		return src
	}
	return t.fallback
}

// Owns reports whether src is the authority for name.
func (t *Table) Owns(src domain.Source, name string) bool {
	return t.AuthorityFor(name) == src
}

// Books returns the canonical books owned by src, sorted.
func (t *Table) Books(src domain.Source) []string {
	var out []string
	for k, owner := range t.owners {
		if owner == src {
			out = append(out, t.display[k])
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the effective configuration after alias resolution.
func (t *Table) Snapshot() Config {
	aliases := make(map[string]string, len(t.aliases))
	for variant, target := range t.aliases {
		aliases[variant] = target
	}
	return Config{
		Pikkit:  t.Books(domain.SourcePikkit),
		OddsJam: t.Books(domain.SourceOddsJam),
		Aliases: aliases,
		Default: t.fallback,
	}
}
