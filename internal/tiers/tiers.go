// Package tiers loads and queries the administrator-maintained tier ladder.
package tiers

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// Set is an immutable, validated tier ladder ordered by rank.
type Set struct {
	ordered []model.Tier
	byID    map[string]model.Tier
}

type tierFile struct {
	Tiers []tierEntry `yaml:"tiers"`
}

type tierEntry struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Rank             int            `yaml:"rank"`
	MinLifetimeSpend string         `yaml:"min_lifetime_spend"`
	Benefits         map[string]any `yaml:"benefits"`
}

// Load reads a tier ladder from a YAML file.
func Load(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}

	var file tierFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse tiers file: %w", err)
	}

	tiers := make([]model.Tier, 0, len(file.Tiers))
	for _, entry := range file.Tiers {
		threshold, err := decimal.NewFromString(entry.MinLifetimeSpend)
		if err != nil {
			return nil, fmt.Errorf("tier %q: invalid min_lifetime_spend %q: %w", entry.ID, entry.MinLifetimeSpend, err)
		}
		tiers = append(tiers, model.Tier{
			ID:               entry.ID,
			Name:             entry.Name,
			Rank:             entry.Rank,
			MinLifetimeSpend: threshold,
			Benefits:         entry.Benefits,
		})
	}

	return New(tiers)
}

// New validates the ladder: at least one tier, unique ids, strictly
// increasing ranks and non-decreasing thresholds with rank.
func New(tiers []model.Tier) (*Set, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier ladder must contain at least one tier")
	}

	ordered := make([]model.Tier, len(tiers))
	copy(ordered, tiers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	byID := make(map[string]model.Tier, len(ordered))
	for i, tier := range ordered {
		if tier.ID == "" {
			return nil, fmt.Errorf("tier at rank %d has empty id", tier.Rank)
		}
		if _, dup := byID[tier.ID]; dup {
			return nil, fmt.Errorf("duplicate tier id %q", tier.ID)
		}
		byID[tier.ID] = tier

		if i == 0 {
			continue
		}
		prev := ordered[i-1]
		if tier.Rank == prev.Rank {
			return nil, fmt.Errorf("tiers %q and %q share rank %d", prev.ID, tier.ID, tier.Rank)
		}
		if tier.MinLifetimeSpend.LessThan(prev.MinLifetimeSpend) {
			return nil, fmt.Errorf("tier %q threshold decreases below tier %q", tier.ID, prev.ID)
		}
	}

	return &Set{ordered: ordered, byID: byID}, nil
}

// Base returns the tier with the lowest rank, the initial state for a new
// member.
func (s *Set) Base() model.Tier {
	return s.ordered[0]
}

// Highest returns the highest-ranked tier whose threshold the given
// lifetime spend meets. Spend below every threshold yields the base tier.
func (s *Set) Highest(spend decimal.Decimal) model.Tier {
	best := s.ordered[0]
	for _, tier := range s.ordered[1:] {
		if tier.MinLifetimeSpend.LessThanOrEqual(spend) {
			best = tier
		}
	}
	return best
}

// ByID looks up a tier, for validating manual tier changes.
func (s *Set) ByID(id string) (model.Tier, error) {
	tier, ok := s.byID[id]
	if !ok {
		return model.Tier{}, fmt.Errorf("tier %q: %w", id, domainErrors.ErrUnknownTier)
	}
	return tier, nil
}

// All returns the ladder ordered by rank ascending.
func (s *Set) All() []model.Tier {
	out := make([]model.Tier, len(s.ordered))
	copy(out, s.ordered)
	return out
}
