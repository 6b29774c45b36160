// Package catalog holds the static badge catalog. A Catalog is built once
// at startup and never mutated; share it by pointer.
package catalog

import (
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"

	"journeyrewards/internal/models"
)

// Tier groups badges for display.
type Tier string

const (
	TierStart    Tier = "start"
	TierActivity Tier = "activity"
	TierExpert   Tier = "expert"
	TierMaster   Tier = "master"
	TierRegion   Tier = "region"
	TierCategory Tier = "category"
	TierHidden   Tier = "hidden"
)

// BadgeDefinition describes one badge: identity, display data, unlock
// condition and reward.
type BadgeDefinition struct {
	Name        string
	Description string
	Icon        string
	VisualTheme string
	Tier        Tier
	Difficulty  int
	Hidden      bool
	Condition   Condition
	PointReward int64
}

// Snapshot copies the display data stored on an award row.
func (d *BadgeDefinition) Snapshot() models.BadgeSnapshot {
	return models.BadgeSnapshot{
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		PointReward: d.PointReward,
	}
}

type conditionJSON struct {
	Type     ConditionKind       `json:"type"`
	Value    int                 `json:"value"`
	Category models.PostCategory `json:"category,omitempty"`
}

// MarshalJSON flattens the condition into {type, value, category}.
func (d BadgeDefinition) MarshalJSON() ([]byte, error) {
	cond := conditionJSON{}
	if d.Condition != nil {
		cond.Type = d.Condition.Kind()
		cond.Value = d.Condition.Threshold()
		if c, ok := d.Condition.(CategoryPostCountAtLeast); ok {
			cond.Category = c.Category
		}
	}
	return json.Marshal(struct {
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Icon        string        `json:"icon"`
		VisualTheme string        `json:"visual_theme"`
		Tier        Tier          `json:"tier"`
		Difficulty  int           `json:"difficulty"`
		Hidden      bool          `json:"hidden"`
		Condition   conditionJSON `json:"condition"`
		PointReward int64         `json:"point_reward"`
	}{
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		VisualTheme: d.VisualTheme,
		Tier:        d.Tier,
		Difficulty:  d.Difficulty,
		Hidden:      d.Hidden,
		Condition:   cond,
		PointReward: d.PointReward,
	})
}

// Catalog is an immutable, ordered set of badge definitions.
type Catalog struct {
	badges []BadgeDefinition
	byName map[string]int
}

// New validates and builds a catalog. Iteration order is the argument order.
func New(defs ...BadgeDefinition) (*Catalog, error) {
	c := &Catalog{
		badges: make([]BadgeDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog: badge with empty name")
		}
		if d.Condition == nil {
			return nil, fmt.Errorf("catalog: badge %q has no condition", d.Name)
		}
		if d.Condition.Threshold() < 0 {
			return nil, fmt.Errorf("catalog: badge %q has negative threshold", d.Name)
		}
		if d.PointReward < 0 {
			return nil, fmt.Errorf("catalog: badge %q has negative reward", d.Name)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate badge %q", d.Name)
		}
		c.byName[d.Name] = len(c.badges)
		c.badges = append(c.badges, d)
	}
	return c, nil
}

// MustNew is New for compile-time tables.
func MustNew(defs ...BadgeDefinition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of badges.
func (c *Catalog) Len() int { return len(c.badges) }

// All returns the definitions in catalog order. The slice is a copy.
func (c *Catalog) All() []BadgeDefinition {
	return slices.Clone(c.badges)
}

// Lookup finds a badge by name.
func (c *Catalog) Lookup(name string) (BadgeDefinition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.badges[i], true
}

// Names returns badge names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.badges))
	for i, b := range c.badges {
		names[i] = b.Name
	}
	return names
}

// Visible returns the badges that are not hidden until earned.
func (c *Catalog) Visible() []BadgeDefinition {
	out := make([]BadgeDefinition, 0, len(c.badges))
	for _, b := range c.badges {
		if !b.Hidden {
			out = append(out, b)
		}
	}
	return out
}
