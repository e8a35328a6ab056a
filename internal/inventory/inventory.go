package inventory

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Booking rules shared by the validator and the availability engine.
const (
	StandardDuration = 7
	MinExtended      = 8
	MaxDuration      = 14 // also the lookback buffer when listing reservations
	MaxAdvanceDays   = 90
	DefaultFee       = 10
)

var ErrUnknownTier = errors.New("unknown dumpster size")

type Tier string

const (
	Yard20 Tier = "20 Yard"
	Yard30 Tier = "30 Yard"
	Yard40 Tier = "40 Yard"
)

// Tiers in display order.
var Tiers = []Tier{Yard20, Yard30, Yard40}

// Number returns the bare numeric label, "20" for "20 Yard".
func (t Tier) Number() string {
	return strings.TrimSuffix(string(t), " Yard")
}

var folder = cases.Fold()

// ParseTier accepts "20", "20 Yard", "20 yard", "20-yard", "20yd" and similar.
func ParseTier(label string) (Tier, error) {
	s := folder.String(strings.TrimSpace(label))
	s = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	for _, suffix := range []string{"yards", "yard", "yds", "yd"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	for _, t := range Tiers {
		if s == t.Number() {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, label)
}

// AllowedDuration reports whether a rental length is bookable: the standard
// period or an extended one.
func AllowedDuration(days int) bool {
	return days == StandardDuration || (days >= MinExtended && days <= MaxDuration)
}

// Unit is the inventory for one tier.
type Unit struct {
	Tier       Tier   `yaml:"size"`
	Cap        int    `yaml:"cap"`
	CalendarID string `yaml:"calendar_id"`
	Dimensions string `yaml:"dimensions"`
}

// Policy maps tiers to their caps and calendar partitions. It is never mutated after
// construction.
type Policy struct {
	units map[Tier]Unit
}

func NewPolicy(units ...Unit) (*Policy, error) {
	p := &Policy{units: make(map[Tier]Unit, len(units))}
	for _, u := range units {
		t, err := ParseTier(string(u.Tier))
		if err != nil {
			return nil, err
		}
		u.Tier = t
		if u.Cap < 1 {
			return nil, fmt.Errorf("cap for %s must be at least 1, got %d", u.Tier, u.Cap)
		}
		if _, dup := p.units[u.Tier]; dup {
			return nil, fmt.Errorf("duplicate inventory entry for %s", u.Tier)
		}
		p.units[u.Tier] = u
	}
	return p, nil
}

// Lookup resolves a user supplied size label.
func (p *Policy) Lookup(label string) (Unit, error) {
	t, err := ParseTier(label)
	if err != nil {
		return Unit{}, err
	}
	return p.Unit(t)
}

func (p *Policy) Unit(t Tier) (Unit, error) {
	u, ok := p.units[t]
	if !ok || u.CalendarID == "" {
		return Unit{}, fmt.Errorf("%w: %s is not configured", ErrUnknownTier, t)
	}
	return u, nil
}

// Units returns the configured units in display order.
func (p *Policy) Units() []Unit {
	out := make([]Unit, 0, len(p.units))
	for _, t := range Tiers {
		if u, ok := p.units[t]; ok {
			out = append(out, u)
		}
	}
	return out
}

func (p *Policy) TierForCalendar(calendarID string) (Tier, bool) {
	for _, u := range p.units {
		if u.CalendarID == calendarID {
			return u.Tier, true
		}
	}
	return "", false
}

// File is the optional YAML inventory override.
type File struct {
	Units []Unit `yaml:"inventory"`
}

// Defaults from the business: one 20 yard can, two each of the larger sizes.
var (
	DefaultCaps = map[Tier]int{Yard20: 1, Yard30: 2, Yard40: 2}

	DefaultDimensions = map[Tier]string{
		Yard20: `22' x 8' x 4'5"`,
		Yard30: `22' x 8' x 6'`,
		Yard40: `22' x 8' x 8'`,
	}
)

// Load builds a policy from per-tier caps and calendar ids keyed by tier number
// ("20"), then applies the YAML file at path when given.
func Load(caps map[string]int, calendarIDs map[string]string, path string) (*Policy, error) {
	units := make(map[Tier]Unit, len(Tiers))
	for _, t := range Tiers {
		c, ok := caps[t.Number()]
		if !ok {
			c = DefaultCaps[t]
		}
		units[t] = Unit{
			Tier:       t,
			Cap:        c,
			CalendarID: calendarIDs[t.Number()],
			Dimensions: DefaultDimensions[t],
		}
	}

	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, override := range f.Units {
			t, err := ParseTier(string(override.Tier))
			if err != nil {
				return nil, fmt.Errorf("inventory file %s: %w", path, err)
			}
			u := units[t]
			if override.Cap != 0 {
				u.Cap = override.Cap
			}
			if override.CalendarID != "" {
				u.CalendarID = override.CalendarID
			}
			if override.Dimensions != "" {
				u.Dimensions = override.Dimensions
			}
			units[t] = u
		}
	}

	list := make([]Unit, 0, len(units))
	for _, t := range Tiers {
		list = append(list, units[t])
	}
	return NewPolicy(list...)
}

// LoadFile reads an inventory override from YAML.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}
	return &f, nil
}
