package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PickupLocations maps a pickup location name to the delivery fee charged for it.
type PickupLocations map[string]decimal.Decimal

// DefaultPickupLocations only charges for frangolandia.
func DefaultPickupLocations() PickupLocations {
	return PickupLocations{
		"frangolandia": decimal.NewFromInt(10),
		"balcao":       decimal.Zero,
		"feira":        decimal.Zero,
	}
}

// ParsePickupLocations reads a table in the form "name:fee,name:fee".
// A name without a fee is free.
func ParsePickupLocations(raw string) (PickupLocations, error) {
	locations := PickupLocations{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, fee, found := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("pickup location without name in %q", entry)
		}
		value := decimal.Zero
		if found {
			parsed, err := decimal.NewFromString(strings.TrimSpace(fee))
			if err != nil {
				return nil, fmt.Errorf("invalid fee for pickup location %s: %w", name, err)
			}
			if parsed.IsNegative() {
				return nil, fmt.Errorf("negative fee for pickup location %s", name)
			}
			value = parsed
		}
		locations[name] = value
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("no pickup locations in %q", raw)
	}
	return locations, nil
}

// Fee returns the delivery fee of a location and whether the location is known.
func (p PickupLocations) Fee(name string) (decimal.Decimal, bool) {
	fee, ok := p[name]
	return fee, ok
}

// Names returns the location names in alphabetical order.
func (p PickupLocations) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
