package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// ProductVariant is a purchasable size/format of a product with its own price.
type ProductVariant struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	IsDefault bool            `json:"isDefault,omitempty"`
}

// SeasonSet is the jsonb-encoded list of seasons a product is shown in.
type SeasonSet []enums.Season

// Contains reports whether the set includes season.
func (s SeasonSet) Contains(season enums.Season) bool {
	for _, candidate := range s {
		if candidate == season {
			return true
		}
	}
	return false
}

// OrDefault returns the set, or the default season when empty.
func (s SeasonSet) OrDefault() SeasonSet {
	if len(s) == 0 {
		return SeasonSet{enums.DefaultSeason}
	}
	return s
}

// Value marshals SeasonSet into a JSON array.
func (s SeasonSet) Value() (driver.Value, error) {
	for _, season := range s {
		if !season.IsValid() {
			return nil, fmt.Errorf("season set: invalid season %q", season)
		}
	}
	raw, err := json.Marshal([]enums.Season(s.OrDefault()))
	if err != nil {
		return nil, fmt.Errorf("season set: marshal %w", err)
	}
	return string(raw), nil
}

// Scan decodes a JSON array of seasons.
func (s *SeasonSet) Scan(value interface{}) error {
	if value == nil {
		*s = SeasonSet{enums.DefaultSeason}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("season set: unsupported scan type %T", value)
	}

	var decoded []enums.Season
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("season set: unmarshal %w", err)
	}
	*s = SeasonSet(decoded).OrDefault()
	return nil
}
