package enums

import "fmt"

// ItemCategory classifies a state-owned asset.
type ItemCategory string

const (
	ItemCategoryBuilding   ItemCategory = "BUILDING"
	ItemCategoryElectronic ItemCategory = "ELECTRONIC"
	ItemCategoryFurniture  ItemCategory = "FURNITURE"
	ItemCategoryVehicle    ItemCategory = "VEHICLE"
	ItemCategoryOther      ItemCategory = "OTHER"
)

var validItemCategories = []ItemCategory{
	ItemCategoryBuilding,
	ItemCategoryElectronic,
	ItemCategoryFurniture,
	ItemCategoryVehicle,
	ItemCategoryOther,
}

// String implements fmt.Stringer.
func (c ItemCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ItemCategory.
func (c ItemCategory) IsValid() bool {
	for _, candidate := range validItemCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTimeBounded reports whether loans of this category book a time window
// instead of checking out units.
func (c ItemCategory) IsTimeBounded() bool {
	return c == ItemCategoryBuilding
}

// ParseItemCategory converts raw input into an ItemCategory.
func ParseItemCategory(value string) (ItemCategory, error) {
	for _, candidate := range validItemCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item category %q", value)
}
