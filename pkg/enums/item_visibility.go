package enums

import "fmt"

// ItemVisibility controls whether borrowers can see and request an item.
type ItemVisibility string

const (
	ItemVisibilityVisible ItemVisibility = "VISIBLE"
	ItemVisibilityHidden  ItemVisibility = "HIDDEN"
)

var validItemVisibilities = []ItemVisibility{
	ItemVisibilityVisible,
	ItemVisibilityHidden,
}

// String implements fmt.Stringer.
func (v ItemVisibility) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ItemVisibility.
func (v ItemVisibility) IsValid() bool {
	for _, candidate := range validItemVisibilities {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseItemVisibility converts raw input into an ItemVisibility.
func ParseItemVisibility(value string) (ItemVisibility, error) {
	for _, candidate := range validItemVisibilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item visibility %q", value)
}
