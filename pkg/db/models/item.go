package models

import (
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

// Item is a state-owned asset (BMN) available for loan. AvailableQuantity is
// owned by the inventory ledger; nothing else may mutate it.
type Item struct {
	ItemCode          int                  `gorm:"column:item_code;primaryKey;autoIncrement"`
	PropertyNumber    int                  `gorm:"column:property_number;not null;default:0"`
	Name              string               `gorm:"column:name;not null"`
	Brand             string               `gorm:"column:brand"`
	Description       string               `gorm:"column:description"`
	ImageURL          *string              `gorm:"column:image_url"`
	TotalQuantity     int                  `gorm:"column:total_quantity;not null"`
	AvailableQuantity int                  `gorm:"column:available_quantity;not null"`
	Condition         enums.ItemCondition  `gorm:"column:condition;type:text;not null"`
	Visibility        enums.ItemVisibility `gorm:"column:visibility;type:text;not null"`
	Category          enums.ItemCategory   `gorm:"column:category;type:text;not null"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// LoanedOut returns the number of units currently out on loan.
func (i Item) LoanedOut() int {
	return i.TotalQuantity - i.AvailableQuantity
}
