package enums

import "fmt"

// InventoryChangeType describes the allowed values for the `change_type` column
// in inventory_logs.
type InventoryChangeType string

const (
	InventoryChangeSale       InventoryChangeType = "sale"
	InventoryChangeRestock    InventoryChangeType = "restock"
	InventoryChangeAdjustment InventoryChangeType = "adjustment"
	InventoryChangeDamage     InventoryChangeType = "damage"
	InventoryChangeReturn     InventoryChangeType = "return"
)

var validInventoryChangeTypes = []InventoryChangeType{
	InventoryChangeSale,
	InventoryChangeRestock,
	InventoryChangeAdjustment,
	InventoryChangeDamage,
	InventoryChangeReturn,
}

// String implements fmt.Stringer.
func (i InventoryChangeType) String() string {
	return string(i)
}

// IsValid reports whether the value matches the canonical change type enum.
func (i InventoryChangeType) IsValid() bool {
	for _, candidate := range validInventoryChangeTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryChangeType converts the raw string to InventoryChangeType.
func ParseInventoryChangeType(value string) (InventoryChangeType, error) {
	for _, candidate := range validInventoryChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory change type %q", value)
}
