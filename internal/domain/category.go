package domain

// PricingMode controls how a category's nightly price is multiplied.
type PricingMode string

const (
	PerRoom PricingMode = "per_room"
	PerHead PricingMode = "per_head"
)

type AddOn struct {
	Name  string
	Price int64
}

// RoomCategory is one class of inventory as served by the catalog,
// immutable for the lifetime of a session.
type RoomCategory struct {
	ID           string
	DisplayName  string
	UnitPrice    int64
	PricingMode  PricingMode
	MaxOccupancy int
	AddOns       []AddOn
}

// AvailabilitySnapshot is the answer to one availability query. UnitPrice is
// authoritative for the queried date range and may differ from the catalog price.
type AvailabilitySnapshot struct {
	CategoryID     string
	AvailableUnits int
	UnitPrice      int64
}
