package domain

// InventoryItem tracks stock for one product. A reservation moves units from
// available to reserved; quantity_available never goes below zero and the
// sum of the two is conserved.
type InventoryItem struct {
	ProductID         int64 `db:"product_id" json:"product_id"`
	QuantityAvailable int32 `db:"quantity_available" json:"quantity_available"`
	QuantityReserved  int32 `db:"quantity_reserved" json:"quantity_reserved"`
}
