package domain

import "time"

// InventoryCandidate is a read-only snapshot of an inventory lot eligible for a task group
type InventoryCandidate struct {
	ID           string    `json:"id"`
	PalletID     string    `json:"palletId"`
	BatchID      string    `json:"batchId"`
	Product      string    `json:"product"`
	PackingType  string    `json:"packingType"`
	AvailableQty int       `json:"availableQty"`
	Location     string    `json:"location,omitempty"`
	StoredAt     time.Time `json:"storedAt"`
}

// CandidateSelection is a candidate plus the quantity the operator picked from it
type CandidateSelection struct {
	InventoryCandidate
	SelectedQty int `json:"selectedQty"`
}

// Selected is true when any quantity is taken from the lot
func (c CandidateSelection) Selected() bool {
	return c.SelectedQty > 0
}
