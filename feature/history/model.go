package history

import (
	"time"

	"inventory-monitor/core/inventory"
)

// TableName is the table change records are stored in.
const TableName = "inventory_changes"

// ChangeRecord is one persisted change.
type ChangeRecord struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID       uint64    `gorm:"index;not null" json:"batch_id"`
	Scope         string    `gorm:"size:64;index;not null" json:"scope"`
	Kind          string    `gorm:"size:32;not null" json:"kind"`
	ItemID        uint32    `gorm:"index;not null" json:"item_id"`
	HQ            bool      `gorm:"column:hq" json:"hq"`
	Flags         uint8     `gorm:"not null;default:0" json:"flags"`
	Quantity      uint32    `json:"quantity"`
	Delta         int64     `json:"delta"`
	FromContainer string    `gorm:"size:32" json:"from_container,omitempty"`
	FromSlot      *int      `json:"from_slot,omitempty"`
	ToContainer   string    `gorm:"size:32" json:"to_container,omitempty"`
	ToSlot        *int      `json:"to_slot,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName implements gorm's tabler.
func (ChangeRecord) TableName() string {
	return TableName
}

// Columns are the columns the model expects to exist.
var Columns = []string{
	"id", "batch_id", "scope", "kind", "item_id", "hq", "flags", "quantity", "delta",
	"from_container", "from_slot", "to_container", "to_slot", "created_at",
}

// NewRecord flattens one change of batch.
func NewRecord(batch inventory.Batch, c inventory.Change) ChangeRecord {
	item := c.Item()
	r := ChangeRecord{
		BatchID:   batch.ID,
		Scope:     batch.Scope.String(),
		Kind:      string(c.Kind),
		ItemID:    item.ItemID,
		HQ:        item.HQ,
		Flags:     item.Flags,
		Quantity:  c.Quantity,
		Delta:     c.Delta,
		CreatedAt: batch.CompletedAt,
	}
	if c.From != nil {
		idx := c.From.Slot.Index
		r.FromContainer = c.From.Slot.Container.String()
		r.FromSlot = &idx
	}
	if c.To != nil {
		idx := c.To.Slot.Index
		r.ToContainer = c.To.Slot.Container.String()
		r.ToSlot = &idx
	}
	return r
}
