package inventory

import "fmt"

// ItemIdentity identifies what occupies a slot. Quantity and attributes are not
// part of the identity.
type ItemIdentity struct {
	// ItemID is the game item row id. Zero means the slot is empty.
	ItemID uint32 `json:"item_id" yaml:"item"`
	// HQ is the high quality flag.
	HQ bool `json:"hq" yaml:"hq"`
	// Flags carries the remaining identity bits (collectable, crafted, ...).
	Flags uint8 `json:"flags" yaml:"flags"`
}

// IsEmpty reports whether the identity denotes an empty slot.
func (i ItemIdentity) IsEmpty() bool {
	return i.ItemID == 0
}

func (i ItemIdentity) String() string {
	switch {
	case i.HQ && i.Flags != 0:
		return fmt.Sprintf("%d(hq,flags=%d)", i.ItemID, i.Flags)
	case i.HQ:
		return fmt.Sprintf("%d(hq)", i.ItemID)
	case i.Flags != 0:
		return fmt.Sprintf("%d(flags=%d)", i.ItemID, i.Flags)
	}
	return fmt.Sprintf("%d", i.ItemID)
}

// MateriaSlot is one melded materia.
type MateriaSlot struct {
	ID    uint16 `json:"id" yaml:"id"`
	Grade uint8  `json:"grade" yaml:"grade"`
}

// AttributeSet holds the secondary, mutable fields of a stack.
type AttributeSet struct {
	Bound       bool           `json:"bound,omitempty" yaml:"bound"`
	Spiritbond  uint16         `json:"spiritbond,omitempty" yaml:"spiritbond"`
	Condition   uint16         `json:"condition,omitempty" yaml:"condition"`
	Stain       uint8          `json:"stain,omitempty" yaml:"stain"`
	GlamourID   uint32         `json:"glamour_id,omitempty" yaml:"glamour"`
	Materia     [5]MateriaSlot `json:"materia" yaml:"materia"`
	MarketPrice uint32         `json:"market_price,omitempty" yaml:"price"`
}

// StackDescriptor describes the content of one slot.
type StackDescriptor struct {
	Item       ItemIdentity `json:"item"`
	Quantity   uint32       `json:"quantity"`
	Attributes AttributeSet `json:"attributes"`
}

// Empty is the descriptor of an empty slot.
var Empty = StackDescriptor{}

// NewStack builds a normal quality stack without attributes.
func NewStack(itemID, quantity uint32) StackDescriptor {
	return StackDescriptor{Item: ItemIdentity{ItemID: itemID}, Quantity: quantity}
}

// IsEmpty reports whether the slot holds nothing.
func (s StackDescriptor) IsEmpty() bool {
	return s.Item.IsEmpty()
}

// SameItem reports whether both stacks hold the same item identity.
func (s StackDescriptor) SameItem(o StackDescriptor) bool {
	return s.Item == o.Item
}

// Count returns the quantity held, treating empty slots as zero.
func (s StackDescriptor) Count() uint32 {
	if s.IsEmpty() {
		return 0
	}
	return s.Quantity
}

func (s StackDescriptor) String() string {
	if s.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("%sx%d", s.Item, s.Quantity)
}
