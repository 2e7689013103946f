package snapshot

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"inventory-monitor/core/inventory"
)

// stackSize is the encoded size of a descriptor: identity (6), quantity (4),
// bound/stain (2), spiritbond/condition (4), glamour (4), materia (5*3), price (4).
const stackSize = 6 + 4 + 2 + 4 + 4 + 15 + 4

// Hash returns the structural hash of a descriptor. Empty slots always hash to
// zero regardless of leftover fields.
func Hash(s inventory.StackDescriptor) uint64 {
	if s.IsEmpty() {
		return 0
	}
	var buf [stackSize]byte
	b := buf[:0]
	b = binary.LittleEndian.AppendUint32(b, s.Item.ItemID)
	b = append(b, boolByte(s.Item.HQ), s.Item.Flags)
	b = binary.LittleEndian.AppendUint32(b, s.Quantity)
	a := s.Attributes
	b = append(b, boolByte(a.Bound), a.Stain)
	b = binary.LittleEndian.AppendUint16(b, a.Spiritbond)
	b = binary.LittleEndian.AppendUint16(b, a.Condition)
	b = binary.LittleEndian.AppendUint32(b, a.GlamourID)
	for _, m := range a.Materia {
		b = binary.LittleEndian.AppendUint16(b, m.ID)
		b = append(b, m.Grade)
	}
	b = binary.LittleEndian.AppendUint32(b, a.MarketPrice)
	// A zero hash is reserved for empty slots.
	if h := xxhash.Sum64(b); h != 0 {
		return h
	}
	return 1
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
