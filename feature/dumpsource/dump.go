package dumpsource

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"inventory-monitor/core/inventory"

	"gopkg.in/yaml.v3"
)

// Slot is one occupied slot of a dump.
type Slot struct {
	Slot       int                     `yaml:"slot"`
	Item       uint32                  `yaml:"item"`
	HQ         bool                    `yaml:"hq,omitempty"`
	Flags      uint8                   `yaml:"flags,omitempty"`
	Quantity   uint32                  `yaml:"quantity"`
	Bound      bool                    `yaml:"bound,omitempty"`
	Spiritbond uint16                  `yaml:"spiritbond,omitempty"`
	Condition  uint16                  `yaml:"condition,omitempty"`
	Stain      uint8                   `yaml:"stain,omitempty"`
	Glamour    uint32                  `yaml:"glamour,omitempty"`
	Materia    []inventory.MateriaSlot `yaml:"materia,omitempty"`
	Price      uint32                  `yaml:"price,omitempty"`
}

// Stack converts the slot to a descriptor.
func (s Slot) Stack() inventory.StackDescriptor {
	stack := inventory.StackDescriptor{
		Item:     inventory.ItemIdentity{ItemID: s.Item, HQ: s.HQ, Flags: s.Flags},
		Quantity: s.Quantity,
		Attributes: inventory.AttributeSet{
			Bound:       s.Bound,
			Spiritbond:  s.Spiritbond,
			Condition:   s.Condition,
			Stain:       s.Stain,
			GlamourID:   s.Glamour,
			MarketPrice: s.Price,
		},
	}
	copy(stack.Attributes.Materia[:], s.Materia)
	return stack
}

// document is the on-disk layout.
type document struct {
	Scope      string            `yaml:"scope"`
	Containers map[string][]Slot `yaml:"containers"`
	Order      map[string][]int  `yaml:"order,omitempty"`
}

// Dump is a parsed dump file.
type Dump struct {
	Scope      inventory.ScopeID
	Containers map[inventory.ContainerKind][]inventory.StackDescriptor
	Order      map[inventory.ContainerKind][]int
}

// Kinds returns the container kinds present in the dump, sorted.
func (d *Dump) Kinds() []inventory.ContainerKind {
	out := make([]inventory.ContainerKind, 0, len(d.Containers))
	for kind := range d.Containers {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Parse decodes one dump. Every container is expanded to its catalog slot
// count. Containers that do not belong to the scope, slots out of range and
// slots listed twice are errors.
func Parse(data []byte) (*Dump, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode dump: %w", err)
	}

	scope, err := inventory.ParseScopeID(doc.Scope)
	if err != nil {
		return nil, err
	}

	d := &Dump{
		Scope:      scope,
		Containers: make(map[inventory.ContainerKind][]inventory.StackDescriptor, len(doc.Containers)),
		Order:      make(map[inventory.ContainerKind][]int, len(doc.Order)),
	}
	for name, slots := range doc.Containers {
		kind, err := containerOf(scope, name)
		if err != nil {
			return nil, err
		}
		stacks := make([]inventory.StackDescriptor, kind.SlotCount())
		seen := make(map[int]bool, len(slots))
		for _, s := range slots {
			if s.Slot < 0 || s.Slot >= len(stacks) {
				return nil, fmt.Errorf("%s slot %d out of range [0,%d)", name, s.Slot, len(stacks))
			}
			if seen[s.Slot] {
				return nil, fmt.Errorf("%s slot %d listed twice", name, s.Slot)
			}
			seen[s.Slot] = true
			stacks[s.Slot] = s.Stack()
		}
		d.Containers[kind] = stacks
	}
	for name, order := range doc.Order {
		kind, err := containerOf(scope, name)
		if err != nil {
			return nil, err
		}
		d.Order[kind] = order
	}
	return d, nil
}

func containerOf(scope inventory.ScopeID, name string) (inventory.ContainerKind, error) {
	kind, err := inventory.ParseContainerKind(name)
	if err != nil {
		return 0, err
	}
	if info, _ := inventory.Lookup(kind); info.Scope != scope.Kind {
		return 0, fmt.Errorf("%w: %s does not belong to %s", inventory.ErrUnknownContainer, name, scope.Kind)
	}
	return kind, nil
}

// ParseFile reads and decodes one dump file.
func ParseFile(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Encode writes the occupied slots of containers as a dump document.
func Encode(scope inventory.ScopeID, containers map[inventory.ContainerKind][]inventory.StackDescriptor) ([]byte, error) {
	doc := document{Scope: scope.String(), Containers: make(map[string][]Slot, len(containers))}
	for kind, stacks := range containers {
		slots := []Slot{}
		for i, st := range stacks {
			if st.IsEmpty() {
				continue
			}
			a := st.Attributes
			s := Slot{
				Slot: i, Item: st.Item.ItemID, HQ: st.Item.HQ, Flags: st.Item.Flags, Quantity: st.Quantity,
				Bound: a.Bound, Spiritbond: a.Spiritbond, Condition: a.Condition, Stain: a.Stain,
				Glamour: a.GlamourID, Price: a.MarketPrice,
			}
			for _, m := range a.Materia {
				if m.ID != 0 {
					s.Materia = append(s.Materia, m)
				}
			}
			slots = append(slots, s)
		}
		doc.Containers[kind.String()] = slots
	}
	return yaml.Marshal(doc)
}
