// Package inventory defines the domain model shared by every stage of the
// inventory monitor: stack descriptors, slot addressing, the container catalog,
// raw transitions and semantic changes.
//
// # Stacks
//
// A StackDescriptor is an immutable value describing the content of one slot.
// Two descriptors hold "the same item" when their ItemIdentity matches, no matter
// the quantity or attributes. A descriptor whose ItemID is zero is an empty slot.
//
// # Addressing
//
// A SlotKey addresses one storage position as (scope, container kind, index).
// Scopes are owning entities such as the local character, a retainer or a
// free company; each scope kind owns a fixed set of container kinds listed in
// the Catalog.
//
// # Changes
//
// The snapshot store emits RawTransitions (before/after for one slot). The
// reconcile engine turns a set of transitions into Changes grouped in a Batch.
package inventory
