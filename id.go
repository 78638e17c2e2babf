package typeid

import "fmt"

// ID is the identity of one concrete type. It is comparable and can be used
// as a map key. The zero ID is never assigned to a type.
type ID struct {
	base  uint64
	shape uint64
}

// Base returns the number reserved for the type's declaration.
func (id ID) Base() uint64 {
	return id.base
}

// Shape returns the component derived from the type arguments of a generic
// instantiation. It is zero for non-generic types.
func (id ID) Shape() uint64 {
	return id.shape
}

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool {
	return id.base == 0 && id.shape == 0
}

func (id ID) String() string {
	if id.shape == 0 {
		return fmt.Sprintf("typeid(%d)", id.base)
	}

	return fmt.Sprintf("typeid(%d:%016x)", id.base, id.shape)
}

// GoString includes the declared name when the base is registered in this
// process.
func (id ID) GoString() string {
	name, ok := Lookup(id.base)
	if !ok {
		name = "?"
	}

	return fmt.Sprintf("typeid.ID{%s base=%d shape=%#x}", name, id.base, id.shape)
}
