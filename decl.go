package typeid

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Decl is the capability generated code holds for one annotated
// declaration. IDs can only be built from a Decl, and a Decl can only be
// obtained through MustDeclare, which generated code calls with the base
// reserved for the declaration.
type Decl struct {
	name string
	base uint64
}

// MustDeclare registers the base reserved for the declaration called name
// (an import path qualified type name) and returns its Decl. It is meant to
// be called only from files written by typeidgen.
//
// It panics if base is zero or if another declaration in the same binary
// already holds base. The latter happens when packages were generated
// against different counter directories.
func MustDeclare(name string, base uint64) Decl {
	if base == 0 {
		panic(fmt.Sprintf("typeid: %s declared with base 0", name))
	}

	registry.Lock()
	defer registry.Unlock()

	if prev, ok := registry.byBase[base]; ok && prev != name {
		panic(fmt.Sprintf(
			"typeid: base %d declared by both %s and %s; "+
				"regenerate both packages against the same counter directory",
			base, prev, name))
	}

	registry.byBase[base] = name

	return Decl{name: name, base: base}
}

// Name returns the qualified name the declaration was registered under.
func (d Decl) Name() string {
	return d.name
}

// Base returns the reserved base of the declaration.
func (d Decl) Base() uint64 {
	return d.base
}

// ID returns the identity of a non-generic declaration.
func (d Decl) ID() ID {
	d.mustBeDeclared()

	return ID{base: d.base}
}

// Instantiate returns the identity of the generic declaration instantiated
// with type arguments whose identities are args, in declared order.
func (d Decl) Instantiate(args ...ID) ID {
	d.mustBeDeclared()

	if len(args) == 0 {
		return ID{base: d.base}
	}

	return ID{base: d.base, shape: composeShape(d.base, args)}
}

func (d Decl) mustBeDeclared() {
	if d.base == 0 {
		panic("typeid: use of undeclared Decl")
	}
}

// composeShape folds the argument identities, in order, into a 64-bit hash.
// The declaration base and the arity seed the digest. Distinct argument
// tuples collide with probability around 2^-64 per pair. A zero result is
// mapped to 1 so that an instantiation never equals the bare declaration.
func composeShape(base uint64, args []ID) uint64 {
	var word [8]byte

	d := xxhash.New()

	binary.LittleEndian.PutUint64(word[:], base)
	_, _ = d.Write(word[:])
	binary.LittleEndian.PutUint64(word[:], uint64(len(args)))
	_, _ = d.Write(word[:])

	for _, a := range args {
		binary.LittleEndian.PutUint64(word[:], a.base)
		_, _ = d.Write(word[:])
		binary.LittleEndian.PutUint64(word[:], a.shape)
		_, _ = d.Write(word[:])
	}

	shape := d.Sum64()
	if shape == 0 {
		shape = 1
	}

	return shape
}

var registry = struct {
	sync.RWMutex
	byBase map[uint64]string
}{byBase: make(map[uint64]string)}

// Declaration is one registry entry.
type Declaration struct {
	Name string
	Base uint64
}

// Lookup returns the name registered for base.
func Lookup(base uint64) (string, bool) {
	registry.RLock()
	defer registry.RUnlock()

	name, ok := registry.byBase[base]

	return name, ok
}

// Declarations lists every declaration registered in this process, ordered
// by base.
func Declarations() []Declaration {
	registry.RLock()
	defer registry.RUnlock()

	decls := make([]Declaration, 0, len(registry.byBase))
	for base, name := range registry.byBase {
		decls = append(decls, Declaration{Name: name, Base: base})
	}

	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Base < decls[j].Base
	})

	return decls
}
