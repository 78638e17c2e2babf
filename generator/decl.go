package generator

import "go/token"

// Directive marks a type declaration for identity generation. It must
// appear on its own line in the declaration's doc comment.
const Directive = "//typeid:generate"

// TypeParam is one type parameter of a generic declaration.
type TypeParam struct {
	Name string

	// Constraint is the constraint's source text, kept verbatim.
	Constraint string

	// Identified reports whether the constraint mentions typeid.Identified.
	// Arguments of unconstrained parameters are only checked when the
	// identity is computed.
	Identified bool
}

// Decl describes one annotated type declaration.
type Decl struct {
	Name       string
	TypeParams []TypeParam
	Pos        token.Position
}

// Generic reports whether the declaration has type parameters.
func (d Decl) Generic() bool {
	return len(d.TypeParams) > 0
}

// Package is the result of scanning one package directory.
type Package struct {
	Name  string
	Dir   string
	Decls []Decl
}
