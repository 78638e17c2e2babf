// Package typeid assigns every annotated type a unique, comparable identity
// without consulting reflect.Type.
//
// Identities are handed out at generation time. A type opts in with a
// directive in its doc comment:
//
//	//typeid:generate
//	type Uwu struct{}
//
// Running typeidgen (usually through go generate) reserves a base number for
// each annotated declaration from a counter persisted in the module's
// .typeid directory and writes typeid_gen.go with a TypeIdentity method for
// each of them. Generic declarations share one base across all of their
// instantiations and derive a shape component from the identities of their
// type arguments, so Wrapper[A] and Wrapper[B] are different identities.
//
// The only query is Of:
//
//	if typeid.Of[Uwu]() != typeid.Of[Owo]() {
//		// always true
//	}
//
// Identities are scoped to one build session. Regenerating a package
// reserves new bases.
package typeid
