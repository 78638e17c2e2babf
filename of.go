package typeid

import (
	"fmt"
	"reflect"
)

// Identified is implemented by types processed by typeidgen. The generated
// implementation is the only supported one; hand-written implementations
// cannot obtain a Decl outside of MustDeclare.
type Identified interface {
	TypeIdentity() ID
}

// Of returns the identity of T.
func Of[T Identified]() ID {
	var zero T

	mustBeDeclaredType(zero, reflect.TypeOf(&zero).Elem())

	return zero.TypeIdentity()
}

// Param returns the identity of a type argument of a generic declaration.
// Generated methods call it for each type parameter in declared order. It
// panics if T was not processed by typeidgen.
func Param[T any]() ID {
	var zero T

	identified, ok := any(zero).(Identified)
	if !ok {
		panic(fmt.Sprintf(
			"typeid: type argument %s does not implement typeid.Identified; "+
				"annotate it with //typeid:generate",
			reflect.TypeOf(&zero).Elem()))
	}

	mustBeDeclaredType(zero, reflect.TypeOf(&zero).Elem())

	return identified.TypeIdentity()
}

// mustBeDeclaredType rejects interface and pointer types, whose zero values
// carry no declared type to ask for an identity.
func mustBeDeclaredType(v any, t reflect.Type) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		panic(fmt.Sprintf(
			"typeid: %s is an interface type; identities belong to declared types, use typeid.Of on a concrete type",
			t))
	}

	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		panic(fmt.Sprintf(
			"typeid: %s is a pointer type; identities belong to the declared type %s",
			rv.Type(), rv.Type().Elem()))
	}
}
