// Command typeidgen generates typeid identities for annotated types. Add
//
//	//go:generate go run github.com/sarchlab/typeid/typeidgen
//
// to a package and mark types with //typeid:generate.
package main

import "github.com/sarchlab/typeid/typeidgen/cmd"

func main() {
	cmd.Execute()
}
