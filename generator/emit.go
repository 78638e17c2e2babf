package generator

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
)

// DefaultOutput is the name of the generated file.
const DefaultOutput = "typeid_gen.go"

//go:embed identityTemplate.txt
var identityTemplate string

var identityTmpl = template.Must(template.New("identity").Parse(identityTemplate))

// File is everything needed to render one generated file.
type File struct {
	Package     string
	ImportPath  string
	Allocations []Allocation
}

type entry struct {
	Var       string
	Qualified string
	Base      uint64
	Receiver  string
	Params    string
}

// Emit renders f as formatted Go source into w.
func Emit(w io.Writer, f File) error {
	src, err := Render(f)
	if err != nil {
		return err
	}

	_, err = w.Write(src)

	return err
}

// Render returns the formatted Go source for f.
func Render(f File) ([]byte, error) {
	if f.Package == "" {
		return nil, fmt.Errorf("render: missing package name")
	}

	used := make(map[string]bool)
	entries := make([]entry, 0, len(f.Allocations))

	for _, a := range f.Allocations {
		entries = append(entries, entry{
			Var:       declVar(a, used),
			Qualified: qualifiedName(f.ImportPath, a.Decl.Name),
			Base:      a.Base,
			Receiver:  receiver(a.Decl),
			Params:    params(a.Decl),
		})
	}

	var buf bytes.Buffer

	err := identityTmpl.Execute(&buf, struct {
		Package string
		Entries []entry
	}{Package: f.Package, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render: format generated source: %w", err)
	}

	return src, nil
}

func qualifiedName(importPath, name string) string {
	if importPath == "" {
		return name
	}

	return importPath + "." + name
}

// declVar names the package-level Decl variable of a declaration. Names
// that differ only in the case of their first letter map to the same
// camel-case form; the base disambiguates them.
func declVar(a Allocation, used map[string]bool) string {
	name := "typeidDecl" + strcase.ToCamel(a.Decl.Name)
	if used[name] {
		name += "_" + strconv.FormatUint(a.Base, 10)
	}

	used[name] = true

	return name
}

func receiver(d Decl) string {
	if !d.Generic() {
		return d.Name
	}

	names := make([]string, len(d.TypeParams))
	for i, p := range d.TypeParams {
		names[i] = p.Name
	}

	return d.Name + "[" + strings.Join(names, ", ") + "]"
}

func params(d Decl) string {
	calls := make([]string, len(d.TypeParams))
	for i, p := range d.TypeParams {
		calls[i] = "typeid.Param[" + p.Name + "]()"
	}

	return strings.Join(calls, ", ")
}
