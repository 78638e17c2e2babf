package generator

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/build"
	"go/build/constraint"
	"go/parser"
	"go/printer"
	"go/token"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// TypeIDImportPath is the import path of the runtime package.
const TypeIDImportPath = "github.com/sarchlab/typeid"

// ScanOptions adjusts Scan.
type ScanOptions struct {
	// Output is the generated file name, skipped while scanning.
	Output string

	// Strict requires every type parameter constraint of an annotated
	// declaration to mention typeid.Identified.
	Strict bool
}

// Scan parses the Go files of the package in dir and returns the annotated
// declarations in source order. All problems in the package are reported
// together.
func Scan(fs afero.Fs, dir string, opts ScanOptions) (*Package, error) {
	if opts.Output == "" {
		opts.Output = DefaultOutput
	}

	files, err := packageFiles(fs, dir, opts.Output)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	pkg := &Package{Dir: dir}

	var (
		result   *multierror.Error
		parsed   []*ast.File
		declared = make(map[string]bool)
		first    = make(map[string]token.Position)
	)

	for _, path := range files {
		src, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("parse %s: %w", path, err))
			continue
		}

		if isIgnored(file) {
			continue
		}

		if pkg.Name == "" {
			pkg.Name = file.Name.Name
		} else if file.Name.Name != pkg.Name {
			result = multierror.Append(result, newIssue(fset, file.Name, path, nil,
				fmt.Sprintf("package %s does not match package %s", file.Name.Name, pkg.Name)))
			continue
		}

		parsed = append(parsed, file)

		decls, issues := scanFile(fset, file, path, opts)
		for _, issue := range issues {
			result = multierror.Append(result, issue)
		}

		constrained := buildConstrained(filepath.Base(path), file)

		for _, d := range decls {
			declared[d.Name] = true

			if prev, ok := first[d.Name]; ok {
				result = multierror.Append(result, &Issue{Pos: d.Pos, Err: ErrUnsupported, Message: fmt.Sprintf(
					"%s is annotated more than once; first at %s", d.Name, prev)})
				continue
			}

			first[d.Name] = d.Pos

			if constrained {
				result = multierror.Append(result, &Issue{Pos: d.Pos, Err: ErrUnsupported, Message: fmt.Sprintf(
					"%s is declared in a build-constrained file; %s is not constrained, "+
						"so move %s to a file that builds on every platform",
					d.Name, opts.Output, d.Name)})
				continue
			}

			pkg.Decls = append(pkg.Decls, d)
		}
	}

	for _, file := range parsed {
		for _, issue := range findExistingMethods(fset, file, declared) {
			result = multierror.Append(result, issue)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	return pkg, nil
}

func packageFiles(fs afero.Fs, dir, output string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read package directory %s: %w", dir, err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == output {
			continue
		}

		files = append(files, filepath.Join(dir, name))
	}

	sort.Strings(files)

	return files, nil
}

func isIgnored(file *ast.File) bool {
	for _, group := range file.Comments {
		if group.End() >= file.Package {
			break
		}

		for _, c := range group.List {
			if strings.TrimSpace(c.Text) == "//go:build ignore" {
				return true
			}
		}
	}

	return false
}

// buildConstrained reports whether the file builds only for some platforms
// or tags, either through a GOOS/GOARCH file name suffix or a build line.
func buildConstrained(name string, file *ast.File) bool {
	for _, group := range file.Comments {
		if group.End() >= file.Package {
			break
		}

		for _, c := range group.List {
			if constraint.IsGoBuild(c.Text) || constraint.IsPlusBuild(c.Text) {
				return true
			}
		}
	}

	// The two contexts share no GOOS or GOARCH, so every known suffix fails
	// at least one of them.
	for _, ctx := range []build.Context{
		{GOOS: "linux", GOARCH: "amd64", Compiler: "gc"},
		{GOOS: "windows", GOARCH: "arm64", Compiler: "gc"},
	} {
		ctx.OpenFile = func(string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("package p\n")), nil
		}

		if ok, err := ctx.MatchFile(".", name); err != nil || !ok {
			return true
		}
	}

	return false
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}

	for _, c := range doc.List {
		text := strings.TrimSpace(c.Text)
		if text == Directive || strings.HasPrefix(text, Directive+" ") {
			return true
		}
	}

	return false
}

func scanFile(fset *token.FileSet, file *ast.File, path string, opts ScanOptions) ([]Decl, []error) {
	var (
		decls  []Decl
		issues []error
	)

	typeidName := importName(file, TypeIDImportPath)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if hasDirective(d.Doc) {
				issues = append(issues, unsupported(fset, d, path,
					"%s applies to type declarations, not func %s", Directive, d.Name.Name))
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				if hasDirective(d.Doc) {
					issues = append(issues, unsupported(fset, d, path,
						"%s applies to type declarations, not %s", Directive, d.Tok))
				}
				continue
			}

			if d.Lparen.IsValid() && hasDirective(d.Doc) {
				issues = append(issues, unsupported(fset, d, path,
					"%s on a type group; annotate each type in the group", Directive))
			}

			for _, spec := range d.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}

				doc := typeSpec.Doc
				if !d.Lparen.IsValid() && doc == nil {
					doc = d.Doc
				}

				if !hasDirective(doc) {
					continue
				}

				decl, declIssues := describe(fset, typeSpec, path, typeidName, opts)
				issues = append(issues, declIssues...)
				if len(declIssues) == 0 {
					decls = append(decls, decl)
				}
			}
		}
	}

	return decls, issues
}

func describe(
	fset *token.FileSet,
	spec *ast.TypeSpec,
	path string,
	typeidName string,
	opts ScanOptions,
) (Decl, []error) {
	name := spec.Name.Name
	decl := Decl{Name: name, Pos: fset.Position(spec.Pos())}

	if spec.Assign.IsValid() {
		return decl, []error{unsupported(fset, spec, path,
			"%s is a type alias; aliases cannot have methods", name)}
	}

	underlying := spec.Type
	for {
		paren, ok := underlying.(*ast.ParenExpr)
		if !ok {
			break
		}

		underlying = paren.X
	}

	switch underlying.(type) {
	case *ast.InterfaceType:
		return decl, []error{unsupported(fset, spec, path,
			"%s is an interface type; interfaces cannot have methods", name)}
	case *ast.StarExpr:
		return decl, []error{unsupported(fset, spec, path,
			"%s is a pointer type; pointer types cannot have methods", name)}
	}

	if name == "_" {
		return decl, []error{unsupported(fset, spec, path, "blank type name")}
	}

	var issues []error

	if spec.TypeParams != nil {
		for _, field := range spec.TypeParams.List {
			constraintText := exprString(fset, field.Type)
			for _, ident := range field.Names {
				if ident.Name == "_" {
					issues = append(issues, unsupported(fset, ident, path,
						"%s has a blank type parameter; name it so its identity can be computed", name))
					continue
				}

				identified := mentionsIdentified(field.Type, typeidName)
				if opts.Strict && !identified {
					issues = append(issues, newIssue(fset, field.Type, path, nil, fmt.Sprintf(
						"type parameter %s of %s must be constrained by typeid.Identified (strict mode)",
						ident.Name, name)))
					continue
				}

				decl.TypeParams = append(decl.TypeParams, TypeParam{
					Name:       ident.Name,
					Constraint: constraintText,
					Identified: identified,
				})
			}
		}
	}

	return decl, issues
}

// findExistingMethods reports hand-written TypeIdentity methods on annotated
// types; the generated one would clash with them.
func findExistingMethods(fset *token.FileSet, file *ast.File, declared map[string]bool) []error {
	var issues []error

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || fn.Name.Name != "TypeIdentity" {
			continue
		}

		recv := receiverTypeName(fn.Recv.List[0].Type)
		if declared[recv] {
			issues = append(issues, newIssue(fset, fn, "", nil, fmt.Sprintf(
				"%s already declares TypeIdentity; remove it or the %s directive", recv, Directive)))
		}
	}

	return issues
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.ParenExpr:
		return receiverTypeName(t.X)
	default:
		return ""
	}
}

// importName returns the name under which file imports path, or "" when it
// does not.
func importName(file *ast.File, path string) string {
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != path {
			continue
		}

		if imp.Name != nil {
			return imp.Name.Name
		}

		return filepath.Base(p)
	}

	return ""
}

func mentionsIdentified(expr ast.Expr, typeidName string) bool {
	found := false

	ast.Inspect(expr, func(n ast.Node) bool {
		if found {
			return false
		}

		switch t := n.(type) {
		case *ast.SelectorExpr:
			if x, ok := t.X.(*ast.Ident); ok && typeidName != "" &&
				x.Name == typeidName && t.Sel.Name == "Identified" {
				found = true
			}
		case *ast.Ident:
			if typeidName == "." && t.Name == "Identified" {
				found = true
			}
		}

		return !found
	})

	return found
}

func exprString(fset *token.FileSet, expr ast.Expr) string {
	if fset == nil || expr == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, expr); err != nil {
		return ""
	}

	return buf.String()
}
