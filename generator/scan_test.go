package generator

import (
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

func writeFile(fs afero.Fs, path, content string) {
	ExpectWithOffset(1, afero.WriteFile(fs, path, []byte(content), 0o644)).To(Succeed())
}

var _ = Describe("Scan", func() {
	var (
		fs  afero.Fs
		dir string
	)

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		dir = "/proj/one"
		Expect(fs.MkdirAll(dir, 0o755)).To(Succeed())
	})

	scan := func() (*Package, error) {
		return Scan(fs, dir, ScanOptions{})
	}

	It("should find annotated declarations in source order", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), `package one

//typeid:generate
type Uwu struct{}

// Owo has a doc comment too.
//
//typeid:generate
type Owo int

type Skipped struct{}

type (
	//typeid:generate
	Hi struct{}

	NotMe struct{}
)
`)
		writeFile(fs, filepath.Join(dir, "b.go"), `package one

//typeid:generate
type OhLord string
`)

		pkg, err := scan()

		Expect(err).NotTo(HaveOccurred())
		Expect(pkg.Name).To(Equal("one"))
		Expect(pkg.Dir).To(Equal(dir))

		names := []string{}
		for _, d := range pkg.Decls {
			names = append(names, d.Name)
			Expect(d.Generic()).To(BeFalse())
		}
		Expect(names).To(Equal([]string{"Uwu", "Owo", "Hi", "OhLord"}))
		Expect(pkg.Decls[0].Pos.Line).To(Equal(4))
	})

	It("should keep type parameters and their constraints verbatim", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), `package one

import "fmt"

//typeid:generate
type Pair[K comparable, V fmt.Stringer] struct{}

//typeid:generate
type Triple[A, B any, C comparable] struct{}
`)

		pkg, err := scan()

		Expect(err).NotTo(HaveOccurred())
		Expect(pkg.Decls).To(HaveLen(2))
		Expect(pkg.Decls[0].TypeParams).To(Equal([]TypeParam{
			{Name: "K", Constraint: "comparable"},
			{Name: "V", Constraint: "fmt.Stringer"},
		}))
		Expect(pkg.Decls[0].TypeParams[0].Identified).To(BeFalse())
		Expect(pkg.Decls[1].TypeParams).To(Equal([]TypeParam{
			{Name: "A", Constraint: "any"},
			{Name: "B", Constraint: "any"},
			{Name: "C", Constraint: "comparable"},
		}))
	})

	It("should skip tests, the output file and ignored files", func() {
		writeFile(fs, filepath.Join(dir, "a_test.go"), "package one\n\n//typeid:generate\ntype T1 struct{}\n")
		writeFile(fs, filepath.Join(dir, DefaultOutput), "package one\n\n//typeid:generate\ntype T2 struct{}\n")
		writeFile(fs, filepath.Join(dir, "tool.go"), "//go:build ignore\n\npackage main\n\n//typeid:generate\ntype T3 struct{}\n")
		writeFile(fs, filepath.Join(dir, "real.go"), "package one\n\n//typeid:generate\ntype T4 struct{}\n")
		writeFile(fs, filepath.Join(dir, "notes.txt"), "//typeid:generate\n")

		pkg, err := scan()

		Expect(err).NotTo(HaveOccurred())
		Expect(pkg.Decls).To(HaveLen(1))
		Expect(pkg.Decls[0].Name).To(Equal("T4"))
	})

	It("should return no declarations for a package without directives", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), "package one\n\ntype Plain struct{}\n")

		pkg, err := scan()

		Expect(err).NotTo(HaveOccurred())
		Expect(pkg.Decls).To(BeEmpty())
	})

	DescribeTable("unsupported declarations",
		func(src, want string) {
			writeFile(fs, filepath.Join(dir, "a.go"), "package one\n\n"+src)

			_, err := scan()

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrUnsupported)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("unsupported"))
			Expect(err.Error()).To(ContainSubstring(want))
			Expect(err.Error()).To(ContainSubstring("a.go:"))
		},
		Entry("alias", "//typeid:generate\ntype A = int\n", "type alias"),
		Entry("interface", "//typeid:generate\ntype I interface{ M() }\n", "interface type"),
		Entry("pointer", "//typeid:generate\ntype P *int\n", "pointer type"),
		Entry("parenthesised pointer", "//typeid:generate\ntype P (*int)\n", "pointer type"),
		Entry("parenthesised interface", "//typeid:generate\ntype I (interface{ M() })\n", "interface type"),
		Entry("func", "//typeid:generate\nfunc F() {}\n", "not func F"),
		Entry("var", "//typeid:generate\nvar V int\n", "not var"),
		Entry("group", "//typeid:generate\ntype (\n\tA struct{}\n\tB struct{}\n)\n", "type group"),
		Entry("blank type parameter", "//typeid:generate\ntype G[_ any] struct{}\n", "blank type parameter"),
	)

	DescribeTable("build-constrained files",
		func(name, src string) {
			writeFile(fs, filepath.Join(dir, "plain.go"), "package one\n\n//typeid:generate\ntype Plain struct{}\n")
			writeFile(fs, filepath.Join(dir, name), src)

			_, err := scan()

			Expect(errors.Is(err, ErrUnsupported)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Handle is declared in a build-constrained file"))
			Expect(err.Error()).To(ContainSubstring(name + ":"))
		},
		Entry("GOOS suffix", "handle_linux.go", "package one\n\n//typeid:generate\ntype Handle struct{}\n"),
		Entry("GOARCH suffix", "handle_arm64.go", "package one\n\n//typeid:generate\ntype Handle struct{}\n"),
		Entry("GOOS and GOARCH suffix", "handle_darwin_amd64.go", "package one\n\n//typeid:generate\ntype Handle struct{}\n"),
		Entry("go:build line", "handle.go", "//go:build linux || darwin\n\npackage one\n\n//typeid:generate\ntype Handle struct{}\n"),
		Entry("custom tag", "handle.go", "//go:build purego\n\npackage one\n\n//typeid:generate\ntype Handle struct{}\n"),
	)

	It("should scan platform files without annotations", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), "package one\n\n//typeid:generate\ntype Handle struct{ sys handleSys }\n")
		writeFile(fs, filepath.Join(dir, "sys_linux.go"), "package one\n\ntype handleSys struct{ fd int }\n")
		writeFile(fs, filepath.Join(dir, "sys_windows.go"), "package one\n\ntype handleSys struct{ h uintptr }\n")

		pkg, err := scan()

		Expect(err).NotTo(HaveOccurred())
		Expect(pkg.Decls).To(HaveLen(1))
		Expect(pkg.Decls[0].Name).To(Equal("Handle"))
	})

	It("should not treat ordinary underscores in file names as constraints", func() {
		writeFile(fs, filepath.Join(dir, "type_ids.go"), "package one\n\n//typeid:generate\ntype Handle struct{}\n")

		pkg, err := scan()

		Expect(err).NotTo(HaveOccurred())
		Expect(pkg.Decls).To(HaveLen(1))
	})

	It("should report a type annotated in more than one file", func() {
		writeFile(fs, filepath.Join(dir, "handle_linux.go"), "package one\n\n//typeid:generate\ntype Handle struct{ fd int }\n")
		writeFile(fs, filepath.Join(dir, "handle_windows.go"), "package one\n\n//typeid:generate\ntype Handle struct{ h uintptr }\n")

		_, err := scan()

		Expect(errors.Is(err, ErrUnsupported)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("Handle is annotated more than once; first at /proj/one/handle_linux.go:4:6"))
		Expect(err.Error()).To(ContainSubstring("build-constrained file"))
	})

	It("should report every problem in the package", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), `package one

//typeid:generate
type A = int

//typeid:generate
type I interface{}
`)
		writeFile(fs, filepath.Join(dir, "b.go"), "package one\n\n//typeid:generate\ntype P *int\n")

		_, err := scan()

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("3 errors occurred"))
	})

	It("should reject a hand-written TypeIdentity method", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), `package one

import "github.com/sarchlab/typeid"

//typeid:generate
type Forged struct{}

func (Forged) TypeIdentity() typeid.ID { return typeid.ID{} }
`)

		_, err := scan()

		Expect(err).To(MatchError(ContainSubstring("Forged already declares TypeIdentity")))
	})

	It("should reject mixed package names", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), "package one\n")
		writeFile(fs, filepath.Join(dir, "b.go"), "package two\n")

		_, err := scan()

		Expect(err).To(MatchError(ContainSubstring("package two does not match package one")))
	})

	It("should report syntax errors", func() {
		writeFile(fs, filepath.Join(dir, "a.go"), "package one\n\ntype {\n")

		_, err := scan()

		Expect(err).To(MatchError(ContainSubstring("parse")))
	})

	It("should fail for a missing directory", func() {
		_, err := Scan(fs, "/nowhere", ScanOptions{})

		Expect(err).To(HaveOccurred())
	})

	Context("in strict mode", func() {
		strictScan := func() (*Package, error) {
			return Scan(fs, dir, ScanOptions{Strict: true})
		}

		It("should accept constraints that mention typeid.Identified", func() {
			writeFile(fs, filepath.Join(dir, "a.go"), `package one

import (
	"fmt"

	tid "github.com/sarchlab/typeid"
)

//typeid:generate
type Box[T tid.Identified] struct{}

//typeid:generate
type Show[T interface {
	tid.Identified
	fmt.Stringer
}] struct{}
`)

			pkg, err := strictScan()

			Expect(err).NotTo(HaveOccurred())
			Expect(pkg.Decls).To(HaveLen(2))
			Expect(pkg.Decls[0].TypeParams[0].Identified).To(BeTrue())
			Expect(pkg.Decls[1].TypeParams[0].Identified).To(BeTrue())
		})

		It("should reject other constraints", func() {
			writeFile(fs, filepath.Join(dir, "a.go"), `package one

//typeid:generate
type Box[T any] struct{}
`)

			_, err := strictScan()

			Expect(err).To(MatchError(ContainSubstring(
				"type parameter T of Box must be constrained by typeid.Identified")))
		})
	})
})
