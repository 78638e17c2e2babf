package typeid_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/typeid"
)

// The declarations below are written the way typeidgen emits them.

var (
	alphaDecl = typeid.MustDeclare("github.com/sarchlab/typeid_test.alpha", 101)
	betaDecl  = typeid.MustDeclare("github.com/sarchlab/typeid_test.beta", 102)
	boxDecl   = typeid.MustDeclare("github.com/sarchlab/typeid_test.box", 103)
	pairDecl  = typeid.MustDeclare("github.com/sarchlab/typeid_test.pair", 104)
)

type alpha struct{}

func (alpha) TypeIdentity() typeid.ID { return alphaDecl.ID() }

type beta int

func (beta) TypeIdentity() typeid.ID { return betaDecl.ID() }

type box[T any] struct{ v T }

func (box[T]) TypeIdentity() typeid.ID {
	return boxDecl.Instantiate(typeid.Param[T]())
}

type pair[K comparable, V any] struct {
	k K
	v V
}

func (pair[K, V]) TypeIdentity() typeid.ID {
	return pairDecl.Instantiate(typeid.Param[K](), typeid.Param[V]())
}

type notIdentified struct{}

var _ = Describe("ID", func() {
	It("should distinguish non-generic declarations", func() {
		Expect(typeid.Of[alpha]()).NotTo(Equal(typeid.Of[beta]()))
		Expect(typeid.Of[alpha]().Base()).To(Equal(uint64(101)))
		Expect(typeid.Of[alpha]().Shape()).To(BeZero())
	})

	It("should distinguish instantiations of one generic declaration", func() {
		a := typeid.Of[box[alpha]]()
		b := typeid.Of[box[beta]]()

		Expect(a).NotTo(Equal(b))
		Expect(a.Base()).To(Equal(b.Base()))
		Expect(a.Shape()).NotTo(BeZero())
	})

	It("should be deterministic", func() {
		Expect(typeid.Of[box[alpha]]()).To(Equal(typeid.Of[box[alpha]]()))
		Expect(typeid.Of[pair[alpha, box[beta]]]()).
			To(Equal(typeid.Of[pair[alpha, box[beta]]]()))
	})

	It("should be order sensitive", func() {
		Expect(typeid.Of[pair[alpha, beta]]()).
			NotTo(Equal(typeid.Of[pair[beta, alpha]]()))
	})

	It("should distinguish nested instantiations", func() {
		Expect(typeid.Of[box[box[alpha]]]()).
			NotTo(Equal(typeid.Of[box[box[beta]]]()))
		Expect(typeid.Of[box[box[alpha]]]()).
			NotTo(Equal(typeid.Of[box[alpha]]()))
	})

	It("should work as a map key", func() {
		m := map[typeid.ID]string{
			typeid.Of[alpha]():      "alpha",
			typeid.Of[beta]():       "beta",
			typeid.Of[box[alpha]](): "box[alpha]",
		}

		Expect(m).To(HaveLen(3))
		Expect(m[typeid.Of[box[alpha]]()]).To(Equal("box[alpha]"))
	})

	It("should format", func() {
		Expect(typeid.Of[alpha]().String()).To(Equal("typeid(101)"))
		Expect(typeid.Of[box[alpha]]().String()).To(HavePrefix("typeid(103:"))
		Expect(fmt.Sprintf("%#v", typeid.Of[alpha]())).
			To(ContainSubstring("github.com/sarchlab/typeid_test.alpha"))
	})

	It("should never produce the zero ID", func() {
		Expect(typeid.ID{}.IsZero()).To(BeTrue())
		Expect(typeid.Of[alpha]().IsZero()).To(BeFalse())
	})
})

var _ = Describe("Param", func() {
	It("should panic for a type argument that is not identified", func() {
		Expect(func() { typeid.Of[box[notIdentified]]() }).
			To(PanicWith(ContainSubstring("does not implement typeid.Identified")))
	})

	It("should panic for a pointer type argument", func() {
		Expect(func() { typeid.Of[box[*alpha]]() }).
			To(PanicWith(ContainSubstring("pointer type")))
	})
})

var _ = Describe("Of", func() {
	It("should panic for a pointer type", func() {
		Expect(func() { typeid.Of[*alpha]() }).
			To(PanicWith(ContainSubstring("pointer type")))
	})

	It("should panic with a typeid diagnostic for an interface type", func() {
		Expect(func() { typeid.Of[typeid.Identified]() }).
			To(PanicWith(ContainSubstring("typeid: typeid.Identified is an interface type")))
	})
})

var _ = Describe("Decl", func() {
	It("should reject base zero", func() {
		Expect(func() { typeid.MustDeclare("x.Zero", 0) }).To(Panic())
	})

	It("should reject a base declared under another name", func() {
		Expect(func() { typeid.MustDeclare("x.Other", 101) }).
			To(PanicWith(ContainSubstring("declared by both")))
	})

	It("should accept re-declaring the same name and base", func() {
		d := typeid.MustDeclare("github.com/sarchlab/typeid_test.alpha", 101)
		Expect(d.ID()).To(Equal(typeid.Of[alpha]()))
	})

	It("should panic when the zero Decl is used", func() {
		var d typeid.Decl
		Expect(func() { d.ID() }).To(Panic())
		Expect(func() { d.Instantiate(typeid.Of[alpha]()) }).To(Panic())
	})

	It("should expose the registry", func() {
		name, ok := typeid.Lookup(102)
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("github.com/sarchlab/typeid_test.beta"))

		_, ok = typeid.Lookup(99999)
		Expect(ok).To(BeFalse())

		decls := typeid.Declarations()
		Expect(decls).To(ContainElement(typeid.Declaration{
			Name: "github.com/sarchlab/typeid_test.pair", Base: 104,
		}))
		for i := 1; i < len(decls); i++ {
			Expect(decls[i-1].Base).To(BeNumerically("<", decls[i].Base))
		}
	})
})
