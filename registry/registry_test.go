package registry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/registry"
)

var _ = Describe("Registry", func() {
	var r *registry.Registry[proto.ConnectionHandle]

	BeforeEach(func() {
		r = registry.New[proto.ConnectionHandle]()
	})

	It("starts empty", func() {
		Expect(r.IsEmpty()).To(BeTrue())
		Expect(r.Len()).To(Equal(0))
	})

	It("tracks insert and remove", func() {
		h := proto.ConnectionHandle{1}
		ch := make(chan proto.InboundEvent, 1)

		r.Insert(h, ch)
		Expect(r.IsEmpty()).To(BeFalse())
		Expect(r.Len()).To(Equal(1))

		r.Remove(h)
		Expect(r.IsEmpty()).To(BeTrue())
	})

	Describe("BroadcastClose", func() {
		It("delivers to buffered channels and skips full ones", func() {
			open := make(chan proto.InboundEvent, 1)
			full := make(chan proto.InboundEvent) // unbuffered, nobody reading

			r.Insert(proto.ConnectionHandle{1}, open)
			r.Insert(proto.ConnectionHandle{2}, full)

			delivered, skipped := r.BroadcastClose(proto.InboundEvent{Closed: true})
			Expect(delivered).To(Equal(1))
			Expect(skipped).To(Equal(1))

			Eventually(open).Should(Receive(HaveField("Closed", BeTrue())))
		})
	})
})
