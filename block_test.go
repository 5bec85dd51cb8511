package bstable_test

import (
	"fmt"

	"github.com/bsm/bstable"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("BlockWriter", func() {
	var subject *bstable.BlockWriter

	BeforeEach(func() {
		subject = bstable.NewBlockWriter(4)
	})

	It("should round-trip entries", func() {
		keys := [][]byte{
			[]byte("apple"), []byte("applesauce"), []byte("apply"),
			[]byte("banana"), []byte("bananas"), []byte("cherry"),
		}
		for i, key := range keys {
			subject.Append(key, []byte(fmt.Sprintf("value-%d", i)))
		}

		entries, _ := decodeBlock(subject.Finish())
		Expect(entries).To(HaveLen(len(keys)))
		for i, ent := range entries {
			Expect(ent.Key).To(Equal(keys[i]))
			Expect(ent.Value).To(Equal([]byte(fmt.Sprintf("value-%d", i))))
		}
	})

	It("should maintain restart invariants", func() {
		for i := 0; i < 100; i++ {
			subject.Append(seedKey(i), []byte("v"))
		}

		entries, restarts := decodeBlock(subject.Finish())
		Expect(restarts[0]).To(Equal(uint32(0)))
		Expect(restarts).To(HaveLen(25)) // one per 4 entries

		offsets := make(map[int]bool, len(restarts))
		for i, off := range restarts {
			if i > 0 {
				Expect(off).To(BeNumerically(">", restarts[i-1]))
			}
			offsets[int(off)] = true
		}

		numFull := 0
		for _, ent := range entries {
			if offsets[ent.Offset] {
				Expect(ent.Shared).To(Equal(0))
				numFull++
			}
		}
		Expect(numFull).To(Equal(len(restarts)))
	})

	It("should estimate sizes accurately", func() {
		Expect(subject.SizeEstimate()).To(Equal(8)) // restart 0 + count

		sizes := []int{}
		for i := 0; i < 50; i++ {
			subject.Append(seedKey(i), []byte("value"))
			sizes = append(sizes, subject.SizeEstimate())
		}
		for i := 1; i < len(sizes); i++ {
			Expect(sizes[i]).To(BeNumerically(">", sizes[i-1]))
		}
		Expect(subject.Finish()).To(HaveLen(sizes[len(sizes)-1]))
	})

	It("should be reusable after reset", func() {
		subject.Append([]byte("old"), []byte("old"))
		_ = subject.Finish()
		subject.Reset()

		Expect(subject.Empty()).To(BeTrue())
		subject.Append([]byte("new"), []byte("new"))
		entries, restarts := decodeBlock(subject.Finish())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Key).To(Equal([]byte("new")))
		Expect(restarts).To(Equal([]uint32{0}))
	})

	It("should reject appends to finished blocks", func() {
		subject.Append([]byte("key"), []byte("val"))
		_ = subject.Finish()
		Expect(func() {
			subject.Append([]byte("later"), []byte("val"))
		}).To(Panic())
	})

	It("should report emptiness and entry counts", func() {
		Expect(subject.Empty()).To(BeTrue())
		Expect(subject.NumEntries()).To(Equal(0))

		subject.Append([]byte("key"), []byte("val"))
		Expect(subject.Empty()).To(BeFalse())
		Expect(subject.NumEntries()).To(Equal(1))
	})

	It("should store full keys with a restart interval of 1", func() {
		subject = bstable.NewBlockWriter(1)
		subject.Append([]byte("aaaa"), []byte("1"))
		subject.Append([]byte("aaab"), []byte("2"))
		subject.Append([]byte("aaac"), []byte("3"))

		entries, restarts := decodeBlock(subject.Finish())
		Expect(restarts).To(HaveLen(3))
		for _, ent := range entries {
			Expect(ent.Shared).To(Equal(0))
		}
	})
})
