package chunker_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/chunker"
)

var _ = Describe("chunk file", func() {
	It("writes numbered headers followed by a blank line", func() {
		var buf bytes.Buffer
		err := chunker.WriteFile(&buf, []chunker.Chunk{{Text: "first"}, {Text: "second"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("---Chunk 1---\nfirst\n\n---Chunk 2---\nsecond\n\n"))
	})

	It("round-trips chunks modulo surrounding whitespace", func() {
		original, err := chunker.Split(sampleDoc, 100, 20)
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(chunker.WriteFile(&buf, original)).To(Succeed())

		parsed, err := chunker.ReadFile(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(HaveLen(len(original)))
		for i := range original {
			Expect(parsed[i].Text).To(Equal(strings.TrimSpace(original[i].Text)))
			Expect(parsed[i].Index).To(Equal(i))
		}
	})

	It("keeps blank lines inside a chunk", func() {
		input := "---Chunk 1---\npara one\n\npara two\n\n---Chunk 2---\nlast"
		parsed, err := chunker.ReadFile(strings.NewReader(input))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(HaveLen(2))
		Expect(parsed[0].Text).To(Equal("para one\n\npara two"))
		Expect(parsed[1].Text).To(Equal("last"))
	})

	It("accepts indented headers and drops empty chunks", func() {
		input := "  ---Chunk 1---  \n\n\n---Chunk 2---\nonly this\n"
		parsed, err := chunker.ReadFile(strings.NewReader(input))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(HaveLen(1))
		Expect(parsed[0].Text).To(Equal("only this"))
	})

	It("returns nothing for an empty file", func() {
		parsed, err := chunker.ReadFile(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(BeEmpty())
	})
})
