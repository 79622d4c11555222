package chunkcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chunkcmder "github.com/papercomputeco/docqa/cmd/docqa/chunk"
	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/crawler"
)

var _ = Describe("chunk command", func() {
	Describe("SplitDocuments", func() {
		It("keeps page provenance and numbers chunks across pages", func() {
			var buf bytes.Buffer
			Expect(crawler.WriteFile(&buf, []crawler.Document{
				{URL: "https://docs.garden.finance/a.md", Content: strings.Repeat("alpha beta ", 20)},
				{URL: "https://docs.garden.finance/b.md", Content: "Install with npm."},
			})).To(Succeed())

			splitter, err := chunker.New(chunker.WithChunkSize(100), chunker.WithChunkOverlap(20))
			Expect(err).NotTo(HaveOccurred())

			chunks := chunkcmder.SplitDocuments(splitter, buf.String())
			Expect(len(chunks)).To(BeNumerically(">", 2))

			for i, c := range chunks {
				Expect(c.Index).To(Equal(i))
			}
			Expect(chunks[0].Source).To(Equal("https://docs.garden.finance/a.md"))
			last := chunks[len(chunks)-1]
			Expect(last.Source).To(Equal("https://docs.garden.finance/b.md"))
			Expect(last.Text).To(Equal("Install with npm."))
		})

		It("returns no chunks for an empty file", func() {
			splitter, err := chunker.New()
			Expect(err).NotTo(HaveOccurred())
			Expect(chunkcmder.SplitDocuments(splitter, "")).To(BeEmpty())
		})
	})

	Describe("NewChunkCmd", func() {
		It("writes the chunk file", func() {
			dir := GinkgoT().TempDir()
			input := filepath.Join(dir, "total_docs.md")
			output := filepath.Join(dir, "doc_chunks.txt")
			Expect(os.WriteFile(input, []byte("\n\n--- Content from https://docs.garden.finance/ ---\n\nGarden docs"), 0o600)).To(Succeed())

			cmd := chunkcmder.NewChunkCmd()
			cmd.Flags().String("config-dir", dir, "")
			cmd.SetArgs([]string{"--input", input, "--output", output})
			Expect(cmd.Execute()).To(Succeed())

			f, err := os.Open(output)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			chunks, err := chunker.ReadFile(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal("Garden docs"))
		})
	})
})
