package indexcmder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	indexcmder "github.com/papercomputeco/docqa/cmd/docqa/index"
	"github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/vector/sqlitevec"
)

var _ = Describe("NewIndexCmd", func() {
	var (
		dir    string
		server *httptest.Server
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Input []string `json:"input"`
			}
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())

			embeddings := make([][]float32, len(req.Input))
			for i := range req.Input {
				embeddings[i] = []float32{float32(i + 1), 0.5, 0.25}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
		}))
		DeferCleanup(server.Close)
	})

	run := func(args ...string) error {
		cmd := indexcmder.NewIndexCmd()
		cmd.Flags().String("config-dir", dir, "")
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("indexes the chunk file idempotently", func() {
		input := filepath.Join(dir, "doc_chunks.txt")
		db := filepath.Join(dir, "docqa.db")
		Expect(os.WriteFile(input, []byte("---Chunk 1---\nnpm install @gardenfi/core\n\n---Chunk 2---\nSupported chains\n\n"), 0o600)).To(Succeed())

		args := []string{
			"--input", input,
			"--vector-store-provider", "sqlite",
			"--vector-store-target", db,
			"--embedding-provider", "ollama",
			"--embedding-target", server.URL,
			"--embedding-dimensions", "3",
		}
		Expect(run(args...)).To(Succeed())
		Expect(run(args...)).To(Succeed())

		driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: db}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		count, err := driver.Count(context.Background(), "garden_docs")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})

	It("fails when the embedding dimension does not match", func() {
		input := filepath.Join(dir, "doc_chunks.txt")
		Expect(os.WriteFile(input, []byte("---Chunk 1---\nhello\n\n"), 0o600)).To(Succeed())

		err := run(
			"--input", input,
			"--vector-store-provider", "memory",
			"--embedding-target", server.URL,
			"--embedding-dimensions", "384",
		)
		Expect(err).To(MatchError(ContainSubstring("dimension")))
	})

	It("fails when the chunk file is missing", func() {
		err := run("--input", filepath.Join(dir, "missing.txt"), "--vector-store-provider", "memory")
		Expect(err).To(MatchError(ContainSubstring("missing.txt")))
	})
})
