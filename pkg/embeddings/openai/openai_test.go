package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/embeddings/openai"
)

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type datum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		calls   atomic.Int32
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		calls.Store(0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an api key", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL})
		Expect(err).To(HaveOccurred())
	})

	It("batches inputs and reorders results by index", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/embeddings"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))

			var req embedReq
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(len(req.Input)).To(BeNumerically("<=", 2))

			data := make([]datum, len(req.Input))
			for i, in := range req.Input {
				// reversed on purpose
				data[len(req.Input)-1-i] = datum{Index: i, Embedding: []float32{float32(len(in))}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		}

		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:   server.URL,
			APIKey:    "sk-test",
			BatchSize: 2,
		})
		Expect(err).NotTo(HaveOccurred())

		vectors, err := e.EmbedMany(ctx, []string{"a", "bb", "ccc"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vectors).To(Equal([][]float32{{1}, {2}, {3}}))
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("retries on 503 and then succeeds", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			if calls.Load() == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []datum{{Index: 0, Embedding: []float32{0.5, 0.5}}},
			})
		}

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL, APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.5, 0.5}))
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("does not retry client errors", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL, APIKey: "bad"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(ctx, "hello")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("gives up after the configured retries", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL, APIKey: "k", MaxRetries: 1})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(ctx, "hello")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(calls.Load()).To(Equal(int32(2)))
	})
})
