package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/retriever"
	testutils "github.com/papercomputeco/docqa/pkg/utils/test"
	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/inmemory"
)

func decodeAnswer(resp *http.Response) composer.Answer {
	GinkgoHelper()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var answer composer.Answer
	Expect(json.Unmarshal(body, &answer)).To(Succeed())
	return answer
}

func postAsk(app *fiber.App, body string) *http.Response {
	GinkgoHelper()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

// stallingSearcher blocks until the request context ends.
type stallingSearcher struct{}

func (stallingSearcher) RetrieveScored(ctx context.Context, _ string, _ int) ([]vector.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stallingSearcher) Collection() string { return "garden_docs" }

var _ = Describe("Server", func() {
	var (
		server    *Server
		embedder  *testutils.MockEmbedder
		driver    *inmemory.Driver
		generator *testutils.MockGenerator
	)

	BeforeEach(func() {
		ctx := context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = inmemory.NewDriver()
		generator = testutils.NewMockGenerator("scripted")

		embedder.Embeddings["How do I install the SDK?"] = []float32{1, 0, 0}
		Expect(driver.Upsert(ctx, "garden_docs", []vector.Record{
			{ID: "install", Embedding: []float32{1, 0, 0}, Text: "npm install @gardenfi/core"},
			{ID: "chains", Embedding: []float32{0, 1, 0}, Text: "Supported chains: Bitcoin, Ethereum"},
		})).To(Succeed())

		generator.Reply = func(p llm.Prompt) string {
			if strings.Contains(p.System, "npm install") {
				return "Run `npm install @gardenfi/core`.\n"
			}
			return "I don't know. See https://docs.garden.finance/"
		}

		r := retriever.New(embedder, driver, retriever.Config{Collection: "garden_docs", MaxAttempts: 1}, logger.Nop())
		c := composer.New(r, generator, composer.Config{K: 1}, logger.Nop())

		var err error
		server, err = NewServer(Config{ListenAddr: ":0"}, Deps{
			Generator: generator,
			Retriever: r,
			Composer:  c,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a composer", func() {
			_, err := NewServer(Config{}, Deps{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("composer is required")))
		})

		It("applies the default request timeout", func() {
			Expect(server.config.RequestTimeout).To(Equal(DefaultRequestTimeout))
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal(`"pong"`))
		})
	})

	Describe("POST /ask", func() {
		It("answers a question with its sources", func() {
			resp := postAsk(server.app, `{"question": "How do I install the SDK?"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			answer := decodeAnswer(resp)
			Expect(answer.Answer).To(Equal("Run `npm install @gardenfi/core`."))
			Expect(answer.Sources).To(Equal([]string{"npm install @gardenfi/core"}))
		})

		It("accepts query as an alias of question", func() {
			answer := decodeAnswer(postAsk(server.app, `{"query": "How do I install the SDK?"}`))
			Expect(answer.Answer).To(ContainSubstring("npm install"))
		})

		It("folds history into the prompt", func() {
			postAsk(server.app, `{"question": "And then?", "history": [{"user": "How do I install the SDK?", "assistant": "Use npm."}]}`)

			Expect(generator.Prompts).To(HaveLen(1))
			Expect(generator.Prompts[0].User).To(Equal("User: How do I install the SDK?\nAssistant: Use npm.\nUser: And then?"))
		})

		It("ignores history that is not a list of turns", func() {
			answer := decodeAnswer(postAsk(server.app, `{"question": "How do I install the SDK?", "history": "none"}`))
			Expect(answer.Answer).To(ContainSubstring("npm install"))
			Expect(generator.Prompts[0].User).To(Equal("How do I install the SDK?"))
		})

		It("reports a missing question with status 200", func() {
			resp := postAsk(server.app, `{"history": []}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			answer := decodeAnswer(resp)
			Expect(answer.Answer).To(Equal("❌ Missing 'question' or 'query' field."))
			Expect(answer.Sources).NotTo(BeNil())
			Expect(answer.Sources).To(BeEmpty())
			Expect(generator.Prompts).To(BeEmpty())
		})

		It("reports an empty question as missing", func() {
			answer := decodeAnswer(postAsk(server.app, `{"question": "", "query": ""}`))
			Expect(answer.Answer).To(Equal("❌ Missing 'question' or 'query' field."))
		})

		It("reports malformed JSON with status 200", func() {
			resp := postAsk(server.app, `{"question": `)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			answer := decodeAnswer(resp)
			Expect(answer.Answer).To(Equal("❌ Invalid JSON request."))
			Expect(answer.Sources).To(BeEmpty())
		})

		It("returns the degraded answer when generation fails", func() {
			generator.Err = llm.ErrGeneration

			answer := decodeAnswer(postAsk(server.app, `{"question": "How do I install the SDK?"}`))
			Expect(answer.Answer).To(HavePrefix("❌ Error: "))
			Expect(answer.Sources).To(BeEmpty())
		})

		It("allows cross origin requests", func() {
			req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "How do I install the SDK?"}`))
			req.Header.Set("Origin", "http://localhost:5173")
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("GET /search", func() {
		It("returns scored results", func() {
			req := httptest.NewRequest(http.MethodGet, "/search?query=How%20do%20I%20install%20the%20SDK%3F&top_k=2", nil)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				Count   int `json:"count"`
				Results []struct {
					Text  string  `json:"text"`
					Score float32 `json:"score"`
				} `json:"results"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].Text).To(Equal("npm install @gardenfi/core"))
			Expect(out.Results[0].Score).To(BeNumerically(">", out.Results[1].Score))
		})

		It("requires a query", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/search", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a non-numeric top_k", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/search?query=x&top_k=many", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("gives up after the request timeout", func() {
			slow, err := NewServer(Config{RequestTimeout: 50 * time.Millisecond}, Deps{
				Retriever: stallingSearcher{},
				Composer:  server.deps.Composer,
				Logger:    logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			start := time.Now()
			resp, err := slow.app.Test(httptest.NewRequest(http.MethodGet, "/search?query=x", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("deadline exceeded"))
		})
	})
})
