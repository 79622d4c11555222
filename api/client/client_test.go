package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/api/client"
	"github.com/papercomputeco/docqa/pkg/composer"
)

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		c       *client.Client
		lastReq map[string]any
	)

	BeforeEach(func() {
		lastReq = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/ask":
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &lastReq)
				_, _ = w.Write([]byte(`{"answer": "Use npm.", "sources": ["npm install @gardenfi/core"]}`))
			case "/search":
				if r.URL.Query().Get("query") == "" {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"error": "query is required"}`))
					return
				}
				_, _ = w.Write([]byte(`{"query": "install", "collection": "garden_docs", "results": [{"id": "a", "score": 0.9, "index": 0, "text": "npm install"}], "count": 1}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		DeferCleanup(server.Close)

		var err error
		c, err = client.New(server.URL, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a target without scheme or host", func() {
		_, err := client.New("localhost", nil)
		Expect(err).To(HaveOccurred())
	})

	It("posts questions with history", func() {
		answer, err := c.Ask(context.Background(), "And then?", []composer.Turn{{User: "How?", Assistant: "Like this."}})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Answer).To(Equal("Use npm."))
		Expect(answer.Sources).To(Equal([]string{"npm install @gardenfi/core"}))

		Expect(lastReq["question"]).To(Equal("And then?"))
		Expect(lastReq["history"]).To(HaveLen(1))
	})

	It("decodes search results", func() {
		out, err := c.Search(context.Background(), "install", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].Score).To(BeNumerically("~", 0.9, 1e-6))
	})

	It("reports non-200 responses", func() {
		_, err := c.Search(context.Background(), "", 3)
		Expect(err).To(MatchError(ContainSubstring("HTTP 400")))
	})
})
