package crawler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/crawler"
	"github.com/papercomputeco/docqa/pkg/logger"
)

var _ = Describe("Crawler", func() {
	var server *httptest.Server

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/quickstart.md", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			_, _ = w.Write([]byte("# Quickstart\n\nnpm install @gardenfi/core\n"))
		})
		mux.HandleFunc("/setup.md", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("# Setup\n"))
		})
		mux.HandleFunc("/page.html", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><nav>menu</nav><main><h1>Sessions</h1><p>A session signs orders.</p></main></body></html>`))
		})
		mux.HandleFunc("/missing.md", func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		server.Close()
	})

	It("should fetch pages in configuration order and skip failures", func() {
		c := crawler.New(crawler.Config{
			URLs: []string{
				server.URL + "/quickstart.md",
				server.URL + "/missing.md",
				server.URL + "/setup.md",
			},
			RequestsPerSecond: 1000,
		}, logger.Nop())

		docs, err := c.Crawl(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(2))
		Expect(docs[0].URL).To(Equal(server.URL + "/quickstart.md"))
		Expect(docs[0].Content).To(ContainSubstring("npm install @gardenfi/core"))
		Expect(docs[1].URL).To(Equal(server.URL + "/setup.md"))
	})

	It("should convert html pages to markdown", func() {
		c := crawler.New(crawler.Config{
			URLs:              []string{server.URL + "/page.html"},
			RequestsPerSecond: 1000,
		}, logger.Nop())

		docs, err := c.Crawl(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].Content).To(ContainSubstring("# Sessions"))
		Expect(docs[0].Content).To(ContainSubstring("A session signs orders."))
		Expect(docs[0].Content).NotTo(ContainSubstring("menu"))
	})

	It("should fail when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := crawler.New(crawler.Config{URLs: []string{server.URL + "/setup.md"}}, logger.Nop())
		_, err := c.Crawl(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("should default to the Garden documentation pages", func() {
		Expect(crawler.DefaultURLs).To(HaveLen(16))
		Expect(crawler.DefaultURLs).To(ContainElement("https://docs.garden.finance/developers/sdk/react/quickstart.md"))
	})
})

var _ = Describe("Document file", func() {
	It("should write a banner before every page", func() {
		var buf bytes.Buffer
		Expect(crawler.WriteFile(&buf, []crawler.Document{
			{URL: "https://docs.example.com/a.md", Content: "alpha"},
			{URL: "https://docs.example.com/b.md", Content: "beta"},
		})).To(Succeed())

		Expect(buf.String()).To(Equal(
			"\n\n--- Content from https://docs.example.com/a.md ---\n\nalpha" +
				"\n\n--- Content from https://docs.example.com/b.md ---\n\nbeta"))
	})

	It("should parse a written file back into pages", func() {
		docs := []crawler.Document{
			{URL: "https://docs.example.com/a.md", Content: "# A\n\nalpha\n"},
			{URL: "https://docs.example.com/b.md", Content: "# B\n\nbeta\n"},
		}
		var buf bytes.Buffer
		Expect(crawler.WriteFile(&buf, docs)).To(Succeed())

		Expect(crawler.ParseDocuments(buf.String())).To(Equal(docs))
	})

	It("should treat text without banners as a single document", func() {
		Expect(crawler.ParseDocuments("just text")).To(Equal([]crawler.Document{{Content: "just text"}}))
		Expect(crawler.ParseDocuments("")).To(BeEmpty())
	})
})
