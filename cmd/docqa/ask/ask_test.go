package askcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	askcmder "github.com/papercomputeco/docqa/cmd/docqa/ask"
	"github.com/papercomputeco/docqa/pkg/composer"
)

var _ = Describe("ask command", func() {
	var (
		server   *httptest.Server
		received map[string]any
	)

	BeforeEach(func() {
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/ask"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_ = json.NewEncoder(w).Encode(composer.Answer{
				Answer:  "Run `npm install @gardenfi/core`.",
				Sources: []string{"npm install @gardenfi/core"},
			})
		}))
		DeferCleanup(server.Close)
	})

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := askcmder.NewAskCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	It("asks the remote server and prints the answer with sources", func() {
		out, err := run("How", "do", "I", "install?", "--api-target", server.URL, "--raw")
		Expect(err).NotTo(HaveOccurred())

		Expect(received).To(HaveKeyWithValue("question", "How do I install?"))
		Expect(out).To(ContainSubstring("Run `npm install @gardenfi/core`."))
		Expect(out).To(ContainSubstring("npm install @gardenfi/core"))
	})

	It("omits sources with --no-sources", func() {
		out, err := run("install?", "--api-target", server.URL, "--raw", "--no-sources")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Run `npm install @gardenfi/core`."))
		Expect(out).NotTo(ContainSubstring("[1]"))
	})

	It("rejects a blank question", func() {
		_, err := run("  ", "--api-target", server.URL)
		Expect(err).To(MatchError("question must not be empty"))
	})

	It("requires a question", func() {
		_, err := run()
		Expect(err).To(HaveOccurred())
	})
})
