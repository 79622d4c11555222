package configcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/docqa/cmd/docqa/config"
	"github.com/papercomputeco/docqa/pkg/config"
)

var _ = Describe("config command", func() {
	var (
		dir string
		out bytes.Buffer
	)

	run := func(args ...string) error {
		out.Reset()
		root := &cobra.Command{Use: "docqa"}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(configcmder.NewConfigCmd())
		root.SetOut(&out)
		root.SetArgs(append([]string{"config"}, append(args, "--config-dir", dir)...))
		return root.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("sets and gets a value", func() {
		Expect(run("set", "retrieval.k", "4")).To(Succeed())
		Expect(run("get", "retrieval.k")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("4"))

		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Retrieval.K).To(Equal(4))
	})

	It("masks credentials", func() {
		Expect(run("set", "llm.groq.api_key", "gsk-secret-1234")).To(Succeed())
		Expect(out.String()).NotTo(ContainSubstring("gsk-secret"))

		Expect(run("list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("1234"))
		Expect(out.String()).NotTo(ContainSubstring("gsk-secret"))

		Expect(run("get", "llm.groq.api_key", "--show-secrets")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("gsk-secret-1234"))
	})

	It("rejects unknown keys", func() {
		Expect(run("get", "proxy.upstream")).To(MatchError(ContainSubstring("unknown config key")))
	})

	Describe("Mask", func() {
		It("keeps the last four characters", func() {
			Expect(configcmder.Mask("abcdefgh")).To(Equal("****efgh"))
			Expect(configcmder.Mask("abc")).To(Equal("***"))
			Expect(configcmder.Mask("")).To(BeEmpty())
		})
	})
})
