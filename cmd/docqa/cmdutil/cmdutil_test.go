package cmdutil_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/composer"
)

func newCmd(args ...string) *cobra.Command {
	GinkgoHelper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool(cmdutil.FlagDebug, false, "")
	cmd.Flags().Bool(cmdutil.FlagPretty, false, "")
	cmd.Flags().Bool(cmdutil.FlagJSON, false, "")
	Expect(cmd.Flags().Parse(args)).To(Succeed())
	return cmd
}

var _ = Describe("TeeLogger", func() {
	It("writes only to the console without a log file", func() {
		var console bytes.Buffer
		l, closeFn, err := cmdutil.TeeLogger(newCmd(), &console, "")
		Expect(err).NotTo(HaveOccurred())
		l.Info("listening", "addr", ":8000")

		Expect(closeFn()).To(Succeed())
		Expect(console.String()).To(ContainSubstring("listening"))
	})

	It("mirrors records into a JSON log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "logs", "serve.log")

		var console bytes.Buffer
		l, closeFn, err := cmdutil.TeeLogger(newCmd(), &console, path)
		Expect(err).NotTo(HaveOccurred())
		l.Info("listening", "addr", ":8000")
		Expect(closeFn()).To(Succeed())

		Expect(console.String()).To(ContainSubstring("listening"))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		var record map[string]any
		Expect(json.Unmarshal(bytes.TrimSpace(data), &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("msg", "listening"))
		Expect(record).To(HaveKeyWithValue("addr", ":8000"))
	})

	It("honors the debug flag in the log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "serve.log")

		l, closeFn, err := cmdutil.TeeLogger(newCmd("--debug"), &bytes.Buffer{}, path)
		Expect(err).NotTo(HaveOccurred())
		l.Debug("request", "path", "/ask")
		Expect(closeFn()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"path":"/ask"`))
	})

	It("fails when the log file cannot be opened", func() {
		dir := GinkgoT().TempDir()
		_, _, err := cmdutil.TeeLogger(newCmd(), &bytes.Buffer{}, dir)
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})

var _ = Describe("PrintAnswer", func() {
	answer := composer.Answer{
		Answer:  "Run `npm install @gardenfi/core`.\n",
		Sources: []string{"npm install\n\n@gardenfi/core"},
	}

	It("prints the answer and numbered sources", func() {
		var out bytes.Buffer
		cmdutil.PrintAnswer(&out, answer, true, true)

		Expect(out.String()).To(HavePrefix("Run `npm install @gardenfi/core`.\n"))
		Expect(out.String()).To(ContainSubstring("[1]"))
		Expect(out.String()).To(ContainSubstring("npm install @gardenfi/core"))
	})

	It("omits sources when asked", func() {
		var out bytes.Buffer
		cmdutil.PrintAnswer(&out, answer, false, false)
		Expect(strings.TrimSpace(out.String())).To(Equal("Run `npm install @gardenfi/core`."))
	})
})
