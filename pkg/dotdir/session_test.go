package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	Describe("LoadSession", func() {
		It("returns nil when no session file exists", func() {
			session, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(session).To(BeNil())
		})

		It("loads a valid session", func() {
			data := `{"collection":"garden_docs","turns":[{"user":"how do I install?","assistant":"npm install"}]}`
			Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)).To(Succeed())

			session, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Collection).To(Equal("garden_docs"))
			Expect(session.Turns).To(Equal([]composer.Turn{{User: "how do I install?", Assistant: "npm install"}}))
		})

		It("returns error for invalid JSON", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)).To(Succeed())

			session, err := m.LoadSession(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(session).To(BeNil())
		})
	})

	Describe("SaveSession", func() {
		It("returns error for nil session", func() {
			Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
		})

		It("round-trips a session", func() {
			session := &dotdir.ChatSession{
				Collection: "garden_docs",
				Turns: []composer.Turn{
					{User: "What is Garden?", Assistant: "A bridge."},
					{User: "How do I set it up?", Assistant: "Install the SDK."},
				},
			}
			Expect(m.SaveSession(session, tmpDir)).To(Succeed())

			loaded, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(session))
		})
	})

	Describe("ClearSession", func() {
		It("removes the session file", func() {
			Expect(m.SaveSession(&dotdir.ChatSession{Turns: []composer.Turn{}}, tmpDir)).To(Succeed())
			Expect(m.ClearSession(tmpDir)).To(Succeed())

			loaded, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when no session file exists", func() {
			Expect(m.ClearSession(tmpDir)).To(Succeed())
		})
	})
})
