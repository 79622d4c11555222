package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/dotdir"
	"github.com/papercomputeco/docqa/pkg/logger"
)

type scriptedAsker struct {
	histories [][]composer.Turn
	err       error
}

func (s *scriptedAsker) Ask(_ context.Context, question string, history []composer.Turn) (composer.Answer, error) {
	s.histories = append(s.histories, append([]composer.Turn(nil), history...))
	if s.err != nil {
		return composer.Answer{}, s.err
	}
	if question == "break" {
		return composer.Answer{Answer: "❌ Error: index down", Sources: []string{}}, nil
	}
	return composer.Answer{Answer: "answer to " + question, Sources: []string{"chunk"}}, nil
}

var _ = Describe("chat loop", func() {
	var (
		cmder   *chatCommander
		asker   *scriptedAsker
		session *dotdir.ChatSession
		out     bytes.Buffer
	)

	BeforeEach(func() {
		out.Reset()
		cmder = &chatCommander{
			configDir: GinkgoT().TempDir(),
			raw:       true,
			ddm:       dotdir.NewManager(),
			logger:    logger.Nop(),
		}
		asker = &scriptedAsker{}
		session = &dotdir.ChatSession{Collection: "garden_docs"}
	})

	It("sends earlier turns as history and saves the session", func() {
		in := strings.NewReader("How do I install?\nAnd then?\n")
		Expect(cmder.loop(context.Background(), in, &out, asker, session)).To(Succeed())

		Expect(asker.histories).To(HaveLen(2))
		Expect(asker.histories[0]).To(BeEmpty())
		Expect(asker.histories[1]).To(Equal([]composer.Turn{{User: "How do I install?", Assistant: "answer to How do I install?"}}))
		Expect(out.String()).To(ContainSubstring("answer to And then?"))

		saved, err := cmder.ddm.LoadSession(cmder.configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Collection).To(Equal("garden_docs"))
		Expect(saved.Turns).To(HaveLen(2))
	})

	It("does not remember degraded answers", func() {
		in := strings.NewReader("break\nagain\n")
		Expect(cmder.loop(context.Background(), in, &out, asker, session)).To(Succeed())

		Expect(asker.histories[1]).To(BeEmpty())
		Expect(session.Turns).To(HaveLen(1))
	})

	It("clears the conversation on /reset", func() {
		in := strings.NewReader("first\n/reset\nsecond\n")
		Expect(cmder.loop(context.Background(), in, &out, asker, session)).To(Succeed())

		Expect(asker.histories[1]).To(BeEmpty())
		Expect(out.String()).To(ContainSubstring("Conversation cleared"))
	})

	It("stops at /exit", func() {
		in := strings.NewReader("/exit\nnever asked\n")
		Expect(cmder.loop(context.Background(), in, &out, asker, session)).To(Succeed())
		Expect(asker.histories).To(BeEmpty())
	})

	It("keeps going after a transport error", func() {
		asker.err = errors.New("connection refused")
		in := strings.NewReader("one\ntwo\n")
		Expect(cmder.loop(context.Background(), in, &out, asker, session)).To(Succeed())

		Expect(asker.histories).To(HaveLen(2))
		Expect(out.String()).To(ContainSubstring("connection refused"))
		Expect(session.Turns).To(BeEmpty())
	})

	It("bounds the history sent with each question", func() {
		for i := range maxTurns + 5 {
			session.Turns = append(session.Turns, composer.Turn{User: fmt.Sprint(i)})
		}
		Expect(recent(session.Turns)).To(HaveLen(maxTurns))
		Expect(recent(session.Turns)[0].User).To(Equal("5"))
	})
})
