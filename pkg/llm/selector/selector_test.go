package selector_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/provider"
	"github.com/papercomputeco/docqa/pkg/llm/selector"
	"github.com/papercomputeco/docqa/pkg/logger"
	testutils "github.com/papercomputeco/docqa/pkg/utils/test"
)

var _ = Describe("Selector", func() {
	var (
		buf     *bytes.Buffer
		built   []provider.Kind
		failing map[provider.Kind]bool
		sel     *selector.Selector
		ctx     context.Context
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		built = nil
		failing = map[provider.Kind]bool{}
		ctx = context.Background()

		factory := func(_ context.Context, spec provider.Spec) (llm.Generator, error) {
			built = append(built, spec.Kind)
			if failing[spec.Kind] {
				return nil, errors.New("construction failed")
			}
			return testutils.NewMockGenerator(string(spec.Kind)), nil
		}
		sel = selector.New(logger.New(logger.WithWriter(buf), logger.WithDebug(true)), selector.WithFactory(factory))
	})

	It("should pick the first provider with a credential", func() {
		gen, err := sel.Select(ctx, []provider.Spec{
			{Kind: provider.KindOpenRouter},
			{Kind: provider.KindGroq, APIKey: "groq-key"},
			{Kind: provider.KindOpenAI, APIKey: "openai-key"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen.Name()).To(Equal("groq"))
		Expect(built).To(Equal([]provider.Kind{provider.KindGroq}))
	})

	It("should fall back when construction fails", func() {
		failing[provider.KindOpenRouter] = true

		gen, err := sel.Select(ctx, []provider.Spec{
			{Kind: provider.KindOpenRouter, APIKey: "or-key"},
			{Kind: provider.KindGroq, APIKey: "groq-key"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen.Name()).To(Equal("groq"))
		Expect(built).To(Equal([]provider.Kind{provider.KindOpenRouter, provider.KindGroq}))
		Expect(buf.String()).To(ContainSubstring("llm provider failed"))
	})

	It("should return ErrNoProvider when nothing is usable", func() {
		failing[provider.KindGroq] = true

		_, err := sel.Select(ctx, []provider.Spec{
			{Kind: provider.KindOpenRouter},
			{Kind: provider.KindGroq, APIKey: "groq-key"},
		})
		Expect(err).To(MatchError(selector.ErrNoProvider))
	})

	It("should return ErrNoProvider for an empty list", func() {
		_, err := sel.Select(ctx, nil)
		Expect(err).To(MatchError(selector.ErrNoProvider))
	})

	It("should log credential presence without values", func() {
		_, err := sel.Select(ctx, []provider.Spec{
			{Kind: provider.KindOpenRouter, APIKey: "super-secret"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("openrouter=true"))
		Expect(buf.String()).NotTo(ContainSubstring("super-secret"))
	})
})

var _ = Describe("NewGenerator", func() {
	It("should build OpenAI-compatible handles for openrouter", func() {
		gen, err := selector.NewGenerator(context.Background(), provider.Spec{
			Kind:   provider.KindOpenRouter,
			APIKey: "k",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen.Name()).To(Equal("openrouter"))
	})

	It("should reject unknown kinds", func() {
		_, err := selector.NewGenerator(context.Background(), provider.Spec{Kind: "bedrock"})
		Expect(err).To(HaveOccurred())
	})
})
