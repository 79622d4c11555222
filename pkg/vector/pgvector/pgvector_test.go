package pgvector_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docqalogger "github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/pgvector"
)

var _ = Describe("Driver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should require a connection string", func() {
		_, err := pgvector.NewDriver(ctx, "", docqalogger.Nop())
		Expect(err).To(MatchError(ContainSubstring("connection string is required")))
	})

	Context("against a live database", func() {
		var driver *pgvector.Driver

		BeforeEach(func() {
			dsn := os.Getenv("DOCQA_TEST_POSTGRES_DSN")
			if dsn == "" {
				Skip("DOCQA_TEST_POSTGRES_DSN not set")
			}

			var err error
			driver, err = pgvector.NewDriver(ctx, dsn, docqalogger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("should upsert and search by cosine similarity", func() {
			collection := "search"
			Expect(driver.Upsert(ctx, collection, []vector.Record{
				{ID: "x", Embedding: []float32{1, 0, 0}, Text: "x axis"},
				{ID: "y", Embedding: []float32{0, 1, 0}, Text: "y axis"},
			})).To(Succeed())

			results, err := driver.Search(ctx, collection, []float32{1, 0.1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("x axis"))
		})

		It("should reject a conflicting dimension", func() {
			Expect(driver.EnsureCollection(ctx, "dims", 3)).To(Succeed())
			Expect(driver.EnsureCollection(ctx, "dims", 4)).To(MatchError(vector.ErrDimensionMismatch))
		})
	})
})
