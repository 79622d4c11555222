package sqlitevec_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docqalogger "github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var (
		logger *slog.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = docqalogger.Nop()
		ctx = context.Background()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Context("with an open driver", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		Describe("EnsureCollection", func() {
			It("should be idempotent for the same dimension", func() {
				Expect(driver.EnsureCollection(ctx, "docs", 4)).To(Succeed())
				Expect(driver.EnsureCollection(ctx, "docs", 4)).To(Succeed())
			})

			It("should reject a different dimension", func() {
				Expect(driver.EnsureCollection(ctx, "docs", 4)).To(Succeed())
				Expect(driver.EnsureCollection(ctx, "docs", 8)).To(MatchError(vector.ErrDimensionMismatch))
			})

			It("should reject an empty name", func() {
				Expect(driver.EnsureCollection(ctx, "", 4)).To(MatchError(vector.ErrInvalidCollection))
			})

			It("should reject zero dimensions", func() {
				Expect(driver.EnsureCollection(ctx, "docs", 0)).NotTo(Succeed())
			})
		})

		Describe("Upsert", func() {
			It("should do nothing when given no records", func() {
				Expect(driver.Upsert(ctx, "docs", []vector.Record{})).To(Succeed())
				Expect(driver.Count(ctx, "docs")).To(Equal(0))
			})

			It("should create the collection from the first record", func() {
				err := driver.Upsert(ctx, "docs", []vector.Record{
					{ID: "a", Embedding: []float32{0.1, 0.2, 0.3, 0.4}, Text: "alpha"},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(driver.Count(ctx, "docs")).To(Equal(1))
			})

			It("should replace a record with the same ID", func() {
				Expect(driver.Upsert(ctx, "docs", []vector.Record{
					{ID: "a", Embedding: []float32{1, 0, 0, 0}, Text: "old"},
				})).To(Succeed())
				Expect(driver.Upsert(ctx, "docs", []vector.Record{
					{ID: "a", Embedding: []float32{0, 1, 0, 0}, Text: "new"},
				})).To(Succeed())

				Expect(driver.Count(ctx, "docs")).To(Equal(1))

				results, err := driver.Search(ctx, "docs", []float32{0, 1, 0, 0}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].Text).To(Equal("new"))
			})

			It("should reject records with the wrong dimension", func() {
				Expect(driver.EnsureCollection(ctx, "docs", 4)).To(Succeed())
				err := driver.Upsert(ctx, "docs", []vector.Record{
					{ID: "a", Embedding: []float32{1, 0}},
				})
				Expect(err).To(MatchError(vector.ErrDimensionMismatch))
			})

			It("should keep collections separate", func() {
				Expect(driver.Upsert(ctx, "one", []vector.Record{
					{ID: "a", Embedding: []float32{1, 0, 0, 0}, Text: "one"},
				})).To(Succeed())
				Expect(driver.Upsert(ctx, "two", []vector.Record{
					{ID: "a", Embedding: []float32{1, 0}, Text: "two"},
				})).To(Succeed())

				Expect(driver.Count(ctx, "one")).To(Equal(1))
				Expect(driver.Count(ctx, "two")).To(Equal(1))
			})
		})

		Describe("IDs and Delete", func() {
			BeforeEach(func() {
				Expect(driver.Upsert(ctx, "docs", []vector.Record{
					{ID: "a", Embedding: []float32{1, 0, 0, 0}, Text: "alpha"},
					{ID: "b", Embedding: []float32{0, 1, 0, 0}, Text: "beta"},
				})).To(Succeed())
			})

			It("should list IDs in insertion order", func() {
				Expect(driver.IDs(ctx, "docs")).To(Equal([]string{"a", "b"}))
				Expect(driver.IDs(ctx, "missing")).To(BeEmpty())
			})

			It("should delete the record and its embedding", func() {
				Expect(driver.Delete(ctx, "docs", []string{"a", "nonexistent"})).To(Succeed())

				Expect(driver.Count(ctx, "docs")).To(Equal(1))
				results, err := driver.Search(ctx, "docs", []float32{1, 0, 0, 0}, 5)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].ID).To(Equal("b"))
			})

			It("should do nothing for no IDs or a missing collection", func() {
				Expect(driver.Delete(ctx, "docs", nil)).To(Succeed())
				Expect(driver.Delete(ctx, "missing", []string{"a"})).To(Succeed())
				Expect(driver.Count(ctx, "docs")).To(Equal(2))
			})
		})

		Describe("Search", func() {
			BeforeEach(func() {
				Expect(driver.Upsert(ctx, "docs", []vector.Record{
					{ID: "x", Embedding: []float32{1, 0, 0, 0}, Text: "x axis", Source: "s", Index: 0},
					{ID: "y", Embedding: []float32{0, 1, 0, 0}, Text: "y axis", Source: "s", Index: 1},
					{ID: "xy", Embedding: []float32{1, 1, 0, 0}, Text: "diagonal", Source: "s", Index: 2},
					{ID: "z", Embedding: []float32{0, 0, 1, 0}, Text: "z axis", Source: "s", Index: 3},
				})).To(Succeed())
			})

			It("should return the closest record first", func() {
				results, err := driver.Search(ctx, "docs", []float32{1, 0.1, 0, 0}, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
				Expect(results[0].ID).To(Equal("x"))
				Expect(results[0].Text).To(Equal("x axis"))
				Expect(results[1].ID).To(Equal("xy"))
			})

			It("should return scores in non-increasing order", func() {
				results, err := driver.Search(ctx, "docs", []float32{0.3, 0.2, 0.1, 0}, 4)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(4))
				for i := 1; i < len(results); i++ {
					Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
				}
			})

			It("should score an identical vector close to 1", func() {
				results, err := driver.Search(ctx, "docs", []float32{0, 0, 1, 0}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(results[0].ID).To(Equal("z"))
				Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.001))
				Expect(results[0].Index).To(Equal(3))
			})

			It("should return fewer results when the collection is small", func() {
				results, err := driver.Search(ctx, "docs", []float32{1, 0, 0, 0}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(4))
			})

			It("should return nothing for k <= 0", func() {
				results, err := driver.Search(ctx, "docs", []float32{1, 0, 0, 0}, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})

			It("should return nothing for a missing collection", func() {
				results, err := driver.Search(ctx, "missing", []float32{1, 0, 0, 0}, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})

			It("should reject a query of the wrong dimension", func() {
				_, err := driver.Search(ctx, "docs", []float32{1, 0}, 3)
				Expect(err).To(MatchError(vector.ErrDimensionMismatch))
			})
		})
	})
})
