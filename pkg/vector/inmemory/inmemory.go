// Package inmemory provides a brute-force, process-local vector driver.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/docqa/pkg/vector"
)

type collection struct {
	dimensions int
	order      []string
	records    map[string]vector.Record
}

// Driver implements vector.Driver with cosine similarity over all records.
// Search order is deterministic: ties are broken by insertion order.
type Driver struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		collections: make(map[string]*collection),
	}
}

// EnsureCollection creates the collection when missing.
func (d *Driver) EnsureCollection(_ context.Context, name string, dimensions uint) error {
	if name == "" {
		return vector.ErrInvalidCollection
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		if c.dimensions != int(dimensions) {
			return fmt.Errorf("%w: collection %q has %d dimensions, requested %d",
				vector.ErrDimensionMismatch, name, c.dimensions, dimensions)
		}
		return nil
	}

	d.collections[name] = &collection{
		dimensions: int(dimensions),
		records:    make(map[string]vector.Record),
	}
	return nil
}

// Upsert stores records. The collection is created from the first record's
// dimension when it does not exist.
func (d *Driver) Upsert(_ context.Context, name string, records []vector.Record) error {
	if name == "" {
		return vector.ErrInvalidCollection
	}
	if len(records) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		c = &collection{
			dimensions: len(records[0].Embedding),
			records:    make(map[string]vector.Record),
		}
		d.collections[name] = c
	}

	if err := vector.CheckDimensions(records, c.dimensions); err != nil {
		return err
	}

	for _, r := range records {
		if _, exists := c.records[r.ID]; !exists {
			c.order = append(c.order, r.ID)
		}
		r.Embedding = append([]float32(nil), r.Embedding...)
		c.records[r.ID] = r
	}

	return nil
}

// Search scores every record against query.
func (d *Driver) Search(_ context.Context, name string, query []float32, k int) ([]vector.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok || k <= 0 {
		return []vector.Result{}, nil
	}
	if len(query) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			vector.ErrDimensionMismatch, len(query), c.dimensions)
	}

	results := make([]vector.Result, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		results = append(results, vector.Result{
			Record: r,
			Score:  Cosine(query, r.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of records in the collection.
func (d *Driver) Count(_ context.Context, name string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return 0, nil
	}
	return len(c.records), nil
}

// IDs returns the collection's record IDs in insertion order.
func (d *Driver) IDs(_ context.Context, name string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), c.order...), nil
}

// Delete removes records by ID.
func (d *Driver) Delete(_ context.Context, name string, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok || len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		delete(c.records, id)
	}
	order := c.order[:0]
	for _, id := range c.order {
		if _, ok := c.records[id]; ok {
			order = append(order, id)
		}
	}
	c.order = order
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero length or magnitude.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ vector.Driver = (*Driver)(nil)
