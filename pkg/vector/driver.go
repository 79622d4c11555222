// Package vector provides the vector index contract and its drivers.
package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Record is a chunk stored in a collection together with its embedding.
type Record struct {
	// ID is unique within a collection. Use RecordID for stable IDs.
	ID string

	// Embedding is the vector representation of Text.
	Embedding []float32

	// Text is the raw chunk text returned to callers as provenance.
	Text string

	// Source identifies the document the chunk was cut from.
	Source string

	// Index is the chunk's position in its source.
	Index int
}

// Result is a search hit with its similarity score.
type Result struct {
	Record

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and nearest-neighbor search of chunk embeddings.
//
// A collection holds records of exactly one embedding configuration; drivers
// return ErrDimensionMismatch instead of mixing dimensions.
type Driver interface {
	// EnsureCollection creates the collection for the given dimension if it
	// does not exist yet.
	EnsureCollection(ctx context.Context, collection string, dimensions uint) error

	// Upsert stores records, replacing records that share an ID.
	Upsert(ctx context.Context, collection string, records []Record) error

	// Search returns at most k records ordered by descending similarity to
	// the query vector. A missing collection yields no results.
	Search(ctx context.Context, collection string, query []float32, k int) ([]Result, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// IDs returns the ID of every record in the collection. A missing
	// collection yields no IDs.
	IDs(ctx context.Context, collection string) ([]string, error)

	// Delete removes records by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, collection string, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}

// idNamespace scopes record IDs generated by RecordID.
var idNamespace = uuid.MustParse("7b0e5f8c-3f7a-4c55-9d52-1f0c8d6b2a91")

// RecordID derives a stable UUID for a chunk, so re-indexing an unchanged
// chunk upserts in place. Qdrant only accepts UUIDs or integers as IDs.
func RecordID(collection, source string, index int, text string) string {
	name := collection + "\x00" + source + "\x00" + strconv.Itoa(index) + "\x00" + text
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// CheckDimensions verifies every record has the expected embedding length.
func CheckDimensions(records []Record, dimensions int) error {
	for _, r := range records {
		if len(r.Embedding) != dimensions {
			return fmt.Errorf("%w: record %s has %d dimensions, collection has %d",
				ErrDimensionMismatch, r.ID, len(r.Embedding), dimensions)
		}
	}
	return nil
}

// Prune deletes every record of the collection whose ID is not in keep and
// returns the number of records removed.
func Prune(ctx context.Context, d Driver, collection string, keep []string) (int, error) {
	existing, err := d.IDs(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("listing records: %w", err)
	}

	wanted := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		wanted[id] = struct{}{}
	}

	var stale []string
	for _, id := range existing {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := d.Delete(ctx, collection, stale); err != nil {
		return 0, fmt.Errorf("deleting stale records: %w", err)
	}
	return len(stale), nil
}
