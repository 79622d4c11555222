// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
//
// Each collection gets its own vec0 virtual table keyed by the rowid of
// its chunk rows, since vec0 tables use integer rowids and fixed dimensions.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			dimensions INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id INTEGER NOT NULL REFERENCES vec_collections(id),
			record_id TEXT NOT NULL,
			text TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			UNIQUE(collection_id, record_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

func embeddingsTable(collectionID int64) string {
	return fmt.Sprintf("vec_embeddings_%d", collectionID)
}

// lookup returns the collection's id and dimensions, or sql.ErrNoRows.
func (d *Driver) lookup(ctx context.Context, q queryer, name string) (int64, int, error) {
	var id int64
	var dims int
	err := q.QueryRowContext(ctx,
		`SELECT id, dimensions FROM vec_collections WHERE name = ?`, name,
	).Scan(&id, &dims)
	return id, dims, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureCollection creates the collection and its vec0 table when missing.
func (d *Driver) EnsureCollection(ctx context.Context, collection string, dimensions uint) error {
	if collection == "" {
		return vector.ErrInvalidCollection
	}
	if dimensions == 0 {
		return errors.New("sqlite-vec embedding dimensions cannot be 0")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := d.ensure(ctx, tx, collection, int(dimensions)); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *Driver) ensure(ctx context.Context, tx *sql.Tx, collection string, dimensions int) error {
	_, dims, err := d.lookup(ctx, tx, collection)
	switch {
	case err == nil:
		if dims != dimensions {
			return fmt.Errorf("%w: collection %q has %d dimensions, requested %d",
				vector.ErrDimensionMismatch, collection, dims, dimensions)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("looking up collection %q: %w", collection, err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO vec_collections(name, dimensions) VALUES (?, ?)`,
		collection, dimensions,
	)
	if err != nil {
		return fmt.Errorf("inserting collection %q: %w", collection, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting collection id: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d] distance_metric=cosine)`,
		embeddingsTable(id), dimensions,
	)
	if _, err := tx.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	d.logger.Info("created sqlite-vec collection",
		"collection", collection,
		"dimensions", dimensions,
	)
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert stores records. If a record with the same ID already exists, its
// text and embedding are replaced.
func (d *Driver) Upsert(ctx context.Context, collection string, records []vector.Record) error {
	if collection == "" {
		return vector.ErrInvalidCollection
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := d.ensure(ctx, tx, collection, len(records[0].Embedding)); err != nil {
		return err
	}
	collectionID, dims, err := d.lookup(ctx, tx, collection)
	if err != nil {
		return fmt.Errorf("looking up collection %q: %w", collection, err)
	}
	if err := vector.CheckDimensions(records, dims); err != nil {
		return err
	}
	table := embeddingsTable(collectionID)

	for _, r := range records {
		blob := serializeFloat32(r.Embedding)

		var existing int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE collection_id = ? AND record_id = ?`,
			collectionID, r.ID,
		).Scan(&existing)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET text = ?, source = ?, chunk_index = ? WHERE rowid = ?`,
				r.Text, r.Source, r.Index, existing,
			); err != nil {
				return fmt.Errorf("updating record %s: %w", r.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), existing,
			); err != nil {
				return fmt.Errorf("deleting old embedding for record %s: %w", r.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, table),
				existing, blob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for record %s: %w", r.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(collection_id, record_id, text, source, chunk_index) VALUES (?, ?, ?, ?, ?)`,
				collectionID, r.ID, r.Text, r.Source, r.Index,
			)
			if err != nil {
				return fmt.Errorf("inserting record %s: %w", r.ID, err)
			}
			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for record %s: %w", r.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, table),
				rowID, blob,
			); err != nil {
				return fmt.Errorf("inserting embedding for record %s: %w", r.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records into sqlite-vec",
		"collection", collection,
		"count", len(records),
	)

	return nil
}

// Search runs a KNN query against the collection's vec0 table. Cosine
// distance is converted to similarity as 1 - distance.
func (d *Driver) Search(ctx context.Context, collection string, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return []vector.Result{}, nil
	}

	collectionID, dims, err := d.lookup(ctx, d.db, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return []vector.Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up collection %q: %w", collection, err)
	}
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			vector.ErrDimensionMismatch, len(query), dims)
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			c.record_id,
			c.text,
			c.source,
			c.chunk_index,
			ve.distance
		FROM %s ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance, c.rowid
	`, embeddingsTable(collectionID)), serializeFloat32(query), k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.Result{}
	for rows.Next() {
		var r vector.Result
		var distance float64
		if err := rows.Scan(&r.ID, &r.Text, &r.Source, &r.Index, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Score = float32(1.0 - distance)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// Count returns the number of records in the collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM vec_chunks c
		INNER JOIN vec_collections col ON col.id = c.collection_id
		WHERE col.name = ?
	`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// IDs returns the collection's record IDs in insertion order.
func (d *Driver) IDs(ctx context.Context, collection string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT c.record_id
		FROM vec_chunks c
		INNER JOIN vec_collections col ON col.id = c.collection_id
		WHERE col.name = ?
		ORDER BY c.rowid
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record ids: %w", err)
	}
	return ids, nil
}

// Delete removes records and their embeddings in one transaction.
func (d *Driver) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	collectionID, _, err := d.lookup(ctx, tx, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up collection %q: %w", collection, err)
	}
	table := embeddingsTable(collectionID)

	for _, id := range ids {
		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE collection_id = ? AND record_id = ?`,
			collectionID, id,
		).Scan(&rowID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("looking up record %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding for record %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("deleting record %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted records from sqlite-vec",
		"collection", collection,
		"count", len(ids),
	)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
