// Package qdrant provides a Qdrant vector database driver built on the
// official gRPC client.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultGRPCPort is Qdrant's gRPC port.
	DefaultGRPCPort = 6334

	// restPort is Qdrant's REST port. URLs copied from the Qdrant Cloud
	// console point at it, so it is mapped onto the gRPC port.
	restPort = 6333

	payloadText   = "text"
	payloadSource = "source"
	payloadIndex  = "index"

	// scrollPage is the number of point IDs fetched per scroll request.
	scrollPage = 256
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// URL is the Qdrant endpoint, e.g. "https://xyz.cloud.qdrant.io:6333" or
	// "http://localhost:6334". An https scheme enables TLS.
	URL string

	// APIKey authenticates against Qdrant Cloud. Optional for local servers.
	APIKey string
}

// Driver implements vector.Driver on top of Qdrant.
type Driver struct {
	client *qc.Client
	logger *slog.Logger
}

// NewDriver connects to Qdrant and verifies the server is reachable.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	cfg, err := clientConfig(c)
	if err != nil {
		return nil, err
	}

	client, err := qc.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrIndexUnavailable, err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: qdrant health check: %v", vector.ErrIndexUnavailable, err)
	}

	logger.Info("connected to qdrant",
		"host", cfg.Host,
		"port", cfg.Port,
		"tls", cfg.UseTLS,
	)

	return &Driver{
		client: client,
		logger: logger,
	}, nil
}

// clientConfig turns a Qdrant URL into gRPC client settings.
func clientConfig(c Config) (*qc.Config, error) {
	if c.URL == "" {
		return nil, errors.New("qdrant URL is required")
	}

	u, err := url.Parse(c.URL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant URL %q", c.URL)
	}

	port := DefaultGRPCPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
		if port == restPort {
			port = DefaultGRPCPort
		}
	}

	return &qc.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

// EnsureCollection creates a cosine collection with the given dimension.
func (d *Driver) EnsureCollection(ctx context.Context, collection string, dimensions uint) error {
	if collection == "" {
		return vector.ErrInvalidCollection
	}

	exists, err := d.client.CollectionExists(ctx, collection)
	if err != nil {
		return wrapErr("checking collection", err)
	}

	if exists {
		info, err := d.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return wrapErr("reading collection info", err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && size != uint64(dimensions) {
			return fmt.Errorf("%w: collection %q has %d dimensions, requested %d",
				vector.ErrDimensionMismatch, collection, size, dimensions)
		}
		return nil
	}

	err = d.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(dimensions),
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return wrapErr("creating collection", err)
	}

	d.logger.Info("created qdrant collection",
		"collection", collection,
		"dimensions", dimensions,
	)

	return nil
}

// Upsert stores records as points with text/source/index payload.
func (d *Driver) Upsert(ctx context.Context, collection string, records []vector.Record) error {
	if collection == "" {
		return vector.ErrInvalidCollection
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, 0, len(records))
	for _, r := range records {
		payload, err := qc.TryValueMap(map[string]any{
			payloadText:   r.Text,
			payloadSource: r.Source,
			payloadIndex:  r.Index,
		})
		if err != nil {
			return fmt.Errorf("building payload for record %s: %w", r.ID, err)
		}

		points = append(points, &qc.PointStruct{
			Id:      qc.NewIDUUID(r.ID),
			Vectors: qc.NewVectors(r.Embedding...),
			Payload: payload,
		})
	}

	_, err := d.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: collection,
		Wait:           qc.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return wrapErr("upserting points", err)
	}

	d.logger.Debug("upserted points into qdrant",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Search runs a nearest-neighbor query. Qdrant returns points ordered by
// descending score for cosine collections.
func (d *Driver) Search(ctx context.Context, collection string, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return []vector.Result{}, nil
	}

	points, err := d.client.Query(ctx, &qc.QueryPoints{
		CollectionName: collection,
		Query:          qc.NewQuery(query...),
		Limit:          qc.PtrOf(uint64(k)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return []vector.Result{}, nil
		}
		return nil, wrapErr("querying points", err)
	}

	results := make([]vector.Result, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		results = append(results, vector.Result{
			Record: vector.Record{
				ID:     p.GetId().GetUuid(),
				Text:   payload[payloadText].GetStringValue(),
				Source: payload[payloadSource].GetStringValue(),
				Index:  int(payload[payloadIndex].GetIntegerValue()),
			},
			Score: p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	n, err := d.client.Count(ctx, &qc.CountPoints{
		CollectionName: collection,
		Exact:          qc.PtrOf(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, wrapErr("counting points", err)
	}
	return int(n), nil
}

// IDs scrolls through the collection and returns every point ID.
func (d *Driver) IDs(ctx context.Context, collection string) ([]string, error) {
	ids := []string{}
	var offset *qc.PointId
	for {
		points, next, err := d.client.ScrollAndOffset(ctx, &qc.ScrollPoints{
			CollectionName: collection,
			Offset:         offset,
			Limit:          qc.PtrOf(uint32(scrollPage)),
			WithPayload:    qc.NewWithPayload(false),
			WithVectors:    qc.NewWithVectors(false),
		})
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return []string{}, nil
			}
			return nil, wrapErr("scrolling points", err)
		}

		for _, p := range points {
			ids = append(ids, p.GetId().GetUuid())
		}
		if next == nil {
			return ids, nil
		}
		offset = next
	}
}

// Delete removes points by ID and waits for the operation to apply.
func (d *Driver) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qc.NewIDUUID(id)
	}

	_, err := d.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: collection,
		Wait:           qc.PtrOf(true),
		Points:         qc.NewPointsSelectorIDs(pointIDs),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return wrapErr("deleting points", err)
	}

	d.logger.Debug("deleted points from qdrant",
		"collection", collection,
		"count", len(ids),
	)
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// wrapErr marks transport-level failures as vector.ErrIndexUnavailable.
func wrapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s: %v", vector.ErrIndexUnavailable, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

var _ vector.Driver = (*Driver)(nil)
