// Package vectorutils is the vector driver utility package
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/chroma"
	"github.com/papercomputeco/docqa/pkg/vector/inmemory"
	"github.com/papercomputeco/docqa/pkg/vector/pgvector"
	"github.com/papercomputeco/docqa/pkg/vector/qdrant"
	"github.com/papercomputeco/docqa/pkg/vector/sqlitevec"
)

// Supported vector store provider names.
const (
	ProviderQdrant   = "qdrant"
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderChroma   = "chroma"
	ProviderMemory   = "memory"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the server URL for qdrant and chroma, the database path
	// for sqlite, and the connection string for postgres.
	TargetURL string

	APIKey string
	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			URL:    o.TargetURL,
			APIKey: o.APIKey,
		}, o.Logger)
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: o.TargetURL,
		}, o.Logger)
	case ProviderPostgres:
		return pgvector.NewDriver(ctx, o.TargetURL, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL: o.TargetURL,
		}, o.Logger)
	case ProviderMemory:
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
