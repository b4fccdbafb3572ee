package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// MarketArchiver keeps a copy of every published market list in cold
// storage.
type MarketArchiver interface {
	ArchiveMarkets(ctx context.Context, list MarketList) (path string, err error)
}
