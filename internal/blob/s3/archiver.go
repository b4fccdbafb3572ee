package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

// MarketArchiver writes each published market list as one JSON object:
//
//	{prefix}/markets/YYYY/MM/DD/YYYYMMDDTHHMMSSZ.json
//
// Lists larger than minPartSize go through the multipart uploader.
type MarketArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewMarketArchiver creates a MarketArchiver writing under prefix.
func NewMarketArchiver(writer domain.BlobWriter, prefix string) *MarketArchiver {
	return &MarketArchiver{writer: writer, prefix: prefix}
}

// ArchivePath returns the object key for a list refreshed at t.
func (a *MarketArchiver) ArchivePath(t time.Time) string {
	t = t.UTC()
	return path.Join(a.prefix, "markets", t.Format("2006/01/02"), t.Format("20060102T150405Z")+".json")
}

// ArchiveMarkets uploads list and returns the key it was written to.
func (a *MarketArchiver) ArchiveMarkets(ctx context.Context, list domain.MarketList) (string, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal market list: %w", err)
	}

	key := a.ArchivePath(list.RefreshedAt)
	if int64(len(data)) > minPartSize {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive markets: %w", err)
	}
	return key, nil
}

var _ domain.MarketArchiver = (*MarketArchiver)(nil)
