package install

import (
	"context"
	"crypto/md5" //nolint:gosec // cache key, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/transient"
)

// DefaultTagsTTL is how long popular tags stay cached.
const DefaultTagsTTL = 3 * time.Hour

// TagSource fetches popular tags from the directory.
type TagSource interface {
	HotTags(ctx context.Context, args pluginsapi.Args) (pluginsapi.Tags, error)
}

// TagCache is a read-through cache over TagSource.
type TagCache struct {
	API    TagSource
	Store  transient.Store
	TTL    time.Duration
	Logger *slog.Logger
}

// TagsKey is the transient key for args.
func TagsKey(args pluginsapi.Args) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode tag args: %w", err)
	}
	sum := md5.Sum(data) //nolint:gosec
	return "poptags_" + hex.EncodeToString(sum[:]), nil
}

// PopularTags returns cached tags for args, calling the directory on a miss.
// Directory errors are returned and never cached.
func (c *TagCache) PopularTags(ctx context.Context, args pluginsapi.Args) (pluginsapi.Tags, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	key, err := TagsKey(args)
	if err != nil {
		return nil, err
	}

	var tags pluginsapi.Tags
	found, err := transient.GetJSON(ctx, c.Store, key, &tags)
	if err != nil {
		logger.Warn("read popular tags cache", slog.String("key", key), slog.Any("err", err))
	}
	if found && err == nil {
		return tags, nil
	}

	tags, err = c.API.HotTags(ctx, args)
	if err != nil {
		return nil, err
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTagsTTL
	}
	if err := transient.SetJSON(ctx, c.Store, key, tags, ttl); err != nil {
		logger.Warn("cache popular tags", slog.String("key", key), slog.Any("err", err))
	}
	return tags, nil
}
