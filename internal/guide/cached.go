// SPDX-License-Identifier: MIT

package guide

import (
	"context"
	"encoding/json"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// DefaultDetailTTL keeps detail records for a day.
const DefaultDetailTTL = 24 * time.Hour

// CachedDetails serves detail records from a cache and asks Source only for
// the ids it does not hold. A batch fully served from cache issues no request.
type CachedDetails struct {
	Source DetailSource
	Cache  cache.Cache
	TTL    time.Duration
}

func detailKey(hash, id string) string {
	return "details:" + hash + ":" + id
}

func (c *CachedDetails) PowerDetails(ctx context.Context, hash string, ids []string) (map[string]zapi.ProgramDetails, error) {
	out := make(map[string]zapi.ProgramDetails, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		raw, ok := c.Cache.Get(ctx, detailKey(hash, id))
		if !ok {
			missing = append(missing, id)
			continue
		}
		var d zapi.ProgramDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			c.Cache.Delete(ctx, detailKey(hash, id))
			missing = append(missing, id)
			continue
		}
		out[id] = d
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.Source.PowerDetails(ctx, hash, missing)
	if err != nil {
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultDetailTTL
	}
	for id, d := range fetched {
		out[id] = d
		if raw, err := json.Marshal(d); err == nil {
			c.Cache.Set(ctx, detailKey(hash, id), raw, ttl)
		}
	}
	return out, nil
}
