package guide

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

func TestCachedDetails_ServesHitsWithoutRequest(t *testing.T) {
	src := &fakeDetails{respond: func(_ int, ids []string) (map[string]zapi.ProgramDetails, error) {
		return allOf(ids), nil
	}}
	mc := cache.NewMemoryCache(0)
	defer mc.Close()
	cd := &CachedDetails{Source: src, Cache: mc, TTL: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := cd.PowerDetails(ctx, "h", []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = cd.PowerDetails(ctx, "h", []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, src.requests)

	_, err = cd.PowerDetails(ctx, "h", []string{"3", "1"})
	require.NoError(t, err)
	assert.Len(t, src.requests, 2)
	assert.Equal(t, "desc 3", got["3"].Description)
}

func TestCachedDetails_UpstreamError(t *testing.T) {
	src := &fakeDetails{respond: func(int, []string) (map[string]zapi.ProgramDetails, error) {
		return nil, errors.New("down")
	}}
	mc := cache.NewMemoryCache(0)
	defer mc.Close()
	mc.Set(context.Background(), detailKey("h", "1"), []byte(`{"id":"1","d":"cached"}`), time.Hour)
	mc.Set(context.Background(), detailKey("h", "9"), []byte(`not json`), time.Hour)
	cd := &CachedDetails{Source: src, Cache: mc}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := cd.PowerDetails(ctx, "h", []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "cached", got["1"].Description)

	_, err = cd.PowerDetails(ctx, "h", []string{"9"})
	assert.Error(t, err)
	_, ok := mc.Get(context.Background(), detailKey("h", "9"))
	assert.False(t, ok, "corrupt entries are evicted")
}

func TestCachedDetails_InEnricherKeepsBatchCount(t *testing.T) {
	src := &fakeDetails{respond: func(_ int, ids []string) (map[string]zapi.ProgramDetails, error) {
		return allOf(ids), nil
	}}
	mc := cache.NewMemoryCache(0)
	defer mc.Close()
	e := &Enricher{Source: &CachedDetails{Source: src, Cache: mc}, Sleep: (&sleepRecorder{}).sleep}

	_, first := e.Enrich(context.Background(), testSession, makeListings(41))
	_, second := e.Enrich(context.Background(), testSession, makeListings(41))
	assert.Equal(t, 3, first.Batches)
	assert.Equal(t, 3, second.Batches)
	assert.Equal(t, 41, second.Enriched)
	assert.Len(t, src.requests, 3, "second run is served from cache")
}
