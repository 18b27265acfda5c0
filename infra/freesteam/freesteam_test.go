package freesteam

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogen/core/factory"
	core "github.com/kilianp07/cogen/core/freesteam"
	"github.com/kilianp07/cogen/infra/logger"
)

const sample = `Date,Debit soufre L1,Debit soufre L2,Pression vapeur MP
2024-06-03 08:00:00,20,Configure,8.7
2024-06-03 09:00:00,22.5,25,8.6
2024-06-03 10:00:00,18,,8.4
`

func TestReadCSV(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(sample), "")
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	latest, err := src.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18.0, core.SulfurFlow(latest))

	at, err := src.At(context.Background(), time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 47.5, core.SulfurFlow(at))

	first, err := src.At(context.Background(), time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 20.0, core.SulfurFlow(first), "placeholders count as zero")

	_, err = src.At(context.Background(), time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrNoMatchingRecord)
}

func TestCSVSource_Errors(t *testing.T) {
	_, err := NewCSVSource(CSVConfig{Path: filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, core.ErrDataUnavailable)

	empty, err := ReadCSV(strings.NewReader("Date,soufre\n"), "")
	require.NoError(t, err)
	_, err = empty.Latest(context.Background())
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestCSVSource_Registered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	src, err := core.NewSource(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": path}})
	require.NoError(t, err)
	est := core.NewEstimator(src, 50, 1, logger.NopLogger{})
	e, err := est.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, e.Fallback)
	assert.Equal(t, 18.0, e.Flow)
}

const fluxResponse = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,string,double,double
#group,false,false,true,true,false,true,false,false
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_measurement,soufre_l1,soufre_l2
,,0,2024-06-03T00:00:00Z,2024-06-04T00:00:00Z,2024-06-03T09:00:00Z,sulfur_recovery,20.5,30

`

func newFluxServer(t *testing.T, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/query" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		queries = append(queries, string(data))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestInfluxSource_Latest(t *testing.T) {
	srv, queries := newFluxServer(t, fluxResponse)
	src := NewInfluxSource(InfluxConfig{URL: srv.URL, Token: "t", Org: "o", Bucket: "plant"})
	defer src.Close()

	rec, err := src.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), rec.Time)
	assert.Equal(t, 50.5, core.SulfurFlow(rec))
	assert.NotContains(t, rec.Values, "_measurement")
	require.Len(t, *queries, 1)
	assert.Contains(t, (*queries)[0], "last()")
}

const fluxStaggered = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,string,double,double
#group,false,false,true,true,false,true,false,false
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_measurement,soufre_l1,soufre_l2
,,0,2024-06-03T00:00:00Z,2024-06-04T00:00:00Z,2024-06-03T09:00:05Z,sulfur_recovery,,30
,,0,2024-06-03T00:00:00Z,2024-06-04T00:00:00Z,2024-06-03T09:00:00Z,sulfur_recovery,20.5,

`

func TestInfluxSource_LatestFoldsFields(t *testing.T) {
	srv, _ := newFluxServer(t, fluxStaggered)
	src := NewInfluxSource(InfluxConfig{URL: srv.URL, Token: "t", Org: "o", Bucket: "plant"})
	defer src.Close()

	rec, err := src.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 5, 0, time.UTC), rec.Time)
	assert.Equal(t, "20.5", rec.Values["soufre_l1"])
	assert.Equal(t, 50.5, core.SulfurFlow(rec))
}

func TestInfluxSource_At(t *testing.T) {
	srv, _ := newFluxServer(t, fluxResponse)
	src := NewInfluxSource(InfluxConfig{URL: srv.URL, Token: "t", Org: "o", Bucket: "plant"})
	defer src.Close()

	rec, err := src.At(context.Background(), time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20.5", rec.Values["soufre_l1"])

	_, err = src.At(context.Background(), time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrNoMatchingRecord)
}

func TestInfluxSource_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	src := NewInfluxSource(InfluxConfig{URL: srv.URL, Org: "o", Bucket: "plant"})
	defer src.Close()

	_, err := src.Latest(context.Background())
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	rdb := newFakeRedis()
	cache := newRedisCache(rdb, "")
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ts := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Set(ctx, "k", core.Estimate{Flow: 47.5, Time: ts}, 15*time.Minute))
	assert.Equal(t, 15*time.Minute, rdb.ttl["cogen:free_steam:k"])

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 47.5, got.Flow)
	assert.True(t, ts.Equal(got.Time))
}

func TestRedisCache_Memo(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(sample), "")
	require.NoError(t, err)
	est := core.NewEstimator(src, 50, 1, logger.NopLogger{})
	memo := core.NewMemo(est, newRedisCache(newFakeRedis(), "test:"), 15*time.Minute, logger.NopLogger{})

	e1, err := memo.Estimate(context.Background(), nil)
	require.NoError(t, err)
	e2, err := memo.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, e1.Flow, e2.Flow)
}

func TestRedisCache_Server(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	cache := NewRedisCache(RedisConfig{Addr: addr, Prefix: "cogen:test:"})
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, t.Name(), core.Estimate{Flow: 12}, time.Minute))
	got, ok, err := cache.Get(ctx, t.Name())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12.0, got.Flow)
}
