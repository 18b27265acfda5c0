package freesteam

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/infra/logger"
)

type fakeSource struct {
	records []Record
	err     error
	calls   atomic.Int32
}

func (f *fakeSource) Latest(context.Context) (Record, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Record{}, f.err
	}
	if len(f.records) == 0 {
		return Record{}, ErrDataUnavailable
	}
	return f.records[len(f.records)-1], nil
}

func (f *fakeSource) At(_ context.Context, ts time.Time) (Record, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Record{}, f.err
	}
	for _, r := range f.records {
		if r.Time.Equal(ts) {
			return r, nil
		}
	}
	return Record{}, ErrNoMatchingRecord
}

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func sample() *fakeSource {
	return &fakeSource{records: []Record{
		{Time: t0, Values: map[string]string{"Vapeur Soufre A": "30", "Sulfur_B": "Configure", "Temperature": "120"}},
		{Time: t0.Add(time.Hour), Values: map[string]string{"Vapeur Soufre A": "32.5", "SULPHUR line 2": "12", "Sulfur_C": "", "Pressure": "9"}},
	}}
}

func TestIsSulfurColumn(t *testing.T) {
	assert.True(t, IsSulfurColumn("Débit Vapeur SOUFRE 1"))
	assert.True(t, IsSulfurColumn("sulfur_flow"))
	assert.True(t, IsSulfurColumn("Sulphur unit"))
	assert.False(t, IsSulfurColumn("Date"))
}

func TestParseFlow(t *testing.T) {
	cases := map[string]float64{"12.5": 12.5, " 3 ": 3, "Configure": 0, "configure": 0, "": 0, "NaN": 0, "n/a": 0, "-4": -4}
	for in, want := range cases {
		assert.Equal(t, want, ParseFlow(in), in)
	}
}

func TestEstimatorLatestAndAt(t *testing.T) {
	e := NewEstimator(sample(), 50, 1, logger.NopLogger{})
	est, err := e.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 44.5, est.Flow)
	assert.False(t, est.Fallback)
	assert.Equal(t, t0.Add(time.Hour), est.Time)

	at := t0
	est, err = e.Estimate(context.Background(), &at)
	require.NoError(t, err)
	assert.Equal(t, 30.0, est.Flow)
}

func TestEstimatorSteamRatio(t *testing.T) {
	e := NewEstimator(sample(), 50, 2, nil)
	est, err := e.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 89.0, est.Flow)
}

func TestEstimatorNoMatchingRecord(t *testing.T) {
	e := NewEstimator(sample(), 50, 1, nil)
	at := t0.Add(30 * time.Minute)
	_, err := e.Estimate(context.Background(), &at)
	assert.True(t, errors.Is(err, ErrNoMatchingRecord))
}

func TestEstimatorFallback(t *testing.T) {
	est, err := NewEstimator(nil, 50, 1, nil).Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Estimate{Flow: 50, Fallback: true}, est)

	broken := &fakeSource{err: errors.New("disk gone")}
	est, err = NewEstimator(broken, 50, 1, logger.NopLogger{}).Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, est.Fallback)
	assert.Equal(t, 50.0, est.Flow)
}

func TestEstimatorClampsNegativeTotal(t *testing.T) {
	src := &fakeSource{records: []Record{{Time: t0, Values: map[string]string{"sulfur": "-8"}}}}
	est, err := NewEstimator(src, 50, 1, nil).Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.Flow)
}

func TestMemoReadsSourceOncePerInterval(t *testing.T) {
	src := sample()
	m := NewMemo(NewEstimator(src, 50, 1, nil), NewMemoryCache(), 15*time.Minute, nil)
	m.now = func() time.Time { return t0.Add(2 * time.Minute) }

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			est, err := m.Estimate(context.Background(), nil)
			assert.NoError(t, err)
			assert.Equal(t, 44.5, est.Flow)
		}()
	}
	wg.Wait()
	first := src.calls.Load()
	assert.LessOrEqual(t, first, int32(16))

	_, err := m.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, src.calls.Load())

	m.now = func() time.Time { return t0.Add(20 * time.Minute) }
	_, err = m.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, first+1, src.calls.Load())
}

func TestMemoDoesNotCacheFallback(t *testing.T) {
	src := &fakeSource{err: errors.New("offline")}
	m := NewMemo(NewEstimator(src, 50, 1, nil), NewMemoryCache(), time.Minute, nil)
	for i := 0; i < 2; i++ {
		est, err := m.Estimate(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, est.Fallback)
	}
	assert.Equal(t, int32(2), src.calls.Load())
}

type blockingProvider struct {
	release chan struct{}
	started chan struct{}
	panics  bool
	calls   atomic.Int32
}

func (b *blockingProvider) Estimate(ctx context.Context, _ *time.Time) (Estimate, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	if b.panics {
		panic("source exploded")
	}
	select {
	case <-b.release:
		return Estimate{Flow: 42, Time: t0}, nil
	case <-ctx.Done():
		return Estimate{}, ctx.Err()
	}
}

func TestMemoLeaderCancelKeepsSharedCall(t *testing.T) {
	p := &blockingProvider{release: make(chan struct{}), started: make(chan struct{})}
	m := NewMemo(p, NewMemoryCache(), time.Minute, nil)
	m.now = func() time.Time { return t0 }

	ctx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := m.Estimate(ctx, nil)
		leaderErr <- err
	}()
	<-p.started
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(p.release)
	est, err := m.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, est.Flow)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestMemoProviderPanicReleasesCall(t *testing.T) {
	p := &blockingProvider{started: make(chan struct{}), panics: true}
	m := NewMemo(p, NewMemoryCache(), time.Minute, nil)
	_, err := m.Estimate(context.Background(), nil)
	assert.ErrorContains(t, err, "source exploded")

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.inflight)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := t0
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(context.Background(), "k", Estimate{Flow: 1}, time.Minute))
	_, ok, _ := c.Get(context.Background(), "k")
	assert.True(t, ok)
	now = now.Add(time.Minute)
	_, ok, _ = c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestNewSourceNone(t *testing.T) {
	src, err := NewSource(factoryConfig("none"))
	require.NoError(t, err)
	assert.Nil(t, src)
	_, err = NewSource(factoryConfig("ftp"))
	assert.Error(t, err)
}

func factoryConfig(typ string) factory.ModuleConfig { return factory.ModuleConfig{Type: typ} }
