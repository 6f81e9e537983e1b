package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mediashelf/config"
	"mediashelf/model"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

type countingInspector struct {
	streams []model.SubtitleStream
	err     error
	probes  int
}

func (c *countingInspector) Available(ctx context.Context) error { return nil }

func (c *countingInspector) ProbeSubtitles(ctx context.Context, path string) ([]model.SubtitleStream, error) {
	c.probes++
	return c.streams, c.err
}

func (c *countingInspector) ExtractSubtitle(ctx context.Context, path string, streamIndex int, dest string) error {
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProbeCacheHitAndInvalidation(t *testing.T) {
	movie := filepath.Join(t.TempDir(), "movie.mkv")
	writeFile(t, movie, "v1")

	inner := &countingInspector{streams: []model.SubtitleStream{{Index: 2, Language: "eng", Title: "English"}}}
	store := newMemStore()
	pc := NewProbeCache(inner, store, time.Hour)

	for i := 0; i < 3; i++ {
		streams, err := pc.ProbeSubtitles(context.Background(), movie)
		if err != nil {
			t.Fatal(err)
		}
		if len(streams) != 1 || streams[0] != inner.streams[0] {
			t.Fatalf("streams = %+v", streams)
		}
	}
	if inner.probes != 1 {
		t.Fatalf("inner probes = %d, want 1", inner.probes)
	}

	// 内容和大小变化后键随之改变
	writeFile(t, movie, "version two")
	if _, err := pc.ProbeSubtitles(context.Background(), movie); err != nil {
		t.Fatal(err)
	}
	if inner.probes != 2 {
		t.Fatalf("inner probes after change = %d, want 2", inner.probes)
	}
}

func TestProbeCacheDoesNotStoreFailures(t *testing.T) {
	movie := filepath.Join(t.TempDir(), "movie.mkv")
	writeFile(t, movie, "x")

	inner := &countingInspector{err: model.ErrProbeFailed}
	store := newMemStore()
	pc := NewProbeCache(inner, store, time.Hour)

	if _, err := pc.ProbeSubtitles(context.Background(), movie); !errors.Is(err, model.ErrProbeFailed) {
		t.Fatalf("err = %v", err)
	}
	if store.sets != 0 {
		t.Fatal("failed probes must not be cached")
	}
}

func TestProbeCacheStoreErrorFallsThrough(t *testing.T) {
	movie := filepath.Join(t.TempDir(), "movie.mkv")
	writeFile(t, movie, "x")

	inner := &countingInspector{streams: []model.SubtitleStream{}}
	store := newMemStore()
	store.getErr = errors.New("connection refused")

	if _, err := NewProbeCache(inner, store, time.Hour).ProbeSubtitles(context.Background(), movie); err != nil {
		t.Fatal(err)
	}
	if inner.probes != 1 {
		t.Fatalf("inner probes = %d", inner.probes)
	}
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "probe.db")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "k", []byte(`[{"index":1}]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != `[{"index":1}]` {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expired entry returned")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry not removed, len = %d", s.Len())
	}
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.db")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if v, ok, _ := s.Get(context.Background(), "k"); !ok || string(v) != "v" {
		t.Fatalf("value lost across reopen: %q %v", v, ok)
	}
}

func TestWrap(t *testing.T) {
	inner := &countingInspector{}

	got, closeFn, err := Wrap(&config.Config{ProbeCacheBackend: "none"}, inner)
	if err != nil || got != inner || closeFn == nil {
		t.Fatalf("none backend: %v %v", got, err)
	}

	if _, _, err := Wrap(&config.Config{ProbeCacheBackend: "memcached"}, inner); err == nil {
		t.Fatal("unknown backend accepted")
	}

	cfg := &config.Config{ProbeCacheBackend: "bolt", ProbeCachePath: filepath.Join(t.TempDir(), "p.db"), ProbeCacheTTL: time.Hour}
	got, closeFn, err = Wrap(cfg, inner)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, ok := got.(*ProbeCache); !ok {
		t.Fatalf("bolt backend returned %T", got)
	}
}
