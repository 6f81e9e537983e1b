package subtitle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mediashelf/config"
	"mediashelf/core/sandbox"
	"mediashelf/model"
)

// fakeInspector records calls and writes a minimal WebVTT file on extraction.
type fakeInspector struct {
	mu           sync.Mutex
	unavailable  error
	probeErr     error
	streams      []model.SubtitleStream
	failIndex    map[int]bool
	probeCalls   int
	extractCalls map[int]int
}

func newFakeInspector(streams ...model.SubtitleStream) *fakeInspector {
	return &fakeInspector{streams: streams, failIndex: map[int]bool{}, extractCalls: map[int]int{}}
}

func (f *fakeInspector) Available(ctx context.Context) error {
	return f.unavailable
}

func (f *fakeInspector) ProbeSubtitles(ctx context.Context, path string) ([]model.SubtitleStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return append([]model.SubtitleStream(nil), f.streams...), nil
}

func (f *fakeInspector) ExtractSubtitle(ctx context.Context, path string, streamIndex int, dest string) error {
	f.mu.Lock()
	f.extractCalls[streamIndex]++
	fail := f.failIndex[streamIndex]
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("%w: stream %d: codec not supported", model.ErrExtractionFailed, streamIndex)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("WEBVTT\n\n"), 0o644)
}

func (f *fakeInspector) totalExtractions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.extractCalls {
		n += c
	}
	return n
}

// fakeMirror is an in-memory ArtifactMirror.
type fakeMirror struct {
	mu        sync.Mutex
	objects   map[string][]byte
	published []string
}

func (m *fakeMirror) Fetch(ctx context.Context, key, dest string) (bool, error) {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, err
	}
	return true, os.WriteFile(dest, data, 0o644)
}

func (m *fakeMirror) Publish(ctx context.Context, key, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, key)
	return nil
}

type fixture struct {
	root      string
	cacheRoot string
	resolver  *sandbox.Resolver
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tmp := t.TempDir()
	root := filepath.Join(tmp, "Movies")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	return fixture{
		root:      root,
		cacheRoot: filepath.Join(tmp, "cache"),
		resolver: sandbox.NewResolver(config.PathConfig{
			AllowedBasePaths:    []string{root},
			MaxDepth:            3,
			EnforceAllowedPaths: true,
		}),
	}
}

func (fx fixture) file(t *testing.T, rel string) string {
	t.Helper()
	p := filepath.Join(fx.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("container"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func (fx fixture) pipeline(insp MediaInspector, mirror ArtifactMirror) *Pipeline {
	return fx.pipelineFor(insp, mirror, []string{".mkv"})
}

func (fx fixture) pipelineFor(insp MediaInspector, mirror ArtifactMirror, exts []string) *Pipeline {
	return NewPipeline(PipelineConfig{
		CacheRoot:           fx.cacheRoot,
		ContainerExtensions: exts,
		MaxConcurrent:       2,
	}, fx.resolver, insp, mirror)
}

func (fx fixture) index() *Index {
	return NewIndex(fx.cacheRoot, fx.resolver, []string{".mkv"})
}
