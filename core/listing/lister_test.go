package listing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediashelf/config"
	"mediashelf/core/sandbox"
	"mediashelf/model"
)

func mkfile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newLister(t *testing.T, root string, maxDepth int, exts []string) *Lister {
	t.Helper()
	r := sandbox.NewResolver(config.PathConfig{
		AllowedBasePaths:    []string{root},
		MaxDepth:            maxDepth,
		EnforceAllowedPaths: true,
	})
	return NewLister(r, NewFilter(exts))
}

func names(items []*model.FileSystemEntry) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "a.txt"), 10)
	mkfile(t, filepath.Join(root, ".hidden"), 1)
	mkfile(t, filepath.Join(root, "B_folder", "inner.txt"), 1)
	mkfile(t, filepath.Join(root, "node_modules", "pkg.json"), 1)

	items, err := newLister(t, root, 3, nil).List(root, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(items); !equal(got, []string{"B_folder", "a.txt"}) {
		t.Fatalf("names = %v", got)
	}
	if items[0].Type != model.EntryFolder || items[0].Children != nil {
		t.Fatalf("folder at depth limit should have no children: %+v", items[0])
	}
	file := items[1]
	if file.Extension != "txt" || file.Size == nil || *file.Size != 10 || file.Modified == nil {
		t.Fatalf("unexpected file entry %+v", file)
	}
	if file.ID != filepath.ToSlash(filepath.Join(root, "a.txt")) || file.Path != file.ID {
		t.Fatalf("id/path = %q/%q", file.ID, file.Path)
	}
}

func TestListCollation(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"banana.txt", "Cherry.txt", "apple.txt"} {
		mkfile(t, filepath.Join(root, n), 1)
	}
	for _, d := range []string{"zeta", "Alpha"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	items, err := newLister(t, root, 3, nil).List(root, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Alpha", "zeta", "apple.txt", "banana.txt", "Cherry.txt"}
	if got := names(items); !equal(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
}

func TestListHiddenRules(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "movie.mkv"), 1)
	mkfile(t, filepath.Join(root, "setup.exe"), 1)
	mkfile(t, filepath.Join(root, "Thumbs.db"), 1)
	mkfile(t, filepath.Join(root, "notes.xyz"), 1)
	mkfile(t, filepath.Join(root, "build", "x.txt"), 1)
	mkfile(t, filepath.Join(root, ".config", "x.txt"), 1)

	items, err := newLister(t, root, 3, []string{".mkv", ".txt"}).List(root, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(items); !equal(got, []string{"movie.mkv"}) {
		t.Fatalf("names = %v", got)
	}

	items, err = newLister(t, root, 3, nil).List(root, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(items); !equal(got, []string{"movie.mkv", "notes.xyz"}) {
		t.Fatalf("names without allow-list = %v", got)
	}
}

func TestListRecursionBounds(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "a", "b", "c", "deep.txt"), 1)

	items, err := newLister(t, root, 10, nil).List(root, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	a := items[0]
	if len(a.Children) != 1 || a.Children[0].Name != "b" {
		t.Fatalf("expected a/b, got %+v", a.Children)
	}
	if a.Children[0].Children != nil {
		t.Fatal("recursion should stop at the requested depth")
	}

	// sandbox depth limit stops recursion even when more is requested
	items, err = newLister(t, root, 1, nil).List(root, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Children == nil || items[0].Children[0].Children != nil {
		t.Fatalf("sandbox depth should bound recursion: %+v", items[0].Children)
	}
}

func TestListErrors(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "file.txt"), 1)
	l := newLister(t, root, 3, nil)

	if _, err := l.List(filepath.Join(root, "missing"), 0, 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("missing dir error = %v", err)
	}
	if _, err := l.List(filepath.Join(root, "file.txt"), 0, 1); !errors.Is(err, model.ErrNotADirectory) {
		t.Fatalf("file error = %v", err)
	}
}

func TestFlatten(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "a", "1.txt"), 1)
	mkfile(t, filepath.Join(root, "a", "2.txt"), 1)
	mkfile(t, filepath.Join(root, "z.txt"), 1)

	items, err := newLister(t, root, 3, nil).List(root, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	flat := Flatten(items)
	if got := names(flat); !equal(got, []string{"a", "1.txt", "2.txt", "z.txt"}) {
		t.Fatalf("flatten order = %v", got)
	}
	for _, it := range flat {
		if it.Children != nil {
			t.Fatalf("flattened entry %s still has children", it.Name)
		}
	}
	if items[0].Children == nil {
		t.Fatal("Flatten must not modify the input tree")
	}
}

func TestFilterByName(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "shows", "Severance.S01E01.mkv"), 1)
	mkfile(t, filepath.Join(root, "shows", "other.mkv"), 1)
	mkfile(t, filepath.Join(root, "notes.txt"), 1)

	items, err := newLister(t, root, 3, nil).List(root, 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	got := FilterByName(items, "sev")
	if !equal(names(got), []string{"shows"}) {
		t.Fatalf("filtered = %v", names(got))
	}
	if !equal(names(got[0].Children), []string{"Severance.S01E01.mkv"}) {
		t.Fatalf("children = %v", names(got[0].Children))
	}
	if len(items[0].Children) != 2 {
		t.Fatal("FilterByName must not modify the input tree")
	}
	if len(FilterByName(items, "")) != len(items) {
		t.Fatal("empty query keeps everything")
	}
}
