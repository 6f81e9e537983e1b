package subtitle

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestFindSidecars(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"Movie.mkv",
		"Movie.en.srt",
		"movie-fre.vtt",
		"Movie_de.forced.ass",
		"Movie.srt",
		"Movie.en.txt",
		"Other.en.srt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	subs := FindSidecars(filepath.Join(dir, "Movie.mkv"))

	got := map[string]string{}
	for _, s := range subs {
		got[s.Name] = s.Language
		u, err := url.Parse(s.URL)
		if err != nil || u.Path != "/api/subtitle-file" || u.Query().Get("path") != s.Path {
			t.Errorf("bad url %q for %s", s.URL, s.Path)
		}
	}
	want := map[string]string{
		"Movie.en.srt":        "en",
		"movie-fre.vtt":       "fre",
		"Movie_de.forced.ass": "de",
		"Movie.srt":           "unknown",
	}
	if len(got) != len(want) {
		t.Fatalf("sidecars = %v", got)
	}
	for name, lang := range want {
		if got[name] != lang {
			t.Errorf("%s language = %q, want %q", name, got[name], lang)
		}
	}
}

func TestFindSidecarsMissingDir(t *testing.T) {
	if subs := FindSidecars(filepath.Join(t.TempDir(), "gone", "x.mkv")); subs == nil || len(subs) != 0 {
		t.Fatalf("subs = %#v", subs)
	}
}
