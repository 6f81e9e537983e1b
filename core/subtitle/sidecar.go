package subtitle

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"mediashelf/model"
)

// SidecarContentTypes maps subtitle file extensions to their media type.
var SidecarContentTypes = map[string]string{
	".vtt": "text/vtt",
	".srt": "text/srt",
	".ass": "text/x-ssa",
	".ssa": "text/x-ssa",
}

// 视频名之后的语言代码: movie.en.srt, movie-eng.vtt, movie_fr.forced.ass
var sidecarLangPattern = regexp.MustCompile(`^[._-]([A-Za-z]{2,3})(?:[._-]|$)`)

// FindSidecars lists subtitle files next to video whose names start with the
// video's base name. Directory read errors produce an empty list.
func FindSidecars(video string) []model.SidecarSubtitle {
	dir := filepath.Dir(video)
	base := strings.ToLower(ContainerBase(video))

	out := []model.SidecarSubtitle{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}

	for _, e := range entries {
		name := e.Name()
		lower := strings.ToLower(name)
		ext := filepath.Ext(lower)
		if e.IsDir() || !strings.HasPrefix(lower, base) {
			continue
		}
		if _, ok := SidecarContentTypes[ext]; !ok || len(lower)-len(ext) < len(base) {
			continue
		}

		lang := model.UnknownLanguage
		rest := lower[len(base) : len(lower)-len(ext)]
		if m := sidecarLangPattern.FindStringSubmatch(rest); m != nil {
			lang = strings.ToLower(m[1])
		}

		full := filepath.Join(dir, name)
		out = append(out, model.SidecarSubtitle{
			Name:     name,
			Path:     filepath.ToSlash(full),
			Language: lang,
			Format:   strings.TrimPrefix(ext, "."),
			URL:      fmt.Sprintf("/api/subtitle-file?path=%s", url.QueryEscape(filepath.ToSlash(full))),
		})
	}
	return out
}
