package subtitle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"mediashelf/core/sandbox"
	"mediashelf/model"
)

// Index 查询已缓存的字幕，不调用外部工具
type Index struct {
	cacheRoot     string
	resolver      *sandbox.Resolver
	containerExts []string
}

// NewIndex 创建 Index 实例，containerExts 必须与 Pipeline 的配置一致
func NewIndex(cacheRoot string, resolver *sandbox.Resolver, containerExts []string) *Index {
	return &Index{cacheRoot: cacheRoot, resolver: resolver, containerExts: containerExts}
}

// ListCached returns the tracks already extracted for the container at path,
// ordered by stream index. A missing cache directory yields an empty list.
func (x *Index) ListCached(path string) ([]model.SubtitleTrack, error) {
	sourceKey, relDir := x.resolver.Locate(path)
	dir := CacheDir(x.cacheRoot, sourceKey, relDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.SubtitleTrack{}, nil
		}
		return nil, fmt.Errorf("%w: read cache dir: %v", model.ErrIO, err)
	}

	base := ArtifactBase(path, x.containerExts)
	prefix := base + "-"

	tracks := []model.SubtitleTrack{}
	position := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ArtifactExt) {
			continue
		}

		index, lang := position, model.UnknownLanguage
		if parsedBase, parsedLang, parsedIndex, ok := ParseArtifactName(name); ok {
			// 另一个容器的名字恰好以 base- 开头，例如 movie 与 movie-extended
			if parsedBase != base {
				continue
			}
			index, lang = parsedIndex, parsedLang
		}
		position++

		tracks = append(tracks, model.SubtitleTrack{
			Index:    index,
			Language: lang,
			Label:    fmt.Sprintf("Subtitle %d (%s)", index, lang),
			FileName: name,
			URL:      ArtifactURL(sourceKey, relDir, name),
		})
	}

	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Index < tracks[j].Index })
	return tracks, nil
}
