package subtitle

import (
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"mediashelf/model"
)

// ArtifactExt is the extension of extracted subtitle files.
const ArtifactExt = ".vtt"

// URLPrefix is where cached artifacts are served from.
const URLPrefix = "/cache/subtitles"

// ContainerBase returns the file name of p without its extension.
func ContainerBase(p string) string {
	name := filepath.Base(p)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ArtifactBase returns the base used in artifact names for the container at p.
// With a single configured container extension it is the file name without
// that extension; otherwise the full file name is kept so movie.mkv and
// movie.mp4 in one directory do not share artifacts.
func ArtifactBase(p string, containerExts []string) string {
	name := filepath.Base(p)
	if len(containerExts) == 1 && filepath.Ext(name) == containerExts[0] {
		return strings.TrimSuffix(name, containerExts[0])
	}
	return name
}

// SanitizeLanguage makes a language tag safe for use inside an artifact
// file name. Anything outside [A-Za-z0-9_] becomes "_", so the tag never
// contains the "-" separator.
func SanitizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return model.UnknownLanguage
	}
	var b strings.Builder
	for _, c := range lang {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ArtifactName 生成缓存文件名 {base}-{lang}-{index}.vtt
func ArtifactName(base, lang string, index int) string {
	return base + "-" + SanitizeLanguage(lang) + "-" + strconv.Itoa(index) + ArtifactExt
}

// ParseArtifactName splits a cache file name back into its parts, reading
// from the right so that container names containing "-" survive.
func ParseArtifactName(name string) (base, lang string, index int, ok bool) {
	if !strings.HasSuffix(name, ArtifactExt) {
		return "", "", 0, false
	}
	stem := strings.TrimSuffix(name, ArtifactExt)

	i := strings.LastIndex(stem, "-")
	if i < 0 {
		return "", "", 0, false
	}
	index, err := strconv.Atoi(stem[i+1:])
	if err != nil || index < 0 {
		return "", "", 0, false
	}

	rest := stem[:i]
	// base 可以为空，例如名为 .mkv 的容器
	j := strings.LastIndex(rest, "-")
	if j < 0 || j == len(rest)-1 {
		return "", "", 0, false
	}
	return rest[:j], rest[j+1:], index, true
}

// CacheDir returns cacheRoot/{sourceKey}/{relDir}.
func CacheDir(cacheRoot, sourceKey, relDir string) string {
	return filepath.Join(cacheRoot, sourceKey, filepath.FromSlash(relDir))
}

// ObjectKey is the slash separated key of an artifact relative to the cache root.
func ObjectKey(sourceKey, relDir, fileName string) string {
	return path.Join(sourceKey, relDir, fileName)
}

// ArtifactURL builds the playback URL for an artifact.
func ArtifactURL(sourceKey, relDir, fileName string) string {
	segments := []string{sourceKey}
	if relDir != "" {
		segments = append(segments, strings.Split(relDir, "/")...)
	}
	segments = append(segments, fileName)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return URLPrefix + "/" + strings.Join(segments, "/")
}
