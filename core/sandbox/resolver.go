// Package sandbox turns caller supplied paths into absolute paths and decides
// whether they fall inside the configured allow-list.
package sandbox

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mediashelf/config"
	"mediashelf/model"
)

// RootSourceKey groups cache artifacts for paths that sit outside every allowed base.
const RootSourceKey = "_root"

// ErrDepthExceeded is the AccessDenied variant for paths nested too deeply.
var ErrDepthExceeded = fmt.Errorf("%w: path exceeds the maximum depth", model.ErrAccessDenied)

// Resolved 解析后的请求路径
type Resolved struct {
	Path string // 绝对、规范化路径
	Root bool   // 请求的是根标记 "", "." 或 "/"
}

// Resolver 负责路径解析和访问控制
type Resolver struct {
	cfg      config.PathConfig
	workDir  string
	bases    []model.AllowedBase
	keys     []string
	refDepth int
}

// NewResolver 创建 Resolver 实例，保存一份配置副本
func NewResolver(cfg config.PathConfig) *Resolver {
	bases := make([]string, 0, len(cfg.AllowedBasePaths))
	for _, b := range cfg.AllowedBasePaths {
		bases = append(bases, filepath.Clean(b))
	}
	cfg.AllowedBasePaths = bases
	if cfg.DefaultPath != "" {
		cfg.DefaultPath = filepath.Clean(cfg.DefaultPath)
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = cfg.DefaultPath
	}

	r := &Resolver{cfg: cfg, workDir: wd}

	assigned := make(map[string]bool)
	for _, b := range bases {
		name := filepath.Base(b)
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = b
		}
		r.bases = append(r.bases, model.AllowedBase{Path: b, Name: name})

		// 后缀也可能与其他根目录自己的名字相同，例如 movies, movies, movies-2
		key := sanitizeKey(name)
		for n := 2; assigned[key]; n++ {
			key = sanitizeKey(name) + "-" + strconv.Itoa(n)
		}
		assigned[key] = true
		r.keys = append(r.keys, key)

		if d := segmentCount(b); d > r.refDepth {
			r.refDepth = d
		}
	}
	if len(bases) == 0 {
		r.refDepth = segmentCount(cfg.DefaultPath)
	}
	return r
}

// Config returns the path configuration the resolver was built with.
func (r *Resolver) Config() config.PathConfig {
	return r.cfg
}

// Resolve URL-decodes raw and normalizes it into an absolute path.
func (r *Resolver) Resolve(raw string) (Resolved, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return Resolved{}, fmt.Errorf("%w: %v", model.ErrInvalidPath, err)
	}
	if strings.ContainsRune(decoded, 0) {
		return Resolved{}, fmt.Errorf("%w: contains NUL byte", model.ErrInvalidPath)
	}

	unified := strings.ReplaceAll(decoded, `\`, "/")
	switch strings.TrimSpace(unified) {
	case "", ".", "/":
		return Resolved{Path: r.cfg.DefaultPath, Root: true}, nil
	}

	p := filepath.FromSlash(unified)
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.relativeRoot(), p)
	}
	return Resolved{Path: filepath.Clean(p)}, nil
}

func (r *Resolver) relativeRoot() string {
	if r.cfg.EnforceAllowedPaths && len(r.cfg.AllowedBasePaths) > 0 {
		return r.cfg.AllowedBasePaths[0]
	}
	return r.workDir
}

// IsAllowed reports whether p lies inside (or equals) an allowed base.
// Always true when enforcement is disabled.
func (r *Resolver) IsAllowed(p string) bool {
	if !r.cfg.EnforceAllowedPaths {
		return true
	}
	return r.baseIndex(p) >= 0
}

// IsWithinDepth reports whether p is no deeper than the deepest base plus MaxDepth.
func (r *Resolver) IsWithinDepth(p string) bool {
	return segmentCount(p) <= r.refDepth+r.cfg.MaxDepth
}

// Check 组合 IsAllowed 和 IsWithinDepth，不通过时返回 ErrAccessDenied
func (r *Resolver) Check(p string) error {
	if !r.IsAllowed(p) {
		return fmt.Errorf("%w: %s is outside the allowed paths", model.ErrAccessDenied, p)
	}
	if !r.IsWithinDepth(p) {
		return fmt.Errorf("%w: %s", ErrDepthExceeded, p)
	}
	return nil
}

// ResolveChecked resolves raw and applies the sandbox checks.
func (r *Resolver) ResolveChecked(raw string) (Resolved, error) {
	res, err := r.Resolve(raw)
	if err != nil {
		return res, err
	}
	if err := r.Check(res.Path); err != nil {
		return res, err
	}
	return res, nil
}

// ListAllowedBases 返回允许访问的根目录及显示名
func (r *Resolver) ListAllowedBases() []model.AllowedBase {
	out := make([]model.AllowedBase, len(r.bases))
	copy(out, r.bases)
	return out
}

// Locate maps the directory containing file to a cache source key and the
// directory path relative to that source, using the deepest matching base.
func (r *Resolver) Locate(file string) (sourceKey, relDir string) {
	dir := filepath.Dir(filepath.Clean(file))
	if i := r.baseIndex(dir); i >= 0 {
		rel, err := filepath.Rel(r.bases[i].Path, dir)
		if err == nil {
			if rel == "." {
				rel = ""
			}
			return r.keys[i], filepath.ToSlash(rel)
		}
	}

	rel := filepath.ToSlash(strings.TrimPrefix(dir, filepath.VolumeName(dir)))
	return RootSourceKey, strings.Trim(rel, "/")
}

// baseIndex 返回包含 p 的最深根目录下标，没有时返回 -1
func (r *Resolver) baseIndex(p string) int {
	best, bestDepth := -1, -1
	for i, b := range r.bases {
		if !contains(b.Path, p) {
			continue
		}
		if d := segmentCount(b.Path); d > bestDepth {
			best, bestDepth = i, d
		}
	}
	return best
}

// contains 按词法判断 p 是否位于 base 内部，/data/foo 不属于 /data/fo
func contains(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func segmentCount(p string) int {
	n := 0
	for _, s := range strings.Split(filepath.ToSlash(filepath.Clean(p)), "/") {
		if s != "" {
			n++
		}
	}
	return n
}

func sanitizeKey(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	key := strings.Trim(b.String(), ".")
	if key == "" || key == RootSourceKey {
		key = "base" + key
	}
	return key
}
