// Package listing walks permitted directories into FileSystemEntry trees.
package listing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mediashelf/core/sandbox"
	"mediashelf/logger"
	"mediashelf/model"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Lister 目录列表服务
type Lister struct {
	resolver *sandbox.Resolver
	filter   *Filter
}

// NewLister 创建 Lister 实例
func NewLister(resolver *sandbox.Resolver, filter *Filter) *Lister {
	if filter == nil {
		filter = NewFilter(nil)
	}
	return &Lister{resolver: resolver, filter: filter}
}

// List reads dir and, while depth < maxDepth, its visible subfolders.
// Only a failure to read dir itself is returned; unreadable subfolders
// come back without children.
func (l *Lister) List(dir string, depth, maxDepth int) ([]*model.FileSystemEntry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, classify(dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", model.ErrNotADirectory, dir)
	}

	// collator 不是并发安全的，每次调用单独创建
	col := collate.New(language.Und)
	return l.read(col, dir, depth, maxDepth)
}

func (l *Lister) read(col *collate.Collator, dir string, depth, maxDepth int) ([]*model.FileSystemEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify(dir, err)
	}

	items := make([]*model.FileSystemEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		full := filepath.Join(dir, name)

		// 跟随符号链接获取目标信息，失败的条目直接跳过
		info, err := os.Stat(full)
		if err != nil {
			logger.Debug("skip entry that cannot be stat'ed", logger.String("path", full), logger.ErrorField(err))
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if info.IsDir() {
			if !l.filter.ShowFolder(name) {
				continue
			}
		} else if !l.filter.ShowFile(name, ext) {
			continue
		}

		id := filepath.ToSlash(full)
		size := info.Size()
		modified := info.ModTime().UTC()
		item := &model.FileSystemEntry{
			ID:       id,
			Name:     name,
			Path:     id,
			Size:     &size,
			Modified: &modified,
		}

		if info.IsDir() {
			item.Type = model.EntryFolder
			if depth < maxDepth && l.resolver.IsWithinDepth(full) {
				children, err := l.read(col, full, depth+1, maxDepth)
				if err != nil {
					logger.Debug("could not read subdirectory", logger.String("path", full), logger.ErrorField(err))
				} else {
					item.Children = children
				}
			}
		} else {
			item.Type = model.EntryFile
			item.Extension = strings.TrimPrefix(ext, ".")
		}

		items = append(items, item)
	}

	sortEntries(col, items)
	return items, nil
}

// sortEntries 文件夹在前，同类按名称排序
func sortEntries(col *collate.Collator, items []*model.FileSystemEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Type != b.Type {
			return a.Type == model.EntryFolder
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.Name < b.Name
	})
}

// Flatten returns a pre-order copy of the tree with children removed.
func Flatten(items []*model.FileSystemEntry) []*model.FileSystemEntry {
	var out []*model.FileSystemEntry
	for _, item := range items {
		flat := *item
		flat.Children = nil
		out = append(out, &flat)
		if len(item.Children) > 0 {
			out = append(out, Flatten(item.Children)...)
		}
	}
	return out
}

// FilterByName keeps entries whose name fuzzy-matches query. A folder is kept
// when its own name matches or when any descendant does.
func FilterByName(items []*model.FileSystemEntry, query string) []*model.FileSystemEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	out := make([]*model.FileSystemEntry, 0, len(items))
	for _, item := range items {
		matched := fuzzy.MatchFold(query, item.Name)
		if item.IsFolder() && len(item.Children) > 0 {
			kept := FilterByName(item.Children, query)
			if matched || len(kept) > 0 {
				copied := *item
				if !matched {
					copied.Children = kept
				}
				out = append(out, &copied)
			}
			continue
		}
		if matched {
			out = append(out, item)
		}
	}
	return out
}

func classify(path string, err error) error {
	// 不存在和无权限都按 404 处理
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, path)
	}
	return fmt.Errorf("%w: %v", model.ErrIO, err)
}
