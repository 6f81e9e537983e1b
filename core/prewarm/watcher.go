// Package prewarm watches the allowed directories and extracts subtitles for
// containers as soon as they appear, so playback finds a warm cache.
package prewarm

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediashelf/core/sandbox"
	"mediashelf/logger"
	"mediashelf/metrics"
	"mediashelf/model"

	"github.com/fsnotify/fsnotify"
)

// Extractor is the part of the subtitle pipeline the watcher drives.
type Extractor interface {
	IsContainer(path string) bool
	EnsureExtracted(ctx context.Context, path string) (*model.ExtractionReport, error)
}

// Watcher 监听允许目录中新增或修改的容器文件
type Watcher struct {
	resolver  *sandbox.Resolver
	extractor Extractor
	debounce  time.Duration

	watcher *fsnotify.Watcher
	pending map[string]time.Time
	wg      sync.WaitGroup
}

// NewWatcher 创建 Watcher 实例
func NewWatcher(resolver *sandbox.Resolver, extractor Extractor, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监听器失败: %w", err)
	}
	return &Watcher{
		resolver:  resolver,
		extractor: extractor,
		debounce:  debounce,
		watcher:   fw,
		pending:   make(map[string]time.Time),
	}, nil
}

// Roots returns the directories the watcher starts from.
func (w *Watcher) Roots() []string {
	bases := w.resolver.ListAllowedBases()
	if len(bases) == 0 {
		if def := w.resolver.Config().DefaultPath; def != "" {
			return []string{def}
		}
		return nil
	}
	roots := make([]string, 0, len(bases))
	for _, b := range bases {
		roots = append(roots, b.Path)
	}
	return roots
}

// Run registers every directory under the roots that is within the depth
// limit and processes events until ctx is cancelled. In-flight extractions
// are waited for before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.wg.Wait()
	defer w.watcher.Close()

	watched := 0
	for _, root := range w.Roots() {
		watched += w.addTree(root, false)
	}
	if watched == 0 {
		return fmt.Errorf("no directories to watch")
	}
	logger.Info("prewarm watcher started",
		logger.Int("directories", watched),
		logger.Duration("debounce", w.debounce))

	tick := w.debounce / 4
	if tick > time.Second {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("prewarm watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case now := <-ticker.C:
			// 文件在 debounce 时间内没有新事件才认为写入完成
			for path, last := range w.pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(w.pending, path)
				w.wg.Add(1)
				go func(p string) {
					defer w.wg.Done()
					w.process(ctx, p)
				}(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			// 新目录里可能已经有文件，注册时一并加入队列
			w.addTree(event.Name, true)
		}
		return
	}
	w.enqueue(event.Name)
}

func (w *Watcher) enqueue(path string) {
	if strings.HasPrefix(filepath.Base(path), ".") || !w.extractor.IsContainer(path) {
		return
	}
	if w.resolver.Check(path) != nil {
		return
	}
	w.pending[path] = time.Now()
}

// addTree 注册 root 及其子目录，返回注册的目录数
func (w *Watcher) addTree(root string, queueFiles bool) int {
	added := 0
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if queueFiles {
				w.enqueue(p)
			}
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if !w.resolver.IsWithinDepth(p) {
			return fs.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			logger.Warn("监听目录失败", logger.String("dir", p), logger.ErrorField(err))
			return fs.SkipDir
		}
		added++
		return nil
	})
	return added
}

func (w *Watcher) process(ctx context.Context, path string) {
	report, err := w.extractor.EnsureExtracted(ctx, path)
	switch {
	case err != nil:
		metrics.PrewarmRunsTotal.WithLabelValues("failed").Inc()
		logger.Warn("prewarm extraction failed", logger.String("path", path), logger.ErrorField(err))
	case report.Skipped:
		metrics.PrewarmRunsTotal.WithLabelValues("skipped").Inc()
	default:
		metrics.PrewarmRunsTotal.WithLabelValues("ok").Inc()
		logger.Info("prewarm extraction finished",
			logger.String("path", path),
			logger.String("message", report.Message))
	}
}
