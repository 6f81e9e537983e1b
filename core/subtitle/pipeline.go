package subtitle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediashelf/core/sandbox"
	"mediashelf/logger"
	"mediashelf/metrics"
	"mediashelf/model"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	msgNotContainer = "Not an MKV file, no subtitle extraction needed"
	msgNoStreams    = "No subtitle tracks found in the MKV file"
)

// ArtifactMirror 可选的远端字幕副本
type ArtifactMirror interface {
	// Fetch downloads key into dest; false means the mirror does not have it.
	Fetch(ctx context.Context, key, dest string) (bool, error)
	Publish(ctx context.Context, key, src string) error
}

// PipelineConfig 提取流水线配置
type PipelineConfig struct {
	CacheRoot           string
	ContainerExtensions []string      // 小写，带点
	ExtractTimeout      time.Duration // 单个字幕流的超时
	MaxConcurrent       int           // 同时运行的 ffmpeg 数
}

// Pipeline 字幕提取流水线
type Pipeline struct {
	cfg       PipelineConfig
	resolver  *sandbox.Resolver
	inspector MediaInspector
	mirror    ArtifactMirror

	sem   *semaphore.Weighted
	group singleflight.Group
}

// NewPipeline 创建 Pipeline 实例，mirror 可以为 nil
func NewPipeline(cfg PipelineConfig, resolver *sandbox.Resolver, inspector MediaInspector, mirror ArtifactMirror) *Pipeline {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 5 * time.Minute
	}
	return &Pipeline{
		cfg:       cfg,
		resolver:  resolver,
		inspector: inspector,
		mirror:    mirror,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// IsContainer reports whether p has one of the configured container extensions.
func (p *Pipeline) IsContainer(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range p.cfg.ContainerExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// EnsureExtracted makes sure every subtitle stream of the container at path
// has a cached WebVTT artifact. Errors are returned only for request-level
// failures; a failing stream is recorded in the report and does not stop its
// siblings.
func (p *Pipeline) EnsureExtracted(ctx context.Context, path string) (*model.ExtractionReport, error) {
	if err := p.resolver.Check(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", model.ErrNotAFile, path)
	}

	if !p.IsContainer(path) {
		return &model.ExtractionReport{
			Success: true,
			Skipped: true,
			Message: msgNotContainer,
			Results: []model.StreamOutcome{},
		}, nil
	}

	if err := p.inspector.Available(ctx); err != nil {
		if !errors.Is(err, model.ErrToolchainUnavailable) {
			err = fmt.Errorf("%w: %v", model.ErrToolchainUnavailable, err)
		}
		return nil, err
	}

	streams, err := p.inspector.ProbeSubtitles(ctx, path)
	if err != nil {
		if !errors.Is(err, model.ErrProbeFailed) && !errors.Is(err, model.ErrToolchainUnavailable) {
			err = fmt.Errorf("%w: %v", model.ErrProbeFailed, err)
		}
		return nil, err
	}

	if len(streams) == 0 {
		return &model.ExtractionReport{
			Success: false,
			Message: msgNoStreams,
			Results: []model.StreamOutcome{},
		}, nil
	}

	sourceKey, relDir := p.resolver.Locate(path)
	dir := CacheDir(p.cfg.CacheRoot, sourceKey, relDir)
	base := ArtifactBase(path, p.cfg.ContainerExtensions)

	// 客户端断开不取消提取，结果仍然写入缓存
	workCtx := context.WithoutCancel(ctx)

	report := &model.ExtractionReport{Results: make([]model.StreamOutcome, 0, len(streams))}
	for _, s := range streams {
		lang := SanitizeLanguage(s.Language)
		title := s.Title
		if title == "" {
			title = fmt.Sprintf("Subtitle %d", s.Index)
		}
		name := ArtifactName(base, lang, s.Index)

		outcome := model.StreamOutcome{
			Track:    s.Index,
			Language: lang,
			Title:    title,
			Path:     ArtifactURL(sourceKey, relDir, name),
		}

		status, err := p.ensureArtifact(workCtx, path, s.Index, filepath.Join(dir, name), ObjectKey(sourceKey, relDir, name))
		outcome.Status = status
		if err != nil {
			outcome.Success = false
			outcome.Path = ""
			outcome.Error = fmt.Sprintf("Failed to extract subtitle track %d", s.Index)
			outcome.Details = err.Error()
			logger.Warn("subtitle extraction failed",
				logger.String("path", path),
				logger.Int("track", s.Index),
				logger.ErrorField(err))
		} else {
			outcome.Success = true
			outcome.Message = statusMessage(status)
		}
		metrics.SubtitleStreamsTotal.WithLabelValues(string(status)).Inc()
		report.Results = append(report.Results, outcome)
	}

	extracted := report.Extracted()
	report.Success = extracted > 0
	report.Message = fmt.Sprintf("Processed %d subtitle tracks (%d successful)", len(report.Results), extracted)

	logger.Info("subtitle extraction finished",
		logger.String("path", path),
		logger.Int("tracks", len(report.Results)),
		logger.Int("successful", extracted))
	return report, nil
}

// ensureArtifact 保证 dest 存在。同一进程内对同一个 dest 的并发请求只执行一次
func (p *Pipeline) ensureArtifact(ctx context.Context, src string, index int, dest, key string) (model.StreamStatus, error) {
	if artifactExists(dest) {
		return model.StatusCached, nil
	}

	v, err, _ := p.group.Do(dest, func() (interface{}, error) {
		if artifactExists(dest) {
			return model.StatusCached, nil
		}

		if p.mirror != nil {
			ok, err := p.mirror.Fetch(ctx, key, dest)
			if err != nil {
				logger.Warn("mirror fetch failed", logger.String("key", key), logger.ErrorField(err))
			} else if ok {
				return model.StatusRestored, nil
			}
		}

		extractCtx, cancel := context.WithTimeout(ctx, p.cfg.ExtractTimeout)
		defer cancel()

		if err := p.sem.Acquire(extractCtx, 1); err != nil {
			return model.StatusFailed, fmt.Errorf("%w: waiting for a worker: %v", model.ErrExtractionFailed, err)
		}
		defer p.sem.Release(1)

		start := time.Now()
		err := p.inspector.ExtractSubtitle(extractCtx, src, index, dest)
		metrics.SubtitleExtractDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return model.StatusFailed, err
		}

		if p.mirror != nil {
			if err := p.mirror.Publish(ctx, key, dest); err != nil {
				logger.Warn("mirror publish failed", logger.String("key", key), logger.ErrorField(err))
			}
		}
		return model.StatusExtracted, nil
	})
	if err != nil {
		return model.StatusFailed, err
	}
	return v.(model.StreamStatus), nil
}

func artifactExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func statusMessage(s model.StreamStatus) string {
	switch s {
	case model.StatusCached:
		return "Already exists"
	case model.StatusRestored:
		return "Restored from mirror"
	default:
		return "Successfully extracted"
	}
}
