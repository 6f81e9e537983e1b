package server

import (
	"context"
	"fmt"

	"mediashelf/cache"
	"mediashelf/config"
	"mediashelf/core/listing"
	"mediashelf/core/sandbox"
	"mediashelf/core/stream"
	"mediashelf/core/subtitle"
	"mediashelf/logger"
	"mediashelf/storage"
)

// ToolchainDetector reports the state of the external media tools.
type ToolchainDetector interface {
	DetectToolchain(ctx context.Context) subtitle.ToolchainReport
}

// Deps 服务依赖的组件，启动时构建一次
type Deps struct {
	Config    *config.Config
	Resolver  *sandbox.Resolver
	Lister    *listing.Lister
	Engine    *stream.Engine
	Pipeline  *subtitle.Pipeline
	Index     *subtitle.Index
	Toolchain ToolchainDetector
	Mirror    subtitle.ArtifactMirror // 可以为 nil
}

// BuildDeps 根据配置构建所有组件。返回的 cleanup 关闭探测缓存
func BuildDeps(ctx context.Context, cfg *config.Config) (*Deps, func(), error) {
	resolver := sandbox.NewResolver(cfg.Paths)
	ffmpeg := subtitle.NewFFmpegInspector(cfg.FFmpegPath, cfg.FFprobePath)

	inspector, closeCache, err := cache.Wrap(cfg, ffmpeg)
	if err != nil {
		return nil, nil, fmt.Errorf("probe cache: %w", err)
	}

	var mirror subtitle.ArtifactMirror
	if cfg.MinioEnabled() {
		m, err := storage.NewMinioMirror(ctx, cfg)
		if err != nil {
			// 镜像只是加速，不可用时继续本地提取
			logger.Warn("MinIO mirror disabled", logger.ErrorField(err))
		} else {
			mirror = m
		}
	}

	pipeline := subtitle.NewPipeline(subtitle.PipelineConfig{
		CacheRoot:           cfg.SubtitleCacheDir,
		ContainerExtensions: cfg.ContainerExtensions,
		ExtractTimeout:      cfg.ExtractTimeout,
		MaxConcurrent:       cfg.MaxConcurrentExtractions,
	}, resolver, inspector, mirror)

	deps := &Deps{
		Config:    cfg,
		Resolver:  resolver,
		Lister:    listing.NewLister(resolver, listing.NewFilter(cfg.ListAllowedExtensions)),
		Engine:    stream.NewEngine(resolver),
		Pipeline:  pipeline,
		Index:     subtitle.NewIndex(cfg.SubtitleCacheDir, resolver, cfg.ContainerExtensions),
		Toolchain: ffmpeg,
		Mirror:    mirror,
	}
	cleanup := func() {
		if err := closeCache(); err != nil {
			logger.Warn("close probe cache", logger.ErrorField(err))
		}
	}
	return deps, cleanup, nil
}
