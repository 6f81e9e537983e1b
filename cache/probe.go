// Package cache keeps ffprobe results so repeated extraction requests for an
// unchanged container skip the probe.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"mediashelf/config"
	"mediashelf/core/subtitle"
	"mediashelf/logger"
	"mediashelf/metrics"
	"mediashelf/model"
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// ProbeCache 包装 MediaInspector，缓存 ProbeSubtitles 的结果
type ProbeCache struct {
	subtitle.MediaInspector
	store Store
	ttl   time.Duration
}

// NewProbeCache 创建 ProbeCache 实例
func NewProbeCache(inner subtitle.MediaInspector, store Store, ttl time.Duration) *ProbeCache {
	return &ProbeCache{MediaInspector: inner, store: store, ttl: ttl}
}

// ProbeSubtitles 先查缓存，未命中时调用内部探测并写回。缓存故障只记录日志
func (c *ProbeCache) ProbeSubtitles(ctx context.Context, path string) ([]model.SubtitleStream, error) {
	key, err := probeKey(path)
	if err != nil {
		return c.MediaInspector.ProbeSubtitles(ctx, path)
	}

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.ProbeCacheTotal.WithLabelValues("error").Inc()
		logger.Warn("probe cache read failed", logger.String("path", path), logger.ErrorField(err))
	case ok:
		var streams []model.SubtitleStream
		if err := json.Unmarshal(data, &streams); err == nil {
			metrics.ProbeCacheTotal.WithLabelValues("hit").Inc()
			return streams, nil
		}
	}
	if err == nil {
		metrics.ProbeCacheTotal.WithLabelValues("miss").Inc()
	}

	streams, err := c.MediaInspector.ProbeSubtitles(ctx, path)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(streams); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			logger.Warn("probe cache write failed", logger.String("path", path), logger.ErrorField(err))
		}
	}
	return streams, nil
}

// probeKey 由路径、大小和修改时间生成，文件变化后自然失效
func probeKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	h := sha1.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OpenStore returns the store selected by PROBE_CACHE_BACKEND, or nil for "none".
func OpenStore(cfg *config.Config) (Store, error) {
	switch cfg.ProbeCacheBackend {
	case "", "none":
		return nil, nil
	case "bolt":
		return OpenBolt(cfg.ProbeCachePath)
	case "redis":
		return ConnectRedis(cfg)
	default:
		return nil, fmt.Errorf("unknown probe cache backend %q", cfg.ProbeCacheBackend)
	}
}

// Wrap 根据配置为 inspector 加上探测缓存；返回的 close 函数总是非 nil
func Wrap(cfg *config.Config, inspector subtitle.MediaInspector) (subtitle.MediaInspector, func() error, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return inspector, func() error { return nil }, nil
	}
	logger.Info("probe cache enabled",
		logger.String("backend", cfg.ProbeCacheBackend),
		logger.Duration("ttl", cfg.ProbeCacheTTL))
	return NewProbeCache(inspector, store, cfg.ProbeCacheTTL), store.Close, nil
}
