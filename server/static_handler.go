package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mediashelf/core/subtitle"
	"mediashelf/logger"
)

// CacheHandler 输出字幕缓存目录中的 WebVTT 文件，本地缺失时尝试从镜像恢复
type CacheHandler struct {
	cacheRoot string
	mirror    subtitle.ArtifactMirror
}

// NewCacheHandler 创建 CacheHandler 实例，mirror 可以为 nil
func NewCacheHandler(cacheRoot string, mirror subtitle.ArtifactMirror) *CacheHandler {
	return &CacheHandler{cacheRoot: cacheRoot, mirror: mirror}
}

// ServeHTTP 实现 http.Handler 接口
func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, subtitle.URLPrefix)
	key := strings.TrimPrefix(path.Clean("/"+rel), "/")
	if key == "" || !strings.HasSuffix(key, subtitle.ArtifactExt) {
		writeError(w, http.StatusNotFound, "not_found", "Subtitle file not found")
		return
	}

	full := filepath.Join(h.cacheRoot, filepath.FromSlash(key))
	if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) && h.mirror != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		restored, err := h.mirror.Fetch(ctx, key, full)
		cancel()
		if err != nil {
			logger.Warn("restore artifact from mirror failed", logger.String("key", key), logger.ErrorField(err))
		} else if restored {
			logger.Debug("artifact restored from mirror", logger.String("key", key))
		}
	}

	serveFile(w, r, full, "text/vtt; charset=utf-8", "public, max-age=86400")
}

// serveFile 使用 http.ServeContent 输出文件，支持 Range 和条件请求
func serveFile(w http.ResponseWriter, r *http.Request, p, contentType, cacheControl string) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "not_found", "Subtitle file not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to open file")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "not_found", "Subtitle file not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
