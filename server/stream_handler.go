package server

import (
	"net/http"
	"strings"

	"mediashelf/core/sandbox"
	"mediashelf/core/stream"
	"mediashelf/logger"
	"mediashelf/metrics"
)

const videoRESTPrefix = "/api/videos/filesystem/"

// VideoHandler 处理视频字节流请求，支持 Range 和 HEAD
type VideoHandler struct {
	resolver *sandbox.Resolver
	engine   *stream.Engine
}

// NewVideoHandler 创建 VideoHandler 实例
func NewVideoHandler(resolver *sandbox.Resolver, engine *stream.Engine) *VideoHandler {
	return &VideoHandler{resolver: resolver, engine: engine}
}

// videoPath 从查询参数或 REST 路径中取出未解码的文件路径
func videoPath(r *http.Request) string {
	if escaped := r.URL.EscapedPath(); strings.HasPrefix(escaped, videoRESTPrefix) {
		rest := strings.TrimPrefix(escaped, videoRESTPrefix)
		if rest == "" {
			return ""
		}
		return "/" + rest
	}
	raw, _ := rawQueryParam(r, "path")
	return raw
}

// ServeHTTP 实现 http.Handler 接口
func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := videoPath(r)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_path", "Path parameter is required")
		return
	}

	resolved, err := h.resolver.Resolve(raw)
	if err != nil {
		respondError(w, err, "File not found")
		return
	}

	src, err := h.engine.Open(resolved.Path)
	if err != nil {
		respondError(w, err, "File not found")
		return
	}

	result, err := stream.Serve(w, r, src)
	metrics.StreamedBytesTotal.Add(float64(result.Written))
	if err == nil {
		return
	}
	if !result.HeaderWritten {
		// 还没有写出二进制内容，可以返回 JSON 错误
		respondError(w, err, "File not found")
		return
	}
	if r.Context().Err() != nil {
		// 客户端断开，播放器拖动进度时很常见
		return
	}
	logger.Debug("video stream interrupted",
		logger.String("path", resolved.Path),
		logger.Int64("written", result.Written),
		logger.ErrorField(err))
}
