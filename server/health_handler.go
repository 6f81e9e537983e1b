package server

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler 报告 ffmpeg/ffprobe 是否可用
type HealthHandler struct {
	toolchain ToolchainDetector
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(toolchain ToolchainDetector) *HealthHandler {
	return &HealthHandler{toolchain: toolchain}
}

// ServeHTTP 实现 http.Handler 接口
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report := h.toolchain.DetectToolchain(ctx)
	status := http.StatusOK
	if !report.AllRequiredPresent {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
