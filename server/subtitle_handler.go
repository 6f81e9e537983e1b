package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediashelf/core/sandbox"
	"mediashelf/core/subtitle"
	"mediashelf/model"
)

// SubtitleHandler 处理字幕提取和查询请求
type SubtitleHandler struct {
	resolver *sandbox.Resolver
	pipeline *subtitle.Pipeline
	index    *subtitle.Index
}

// NewSubtitleHandler 创建 SubtitleHandler 实例
func NewSubtitleHandler(resolver *sandbox.Resolver, pipeline *subtitle.Pipeline, index *subtitle.Index) *SubtitleHandler {
	return &SubtitleHandler{resolver: resolver, pipeline: pipeline, index: index}
}

// resolveParam 读取 path 参数并通过沙箱检查
func (h *SubtitleHandler) resolveParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw, _ := rawQueryParam(r, "path")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_path", "Path parameter is required")
		return "", false
	}
	resolved, err := h.resolver.ResolveChecked(raw)
	if err != nil {
		respondError(w, err, "Video file not found")
		return "", false
	}
	return resolved.Path, true
}

// requireFile 检查视频文件存在
func requireFile(w http.ResponseWriter, p, notFound string) bool {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			writeError(w, http.StatusNotFound, "not_found", notFound)
			return false
		}
		respondError(w, err, notFound)
		return false
	}
	if !info.Mode().IsRegular() {
		writeError(w, http.StatusBadRequest, "not_a_file", "Path is not a file")
		return false
	}
	return true
}

// Extract 提取容器内的全部字幕流
func (h *SubtitleHandler) Extract(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolveParam(w, r)
	if !ok {
		return
	}

	report, err := h.pipeline.EnsureExtracted(r.Context(), p)
	if err != nil {
		respondError(w, err, "Video file not found")
		return
	}
	if report.Skipped {
		writeJSON(w, http.StatusBadRequest, extractSkippedResponse{
			Success: false,
			Message: report.Message,
			Error:   report.Message,
			Code:    "unsupported_container",
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type extractSkippedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type subtitlesResponse struct {
	Subtitles interface{} `json:"subtitles"`
}

// List 返回已经提取到缓存的字幕
func (h *SubtitleHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolveParam(w, r)
	if !ok || !requireFile(w, p, "Video file not found") {
		return
	}

	tracks, err := h.index.ListCached(p)
	if err != nil {
		respondError(w, err, "Video file not found")
		return
	}
	writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: tracks})
}

// Sidecar 返回视频同目录下的外挂字幕
func (h *SubtitleHandler) Sidecar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolveParam(w, r)
	if !ok || !requireFile(w, p, "Video file not found") {
		return
	}

	subs := subtitle.FindSidecars(p)
	visible := make([]model.SidecarSubtitle, 0, len(subs))
	for _, s := range subs {
		// 同目录一般都在沙箱内，深度边界上的文件例外
		if h.resolver.Check(filepath.FromSlash(s.Path)) == nil {
			visible = append(visible, s)
		}
	}
	writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: visible})
}

// File 输出沙箱内的字幕文件
func (h *SubtitleHandler) File(w http.ResponseWriter, r *http.Request) {
	p, ok := h.resolveParam(w, r)
	if !ok {
		return
	}

	ext := strings.ToLower(filepath.Ext(p))
	contentType, supported := subtitle.SidecarContentTypes[ext]
	if !supported {
		writeError(w, http.StatusBadRequest, "unsupported_format", "File is not a supported subtitle format")
		return
	}
	if !requireFile(w, p, "Subtitle file not found") {
		return
	}

	serveFile(w, r, p, contentType, "public, max-age=3600")
}
