package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mediashelf/core/sandbox"
	"mediashelf/core/stream"
	"mediashelf/logger"
	"mediashelf/model"
)

// errorResponse 统一的错误响应
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug("write json response failed", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// statusFor 把错误分类映射为 HTTP 状态码和错误码
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidPath):
		return http.StatusBadRequest, "invalid_path"
	case errors.Is(err, model.ErrAccessDenied):
		return http.StatusForbidden, "access_denied"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrNotADirectory):
		return http.StatusNotFound, "not_a_directory"
	case errors.Is(err, model.ErrNotAFile):
		return http.StatusBadRequest, "not_a_file"
	case errors.Is(err, model.ErrUnsupportedContainer):
		return http.StatusBadRequest, "unsupported_container"
	case errors.Is(err, stream.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable"
	case errors.Is(err, model.ErrToolchainUnavailable):
		return http.StatusInternalServerError, "toolchain_unavailable"
	case errors.Is(err, model.ErrProbeFailed):
		return http.StatusInternalServerError, "probe_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// messageFor 返回给用户看的错误信息
func messageFor(err error, notFound string) string {
	switch {
	case errors.Is(err, model.ErrInvalidPath):
		return "Invalid path"
	case errors.Is(err, model.ErrAccessDenied):
		if errors.Is(err, sandbox.ErrDepthExceeded) {
			return "Access denied: Path exceeds maximum allowed depth"
		}
		return "Access denied: Path not in allowed base paths"
	case errors.Is(err, model.ErrNotFound):
		return notFound
	case errors.Is(err, model.ErrNotADirectory):
		return "Path is not a directory"
	case errors.Is(err, model.ErrNotAFile):
		return "Path is not a file"
	case errors.Is(err, model.ErrToolchainUnavailable):
		return "ffmpeg/ffprobe is not available"
	case errors.Is(err, model.ErrProbeFailed):
		return "Failed to read subtitle streams"
	default:
		return err.Error()
	}
}

func respondError(w http.ResponseWriter, err error, notFound string) {
	status, code := statusFor(err)
	resp := errorResponse{Error: messageFor(err, notFound), Code: code}
	if status >= 500 {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// rawQueryParam 返回未解码的查询参数，路径只由 Resolver 解码一次
func rawQueryParam(r *http.Request, key string) (string, bool) {
	for _, part := range strings.Split(r.URL.RawQuery, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k == key {
			return strings.ReplaceAll(v, "+", "%20"), true
		}
	}
	return "", false
}
