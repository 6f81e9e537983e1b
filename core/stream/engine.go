// Package stream serves bytes of sandboxed files with HTTP range support.
package stream

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediashelf/core/sandbox"
	"mediashelf/model"
)

// 音频类型也在表中，目录列表会展示音频文件，播放器需要正确的类型
var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

// ContentTypeFor returns the media type for path based on its extension.
func ContentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Source 一个已打开、待输出的文件
type Source struct {
	Path        string
	Size        int64
	ModTime     time.Time
	ContentType string
	file        *os.File
}

// Close releases the underlying file.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Engine 字节流服务
type Engine struct {
	resolver *sandbox.Resolver
}

// NewEngine 创建 Engine 实例
func NewEngine(resolver *sandbox.Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Open checks p against the sandbox and opens it. The caller owns the
// returned Source and must close it, which Serve does.
func (e *Engine) Open(p string) (*Source, error) {
	if err := e.resolver.Check(p); err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, p)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", model.ErrNotAFile, p)
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, p)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrIO, err)
	}

	return &Source{
		Path:        p,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: ContentTypeFor(p),
		file:        f,
	}, nil
}

// Result 一次输出的结果
type Result struct {
	Status        int
	Start         int64
	End           int64
	Written       int64
	HeaderWritten bool
}

// Serve writes src to w honoring the request's Range header and closes src
// on every path. When the returned Result has HeaderWritten == false the
// caller still owns the response; ErrRangeNotSatisfiable leaves
// "Content-Range: bytes */size" set on w.
func Serve(w http.ResponseWriter, r *http.Request, src *Source) (Result, error) {
	defer src.Close()

	res := Result{Status: http.StatusOK, Start: 0, End: src.Size - 1}

	h := w.Header()
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, err := ParseByteRange(rangeHeader, src.Size)
		switch {
		case err == nil:
			res.Status = http.StatusPartialContent
			res.Start, res.End = start, end
		case errors.Is(err, ErrRangeNotSatisfiable):
			h.Set("Content-Range", fmt.Sprintf("bytes */%d", src.Size))
			return Result{Status: http.StatusRequestedRangeNotSatisfiable}, err
		default:
			// 无法解析的 Range 按完整文件返回
		}
	}

	length := res.End - res.Start + 1
	if src.Size == 0 {
		length = 0
	}

	h.Set("Content-Type", src.ContentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	h.Set("Last-Modified", src.ModTime.UTC().Format(http.TimeFormat))
	if res.Status == http.StatusPartialContent {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", res.Start, res.End, src.Size))
	}
	w.WriteHeader(res.Status)
	res.HeaderWritten = true

	if r.Method == http.MethodHead || length == 0 {
		return res, nil
	}

	n, err := io.Copy(w, io.NewSectionReader(src.file, res.Start, length))
	res.Written = n
	if err != nil {
		return res, fmt.Errorf("stream %s: %w", src.Path, err)
	}
	return res, nil
}
