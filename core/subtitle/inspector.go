// Package subtitle probes media containers for subtitle streams, extracts
// them into a WebVTT cache and indexes what has been cached.
package subtitle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mediashelf/logger"
	"mediashelf/model"

	"github.com/google/uuid"
)

// MediaInspector probes containers and extracts subtitle streams.
type MediaInspector interface {
	// Available returns ErrToolchainUnavailable when the tools cannot run.
	Available(ctx context.Context) error
	ProbeSubtitles(ctx context.Context, path string) ([]model.SubtitleStream, error)
	// ExtractSubtitle writes stream streamIndex of path to dest as WebVTT.
	ExtractSubtitle(ctx context.Context, path string, streamIndex int, dest string) error
}

const maxProbeTimeout = 30 * time.Second

var lookPath = exec.LookPath

// FFmpegInspector implements MediaInspector with ffprobe and ffmpeg.
type FFmpegInspector struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegInspector 创建 FFmpegInspector 实例
func NewFFmpegInspector(ffmpegPath, ffprobePath string) *FFmpegInspector {
	if ffprobePath == "" {
		dir, name := filepath.Split(ffmpegPath)
		ffprobePath = dir + strings.Replace(name, "ffmpeg", "ffprobe", 1)
	}
	return &FFmpegInspector{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Available 检查 ffmpeg 和 ffprobe 是否可执行
func (p *FFmpegInspector) Available(ctx context.Context) error {
	for _, bin := range []string{p.ffmpegPath, p.ffprobePath} {
		if _, err := lookPath(bin); err != nil {
			return fmt.Errorf("%w: %s: %v", model.ErrToolchainUnavailable, bin, err)
		}
	}
	return nil
}

// ProbeSubtitles 使用 ffprobe 获取字幕流信息
func (p *FFmpegInspector) ProbeSubtitles(ctx context.Context, path string) ([]model.SubtitleStream, error) {
	ctx, cancel := context.WithTimeout(ctx, maxProbeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "s",
		"-show_entries", "stream=index:stream_tags=language,title",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", model.ErrToolchainUnavailable, err)
		}
		return nil, fmt.Errorf("%w: ffprobe %s: %v: %s", model.ErrProbeFailed, path, err, tail(stderr.String()))
	}

	return parseProbeOutput(out.Bytes())
}

type probeOutput struct {
	Streams []struct {
		Index int               `json:"index"`
		Tags  map[string]string `json:"tags"`
	} `json:"streams"`
}

func parseProbeOutput(data []byte) ([]model.SubtitleStream, error) {
	var parsed probeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", model.ErrProbeFailed, err)
	}

	streams := make([]model.SubtitleStream, 0, len(parsed.Streams))
	for _, s := range parsed.Streams {
		streams = append(streams, model.SubtitleStream{
			Index:    s.Index,
			Language: getTag(s.Tags, "language"),
			Title:    getTag(s.Tags, "title"),
		})
	}
	return streams, nil
}

// getTag 不区分大小写地读取 tag
func getTag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ExtractSubtitle 提取单个字幕流，先写临时文件再重命名，避免留下半成品
func (p *FFmpegInspector) ExtractSubtitle(ctx context.Context, path string, streamIndex int, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("%w: create cache dir: %v", model.ErrIO, err)
	}

	tmp := dest + "." + uuid.NewString() + ".part"
	args := []string{
		"-y",
		"-v", "error",
		"-i", path,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-c:s", "webvtt",
		"-f", "webvtt",
		tmp,
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("executing ffmpeg", logger.String("cmd", p.ffmpegPath+" "+strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %v", model.ErrToolchainUnavailable, err)
		}
		return fmt.Errorf("%w: stream %d: %v: %s", model.ErrExtractionFailed, streamIndex, err, tail(stderr.String()))
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: move artifact into place: %v", model.ErrIO, err)
	}
	return nil
}

// tail keeps the last part of ffmpeg's stderr for error messages.
func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 512
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
