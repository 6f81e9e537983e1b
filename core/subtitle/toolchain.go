package subtitle

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// BinaryStatus 单个外部程序的检测结果
type BinaryStatus struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// ToolchainReport 外部工具链检测结果
type ToolchainReport struct {
	FFmpeg             BinaryStatus `json:"ffmpeg"`
	FFprobe            BinaryStatus `json:"ffprobe"`
	AllRequiredPresent bool         `json:"allRequiredPresent"`
}

// runVersion is swapped in tests.
var runVersion = func(ctx context.Context, bin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "-version").Output()
	if err != nil {
		return "", err
	}
	line, _, _ := bufio.NewReader(bytes.NewReader(out)).ReadLine()
	return strings.TrimSpace(string(line)), nil
}

// DetectToolchain reports whether the configured binaries can be found and
// what version they print.
func (p *FFmpegInspector) DetectToolchain(ctx context.Context) ToolchainReport {
	ffmpeg := detectBinary(ctx, p.ffmpegPath)
	ffprobe := detectBinary(ctx, p.ffprobePath)
	return ToolchainReport{
		FFmpeg:             ffmpeg,
		FFprobe:            ffprobe,
		AllRequiredPresent: ffmpeg.Found && ffprobe.Found,
	}
}

func detectBinary(ctx context.Context, name string) BinaryStatus {
	path, err := lookPath(name)
	if err != nil {
		return BinaryStatus{Found: false}
	}
	status := BinaryStatus{Found: true, Path: path}
	if v, err := runVersion(ctx, path); err == nil {
		status.Version = v
	}
	return status
}
