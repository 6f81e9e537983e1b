package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"mediashelf/core/subtitle"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "检查 ffmpeg/ffprobe 是否可用",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		report := subtitle.NewFFmpegInspector(cfg.FFmpegPath, cfg.FFprobePath).DetectToolchain(ctx)
		printBinary("ffmpeg", report.FFmpeg)
		printBinary("ffprobe", report.FFprobe)

		if !report.AllRequiredPresent {
			fmt.Println("\n字幕提取不可用，请安装 ffmpeg 或设置 FFMPEG_PATH")
			os.Exit(1)
		}
	},
}

func printBinary(name string, s subtitle.BinaryStatus) {
	if !s.Found {
		fmt.Printf("%-8s 未找到\n", name)
		return
	}
	fmt.Printf("%-8s %s\n         %s\n", name, s.Path, s.Version)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
