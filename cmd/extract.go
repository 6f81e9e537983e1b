package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mediashelf/server"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <video>...",
	Short: "提取视频中的字幕到缓存",
	Long:  `对每个视频执行与 /api/extract-subtitles 相同的提取流程，已经缓存的字幕会被跳过。`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, cleanup, err := server.BuildDeps(ctx, cfg)
		if err != nil {
			log.Fatalf("初始化失败: %v", err)
		}
		defer cleanup()

		failed := 0
		for _, arg := range args {
			if ctx.Err() != nil {
				break
			}
			abs, err := filepath.Abs(arg)
			if err != nil {
				abs = arg
			}
			report, err := deps.Pipeline.EnsureExtracted(ctx, abs)
			if err != nil {
				fmt.Printf("%s: %v\n", arg, err)
				failed++
				continue
			}
			if report.Skipped {
				fmt.Printf("%s: %s\n", arg, report.Message)
				continue
			}

			fmt.Printf("%s: %s\n", arg, report.Message)
			for _, r := range report.Results {
				line := fmt.Sprintf("  #%-3d %-8s %-10s %s", r.Track, r.Language, r.Status, r.Path)
				if r.Error != "" {
					line += "  " + r.Error
				}
				fmt.Println(line)
			}
			if !report.Success {
				failed++
			}
		}

		if failed > 0 {
			cleanup()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
