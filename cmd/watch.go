package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediashelf/core/prewarm"
	"mediashelf/logger"
	"mediashelf/server"

	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "只运行目录监听，新视频出现时预先提取字幕",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, cleanup, err := server.BuildDeps(ctx, cfg)
		if err != nil {
			log.Fatalf("初始化失败: %v", err)
		}
		defer cleanup()

		debounce := cfg.WatchDebounce
		if watchDebounce > 0 {
			debounce = watchDebounce
		}
		w, err := prewarm.NewWatcher(deps.Resolver, deps.Pipeline, debounce)
		if err != nil {
			log.Fatalf("创建监听失败: %v", err)
		}

		logger.Info("Watching for new videos", logger.Strings("roots", w.Roots()), logger.Duration("debounce", debounce))
		if err := w.Run(ctx); err != nil {
			log.Fatalf("监听失败: %v", err)
		}
		logger.Info("Watcher stopped")
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "文件写入稳定多久后开始提取")
}
