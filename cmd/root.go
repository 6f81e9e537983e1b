package cmd

import (
	"fmt"
	"os"

	"mediashelf/config"
	"mediashelf/logger"
	"mediashelf/server"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cfg 在 PersistentPreRun 中加载，所有子命令共用
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mediashelf",
	Short: "mediashelf serves local video folders to the browser.",
	Long: `mediashelf 浏览服务器上允许访问的目录，按 Range 输出视频，
并把 MKV 中的字幕提取为 WebVTT 缓存。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      cfg.LogLevel,
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   cfg.LogCompress,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		// 不带子命令时直接启动服务器
		if err := server.Start(cfg); err != nil {
			logger.Fatal("Server exited", logger.ErrorField(err))
		}
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "日志级别: debug, info, warn, error")
	flags.String("log-file", "", "日志文件路径，为空时只输出到 stdout")
	flags.String("allowed-paths", "", "允许访问的根目录，逗号分隔")
	flags.Bool("enforce-paths", false, "只允许访问 allowed-paths 中的目录")

	// 命令行参数优先于环境变量和 .env
	mustBind("LOG_LEVEL", flags.Lookup("log-level"))
	mustBind("LOG_FILE", flags.Lookup("log-file"))
	mustBind("ALLOWED_FILESYSTEM_PATHS", flags.Lookup("allowed-paths"))
	mustBind("FILESYSTEM_ENFORCE_PATHS", flags.Lookup("enforce-paths"))
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
