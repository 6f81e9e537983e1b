package cmd

import (
	"mediashelf/logger"
	"mediashelf/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 mediashelf 服务器",
	Long:  `启动 HTTP 服务器，提供目录浏览、视频流和字幕 API`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.Start(cfg); err != nil {
			logger.Fatal("Server exited", logger.ErrorField(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("addr", "", "监听地址，例如 :8080")
	serverCmd.Flags().Bool("watch", false, "监听目录变化并预先提取字幕")
	mustBind("HTTP_ADDR", serverCmd.Flags().Lookup("addr"))
	mustBind("WATCH_ENABLED", serverCmd.Flags().Lookup("watch"))
}
