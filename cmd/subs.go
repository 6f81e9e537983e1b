package cmd

import (
	"fmt"
	"log"
	"path/filepath"

	"mediashelf/core/sandbox"
	"mediashelf/core/subtitle"

	"github.com/spf13/cobra"
)

var subsCmd = &cobra.Command{
	Use:   "subs <video>",
	Short: "显示视频已缓存的字幕和外挂字幕",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resolver := sandbox.NewResolver(cfg.Paths)
		video, err := filepath.Abs(args[0])
		if err != nil {
			log.Fatalf("无效路径: %v", err)
		}
		if err := resolver.Check(video); err != nil {
			log.Fatalf("拒绝访问: %v", err)
		}

		tracks, err := subtitle.NewIndex(cfg.SubtitleCacheDir, resolver, cfg.ContainerExtensions).ListCached(video)
		if err != nil {
			log.Fatalf("读取字幕缓存失败: %v", err)
		}
		fmt.Printf("已提取 (%d):\n", len(tracks))
		for _, t := range tracks {
			fmt.Printf("  #%-3d %-8s %s\n", t.Index, t.Language, t.URL)
		}

		sidecars := subtitle.FindSidecars(video)
		fmt.Printf("外挂字幕 (%d):\n", len(sidecars))
		for _, s := range sidecars {
			fmt.Printf("  %-8s %-4s %s\n", s.Language, s.Format, s.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(subsCmd)
}
