package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"mediashelf/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "查看字幕镜像存储桶",
	Long:  `列出 MinIO 镜像中的 WebVTT 字幕文件，或只显示存储桶统计信息。`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cfg.MinioEnabled() {
			log.Fatal("未配置 MINIO_ENDPOINT")
		}
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		mirror, err := storage.NewMinioMirror(ctx, cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		objects, stats, err := mirror.List(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}

		if !minioStats {
			for _, obj := range objects {
				fmt.Printf("%-10s %-16s %s\n",
					humanize.Bytes(uint64(obj.Size)),
					humanize.Time(obj.LastModified),
					obj.Key)
			}
			fmt.Println()
		}

		fmt.Printf("存储桶: %s\n", mirror.Bucket())
		fmt.Printf("文件数: %s\n", humanize.Comma(stats.TotalObjects))
		fmt.Printf("总大小: %s\n", humanize.Bytes(uint64(stats.TotalSize)))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后更新: %s\n", humanize.Time(stats.LastModified))
		}
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤，例如 Movies/")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示存储桶统计信息")

	minioCmd.Example = `  # 列出所有字幕
  mediashelf minio

  # 按来源目录过滤
  mediashelf minio -p "Movies/"

  # 显示存储桶统计信息
  mediashelf minio -s`
}
