package cmd

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"mediashelf/core/listing"
	"mediashelf/core/sandbox"
	"mediashelf/model"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	lsDepth   int
	lsFilter  string
	lsFlatten bool
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "按服务器规则列出目录",
	Long:  `使用与 /api/filesystem 相同的沙箱和过滤规则列出目录，便于检查配置。`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resolver := sandbox.NewResolver(cfg.Paths)

		var arg string
		if len(args) > 0 {
			// Resolver 会做一次 URL 解码
			arg = url.PathEscape(args[0])
		}
		resolved, err := resolver.Resolve(arg)
		if err != nil {
			log.Fatalf("无效路径: %v", err)
		}

		if resolved.Root && cfg.Paths.EnforceAllowedPaths {
			fmt.Println("允许访问的目录:")
			for _, b := range resolver.ListAllowedBases() {
				fmt.Printf("  %-20s %s\n", b.Name, b.Path)
			}
			return
		}
		if err := resolver.Check(resolved.Path); err != nil {
			log.Fatalf("拒绝访问: %v", err)
		}

		lister := listing.NewLister(resolver, listing.NewFilter(cfg.ListAllowedExtensions))
		items, err := lister.List(resolved.Path, 0, lsDepth)
		if err != nil {
			log.Fatalf("列出目录失败: %v", err)
		}
		if lsFlatten {
			items = listing.Flatten(items)
		}
		items = listing.FilterByName(items, lsFilter)

		fmt.Println(resolved.Path)
		printEntries(items, 1)
	},
}

func printEntries(items []*model.FileSystemEntry, indent int) {
	pad := strings.Repeat("  ", indent)
	for _, it := range items {
		if it.IsFolder() {
			fmt.Printf("%s%s/\n", pad, it.Name)
			printEntries(it.Children, indent+1)
			continue
		}
		var size, modified string
		if it.Size != nil {
			size = humanize.Bytes(uint64(*it.Size))
		}
		if it.Modified != nil {
			modified = humanize.Time(*it.Modified)
		}
		fmt.Printf("%s%-40s %10s  %s\n", pad, it.Name, size, modified)
	}
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().IntVarP(&lsDepth, "depth", "d", 1, "递归层数")
	lsCmd.Flags().StringVarP(&lsFilter, "filter", "f", "", "按名称模糊过滤")
	lsCmd.Flags().BoolVar(&lsFlatten, "flatten", false, "输出扁平列表")
}
