package cmd

import (
	"context"
	"fmt"
	"log"

	"jzonefm/config"
	"jzonefm/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中的文件，支持列出文件、查看统计信息、删除目录。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		ctx := context.Background()

		if minioDelete {
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定目录前缀")
			}
			n, err := store.DeleteDirectory(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("删除目录失败: %v", err)
			}
			fmt.Printf("成功删除目录 %s 及其下的 %d 个文件\n", minioPrefix, n)
			return
		}

		if err := store.PrintStatus(ctx, minioPrefix); err != nil {
			log.Fatalf("查看存储桶失败: %v", err)
		}
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "对象前缀过滤")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "递归删除指定前缀下的对象")
	rootCmd.AddCommand(minioCmd)
}
