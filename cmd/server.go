package cmd

import (
	"jzonefm/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动JZoneFM服务器",
	Long:  `启动JZoneFM音乐系统的HTTP服务器，提供曲库、上传与播放API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
