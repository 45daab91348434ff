package cmd

import (
	"fmt"
	"log"
	"os"

	"jzonefm/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jzonefm",
	Short: "JZoneFM is a self-hosted music service.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting JZoneFM server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
