package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "collector-api",
	Short: "Shopping listing collection service",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
