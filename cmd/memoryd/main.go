// Package main implements the memoryd CLI for tenant memory operations.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional path to a YAML config file.
	configPath string
	// tenantHandle selects the tenant store for memory commands.
	tenantHandle string
	// userID identifies the caller for quota enforcement.
	userID string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memoryd",
	Short: "CLI for tenant memory operations",
	Long: `memoryd stores and retrieves semantic memories per tenant.

Memories are embedded locally, stored in the tenant's vector index and
retrieved by similarity search with metadata filters.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&tenantHandle, "tenant", "", "tenant handle")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user id for quota enforcement")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
}
