// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "goweddingshare",
	Short: "GoWeddingShare is a self-hosted photo sharing service for weddings",
	Long: `GoWeddingShare is a self-hosted photo sharing service for weddings.
Guests upload photos and videos to galleries through a QR code or link, and
the couple reviews submissions before they appear in the gallery.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
