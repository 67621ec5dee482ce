package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SnakeSolid/pgrestore-web/internal/app"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	configPath string
	address    string
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "restorepg",
	Short: "HTTP service driving PostgreSQL logical restores through pg_restore",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config-path", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.Flags().StringVarP(&address, "address", "a", "localhost", "address to bind the HTTP server to")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "port to bind the HTTP server to")
}

func run(cmd *cobra.Command, args []string) error {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}

	application, err := app.New(configPath, logMode)
	if err != nil {
		return err
	}
	defer application.Close()

	application.Start()

	return application.Run(fmt.Sprintf("%s:%d", address, port))
}
