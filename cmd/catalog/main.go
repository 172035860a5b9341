package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Catalog maintenance: schema migration and category/price reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newReportCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
