// Command tablectl imports, exports and lists stored data tables.
package main

import (
	"os"

	"github.com/JonMunkholm/datatable/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment is used as is.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
