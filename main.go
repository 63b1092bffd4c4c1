package main

import (
	"log/slog"

	"github.com/fitdash/cli"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using the environment as is", "error", err)
	}
	cli.Execute()
}
