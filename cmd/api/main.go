package main

import (
	"log/slog"
	"os"

	"github.com/Fedot0v/online-cinema-api/internal/app"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine, configuration falls back to flags and the
	// process environment.
	_ = godotenv.Load()

	err := app.Run()
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		logger.Error(err.Error())
		os.Exit(1)
	}
}
