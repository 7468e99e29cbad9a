package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/abdnh/anki-copycat-importer/internal/cli"
	"github.com/abdnh/anki-copycat-importer/internal/config"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.NewConfig()
	root := cli.NewRootCommand(cfg, cli.BuildInfo{Version: Version, Commit: Commit})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
