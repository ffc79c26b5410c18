package main

import (
	"github.com/libraria-al/libraria/internal/config"
	"github.com/libraria-al/libraria/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cfg := config.NewConfig()
	entrypoint.Run(cfg, Version)
}
