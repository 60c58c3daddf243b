// Package main applies, reverts, or reports the photos schema.
//
// Usage: migrate [-db path] [-steps n] up|down|status
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	migratecmd "github.com/louisbranch/photos/internal/cmd/migrate"
	"github.com/louisbranch/photos/internal/platform/config"
)

func main() {
	cfg, err := migratecmd.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		config.Exitf("migrate: parse flags: %v", err)
	}
	log.SetPrefix("[MIGRATE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := migratecmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.ExitErr("migrate", err)
	}
}
