// Beacon console agent CLI - streaming chat client for the marketing ops console.
//
// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/beaconhq/console-agent/internal/agent"
	"github.com/beaconhq/console-agent/internal/cli"
	"github.com/beaconhq/console-agent/internal/config"
	"github.com/beaconhq/console-agent/internal/engine"
	"github.com/beaconhq/console-agent/internal/history"
	"github.com/beaconhq/console-agent/internal/session"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default ~/.beacon/config.toml)")
		backendURL  = flag.String("url", "", "console API base URL (overrides config)")
		tenant      = flag.String("tenant", "", "active tenant slug (overrides config)")
		contextFlag = flag.String("context", "", "active data context (overrides config)")
		message     = flag.String("m", "", "send one message and exit instead of starting the REPL")
		resume      = flag.String("resume", "", "resume a stored session by id")
		noHistory   = flag.Bool("no-history", false, "disable conversation persistence")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("beacon-agent %s (%s)\n", Version, GitCommit)
		return
	}

	if err := run(*configPath, *backendURL, *tenant, *contextFlag, *message, *resume, *noHistory); err != nil {
		fmt.Fprintf(os.Stderr, "beacon-agent: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, backendURL, tenant, dataContext, message, resume string, noHistory bool) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if tenant != "" {
		cfg.Console.Tenant = tenant
	}
	if dataContext != "" {
		cfg.Console.Context = dataContext
	}
	if noHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := agent.NewClientWithConfig(&agent.Config{
		BaseURL:           cfg.Backend.URL,
		AuthToken:         cfg.Backend.AuthToken,
		Timeout:           cfg.Timeout(),
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	})

	var hist *history.Store
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			return err
		}
		hist, err = history.Open(path)
		if err != nil {
			return fmt.Errorf("could not open history: %w", err)
		}
		hist.MaxConversations = cfg.History.MaxConversations
		defer hist.Close()
	}

	eng := engine.New(client, engine.Options{
		History: hist,
		Logger:  log.New(os.Stderr, "", log.LstdFlags),
	})

	if resume != "" {
		if err := eng.Resume(resume); err != nil {
			return fmt.Errorf("could not resume %s: %w", resume, err)
		}
	}

	repl := cli.NewRepl(eng, cfg)

	// One-shot mode for scripting: send, print, exit.
	if message != "" {
		return repl.RunOnce(context.Background(), message)
	}

	// Reload the console context when the config file changes, so switching
	// tenants in the file takes effect without a restart.
	watchPath := configPath
	if watchPath == "" {
		if watchPath, err = config.ConfigPath(); err != nil {
			watchPath = ""
		}
	}
	if watchPath != "" {
		if w, err := config.NewWatcher(watchPath, func(next *config.Config) {
			eng.SetContext(session.Context{
				Pathname:      next.Console.Pathname,
				ActiveTenant:  next.Console.Tenant,
				ActiveContext: next.Console.Context,
			})
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	return repl.Run()
}
