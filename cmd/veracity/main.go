// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"log/slog"
	"os"

	isatty "github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Veracity/pkg/logging"
	"github.com/AleutianAI/Veracity/services/eval/config"
)

var (
	cfg    config.Config
	logger *logging.Logger
)

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if configPath == "" {
			cfg = config.Default()
		} else {
			loaded, err := config.Load(configPath)
			if err != nil {
				log.Fatalf("Error loading config: %v", err)
			}
			cfg = loaded
		}

		logger = logging.New(logging.Config{
			Level:   logLevel(cfg.Logging.Level),
			LogDir:  cfg.Logging.Dir,
			Service: "veracity",
			JSON:    cfg.Logging.JSON || !isatty.IsTerminal(os.Stderr.Fd()),
		})
		slog.SetDefault(logger.Slog())
	}
}

func logLevel(level string) logging.Level {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
