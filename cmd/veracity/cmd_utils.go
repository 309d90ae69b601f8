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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/Veracity/services/eval/agreement"
	"github.com/AleutianAI/Veracity/services/eval/significance"
	"github.com/AleutianAI/Veracity/services/eval/store"
)

// openStore opens the run database named by the loaded configuration.
func openStore() (*store.Store, error) {
	storeCfg := store.DefaultConfig(cfg.Store.Path)
	storeCfg.InMemory = cfg.Store.InMemory
	storeCfg.Logger = logger.Slog()
	return store.Open(storeCfg)
}

// agreementEngine builds the agreement engine from the loaded
// configuration.
func agreementEngine(extra ...agreement.Option) *agreement.Engine {
	opts := []agreement.Option{
		agreement.WithIterations(cfg.Bootstrap.Iterations),
		agreement.WithWorkers(cfg.Bootstrap.Workers),
		agreement.WithSeed(cfg.Bootstrap.Seed),
		agreement.WithLogger(logger.Slog()),
	}
	return agreement.NewEngine(append(opts, extra...)...)
}

// significanceEngine builds the significance engine from the loaded
// configuration.
func significanceEngine(extra ...significance.Option) *significance.Engine {
	opts := []significance.Option{
		significance.WithIterations(cfg.Bootstrap.Iterations),
		significance.WithWorkers(cfg.Bootstrap.Workers),
		significance.WithSeed(cfg.Bootstrap.Seed),
		significance.WithLogger(logger.Slog()),
	}
	return significance.NewEngine(append(opts, extra...)...)
}

// decodeFile reads a JSON file into out.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// printJSON renders a result to stdout. Stdout carries only
// machine-readable output; diagnostics go to the logger on stderr.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("Failed to render output", "error", err)
		return
	}
	fmt.Println(string(data))
}

// requireFlag aborts the command when a required flag is empty.
func requireFlag(name, value string) bool {
	if value == "" {
		slog.Error("Missing required flag", "flag", "--"+name)
		return false
	}
	return true
}
