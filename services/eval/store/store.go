// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists evaluation runs in an embedded BadgerDB.
//
// The store is append-only: new runs add records, nothing overwrites a
// committed score. That keeps concurrent readers safe and preserves the
// audit trail the reliability engines depend on.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/Veracity/pkg/validation"
	"github.com/AleutianAI/Veracity/services/eval"
)

var (
	// ErrMissingRunID reports a record without a run ID.
	ErrMissingRunID = errors.New("store: missing run id")

	// ErrDuplicateRecord reports an append that would overwrite an
	// existing record. The matrix is append-only; start a new run.
	ErrDuplicateRecord = errors.New("store: duplicate record")

	// ErrRunNotFound reports an unknown run ID.
	ErrRunNotFound = errors.New("store: run not found")
)

// key prefixes; entity IDs are validated to exclude '/' before use.
const (
	runPrefix    = "run/"
	scorePrefix  = "score/"
	ratingPrefix = "rating/"
	tagPrefix    = "tag/"
)

// Config holds configuration for the store.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory
	// is true.
	Path string

	// InMemory enables in-memory mode, useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for the given path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for testing.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// RunInfo describes one stored evaluation run.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the embedded evaluation-run database.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open creates and opens the store with the given configuration.
//
// Description:
//
//	Opens a BadgerDB database at the configured path, or in memory
//	when InMemory is true. Creates the directory if it doesn't exist.
//
// Inputs:
//   - cfg: Store configuration. Path is required unless InMemory.
//
// Outputs:
//   - *Store: The opened store. Caller must call Close() when done.
//   - error: Non-nil if the database cannot be opened.
//
// Thread Safety: The returned Store is safe for concurrent use.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRun allocates a fresh run ID and records its creation time.
func (s *Store) NewRun(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info := RunInfo{RunID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	payload, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("marshal run info: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runPrefix+info.RunID), payload)
	})
	if err != nil {
		return "", fmt.Errorf("store run %s: %w", info.RunID, err)
	}

	s.logger.Info("run created", "run_id", info.RunID)
	return info.RunID, nil
}

// Runs lists all stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var runs []RunInfo
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			// Skip record keys nested under the run.
			if strings.Count(key, "/") != 1 {
				continue
			}
			var info RunInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return fmt.Errorf("decode run %s: %w", key, err)
			}
			runs = append(runs, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

// runExists verifies a run key inside a transaction.
func runExists(txn *badger.Txn, runID string) error {
	_, err := txn.Get([]byte(runPrefix + runID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}

// appendUnique sets a key only if it does not already exist.
func appendUnique(txn *badger.Txn, key string, payload []byte) error {
	if _, err := txn.Get([]byte(key)); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, key)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Set([]byte(key), payload)
}

// AppendScore stores a composite score record under its run.
//
// Description:
//
//	The record's RunID must name an existing run, and the
//	(document, system) slot must be empty: committed scores are never
//	overwritten.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - record: The score record; RunID, DocumentID, and SystemID are
//     required.
//
// Outputs:
//   - error: ErrMissingRunID, ErrRunNotFound, ErrDuplicateRecord, or a
//     storage failure.
//
// Thread Safety: Safe for concurrent use.
func (s *Store) AppendScore(ctx context.Context, record eval.ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.RunID == "" {
		return ErrMissingRunID
	}
	if err := validation.ValidateIDs(record.DocumentID, record.SystemID); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal score record: %w", err)
	}

	key := runPrefix + record.RunID + "/" + scorePrefix + record.DocumentID + "/" + record.SystemID
	return s.db.Update(func(txn *badger.Txn) error {
		if err := runExists(txn, record.RunID); err != nil {
			return err
		}
		return appendUnique(txn, key, payload)
	})
}

// Scores returns all score records for a run, in key order.
func (s *Store) Scores(ctx context.Context, runID string) ([]eval.ScoreRecord, error) {
	var records []eval.ScoreRecord
	err := s.collect(ctx, runID, scorePrefix, func(val []byte) error {
		var rec eval.ScoreRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// Matrix loads a run's score records into an in-memory matrix.
func (s *Store) Matrix(ctx context.Context, runID string) (*eval.Matrix, error) {
	records, err := s.Scores(ctx, runID)
	if err != nil {
		return nil, err
	}
	m := eval.NewMatrix()
	for _, rec := range records {
		m.Append(rec)
	}
	return m, nil
}

// AppendRating stores one rater rating under a run.
func (s *Store) AppendRating(ctx context.Context, runID string, rating eval.RaterRating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if runID == "" {
		return ErrMissingRunID
	}
	if err := rating.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateIDs(rating.RaterID, rating.DocumentID, rating.SystemID); err != nil {
		return err
	}

	payload, err := json.Marshal(rating)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}

	key := runPrefix + runID + "/" + ratingPrefix +
		rating.RaterID + "/" + rating.DocumentID + "/" + rating.SystemID
	return s.db.Update(func(txn *badger.Txn) error {
		if err := runExists(txn, runID); err != nil {
			return err
		}
		return appendUnique(txn, key, payload)
	})
}

// Ratings returns all rater ratings for a run.
func (s *Store) Ratings(ctx context.Context, runID string) ([]eval.RaterRating, error) {
	var ratings []eval.RaterRating
	err := s.collect(ctx, runID, ratingPrefix, func(val []byte) error {
		var r eval.RaterRating
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		ratings = append(ratings, r)
		return nil
	})
	return ratings, err
}

// AppendTags stores error tags under a run; each tag gets a fresh key.
func (s *Store) AppendTags(ctx context.Context, runID string, tags []eval.ErrorTag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if runID == "" {
		return ErrMissingRunID
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := runExists(txn, runID); err != nil {
			return err
		}
		for _, tag := range tags {
			payload, err := json.Marshal(tag)
			if err != nil {
				return fmt.Errorf("marshal tag: %w", err)
			}
			key := runPrefix + runID + "/" + tagPrefix + uuid.NewString()
			if err := txn.Set([]byte(key), payload); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tags returns all error tags for a run.
func (s *Store) Tags(ctx context.Context, runID string) ([]eval.ErrorTag, error) {
	var tags []eval.ErrorTag
	err := s.collect(ctx, runID, tagPrefix, func(val []byte) error {
		var t eval.ErrorTag
		if err := json.Unmarshal(val, &t); err != nil {
			return err
		}
		tags = append(tags, t)
		return nil
	})
	return tags, err
}

// collect iterates a run's records under one entity prefix.
func (s *Store) collect(ctx context.Context, runID, entity string, fn func(val []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if runID == "" {
		return ErrMissingRunID
	}

	return s.db.View(func(txn *badger.Txn) error {
		if err := runExists(txn, runID); err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix + runID + "/" + entity)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
}
