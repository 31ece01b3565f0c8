// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extractor

// =============================================================================
// CandidateStore: Extraction Result Persistence
// =============================================================================
//
// Extraction calls the LLM, which costs 200ms-2s per message. The same
// student re-sending the same message (retries after a dropped connection,
// the agent re-running a turn) produces an identical prompt and therefore an
// identical extraction. This store persists extraction results in BadgerDB
// keyed by a conversation hash so repeats skip the model entirely.
//
// Design choices:
//
//	1. BadgerDB: extraction results are service infrastructure, not user
//	   data. Embedded, so no network call and no availability dependency.
//
//	2. Conversation hash as cache key: SHA256(trailing turns + profile
//	   fields that feed the prompt + model name). Any change to the
//	   conversation, the profile, or the model produces a different hash,
//	   so stale entries are simply never looked up again.
//
//	3. BadgerDB native TTL: 1-hour expiry is enforced by BadgerDB's GC, not
//	   by application code. Expired keys return ErrKeyNotFound, which the
//	   store treats as a cache miss. An hour covers retry storms and turn
//	   re-runs without pinning old extractions across tutoring sessions.
//
// Storage layout:
//
//	extract/cand/v1/{conversationHash}  →  JSON-encoded CandidateParameters
//	                                        TTL: 1 hour

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/LanternEd/LanternFOSS/services/orchestrator/datatypes"
	badgerstore "github.com/LanternEd/LanternFOSS/services/orchestrator/storage/badger"
)

// candidateCacheDefaultTTL is the default lifetime of a cached extraction.
const candidateCacheDefaultTTL = time.Hour

// candidateCacheKeyPrefix is prepended to the conversation hash to form the
// BadgerDB key. Versioned (v1) to allow future format changes without
// collision.
const candidateCacheKeyPrefix = "extract/cand/v1/"

// errCacheMiss distinguishes "key not found" (a normal miss) from a genuine
// storage error inside LoadCandidate.
var errCacheMiss = errors.New("cache miss")

// CandidateStore persists extraction results across repeated messages and
// service restarts.
//
// # Description
//
// The store is keyed by conversation hash: a SHA256 digest of the trailing
// conversation turns, the profile fields that feed the prompt, and the model
// name. The Extractor checks for a nil CandidateStore and skips persistence,
// operating without a cache. That is the correct behavior for tests and for
// deployments that do not configure a cache directory.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type CandidateStore interface {
	// LoadCandidate retrieves a cached extraction for the given hash.
	//
	// Returns (nil, nil) on cache miss (key absent or TTL expired).
	// Returns (nil, error) on storage failure.
	LoadCandidate(ctx context.Context, conversationHash string) (*datatypes.CandidateParameters, error)

	// SaveCandidate persists an extraction result for the given hash. The
	// store applies its TTL automatically. A non-nil error means storage
	// failure; the caller logs it as a warning and continues.
	SaveCandidate(ctx context.Context, conversationHash string, cand datatypes.CandidateParameters) error
}

// BadgerCandidateStore implements CandidateStore backed by a BadgerDB
// instance opened at startup. The caller owns the DB lifecycle.
//
// Results are JSON-encoded rather than gob: parameter values are
// interface-typed, and JSON round-trips them exactly as the model emitted
// them.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerCandidateStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerCandidateStore creates a BadgerCandidateStore.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil.
//   - ttl: Lifetime for each entry. Pass 0 for the default (1 hour).
//   - logger: Logger for hit/miss diagnostics. May be nil.
func NewBadgerCandidateStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerCandidateStore {
	if db == nil {
		panic("NewBadgerCandidateStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = candidateCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerCandidateStore{db: db, ttl: ttl, logger: logger}
}

// LoadCandidate retrieves a cached extraction result.
func (s *BadgerCandidateStore) LoadCandidate(ctx context.Context, conversationHash string) (*datatypes.CandidateParameters, error) {
	key := candidateCacheKey(conversationHash)

	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCacheMiss) {
		s.logger.Debug("candidate cache: miss", slog.String("hash", shortHash(conversationHash)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("candidate cache load: %w", err)
	}

	var cand datatypes.CandidateParameters
	if err := json.Unmarshal(raw, &cand); err != nil {
		return nil, fmt.Errorf("candidate cache decode: %w", err)
	}

	s.logger.Debug("candidate cache: hit",
		slog.String("hash", shortHash(conversationHash)),
		slog.String("tool", cand.Tool),
	)
	return &cand, nil
}

// SaveCandidate persists an extraction result with the configured TTL.
func (s *BadgerCandidateStore) SaveCandidate(ctx context.Context, conversationHash string, cand datatypes.CandidateParameters) error {
	raw, err := json.Marshal(cand)
	if err != nil {
		return fmt.Errorf("candidate cache encode: %w", err)
	}

	key := candidateCacheKey(conversationHash)
	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("candidate cache save: %w", err)
	}

	s.logger.Debug("candidate cache: saved",
		slog.String("hash", shortHash(conversationHash)),
		slog.String("tool", cand.Tool),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// =============================================================================
// Conversation Hash
// =============================================================================

// computeConversationHash computes a deterministic SHA256 hash of everything
// that feeds the extraction prompt.
//
// # Description
//
// The hash captures all signals that determine the extraction result:
//   - The trailing conversation turns (role and content)
//   - The profile fields rendered into the prompt
//   - The model name
//
// The caller passes the already-trimmed turns so the hash matches exactly
// what the prompt will contain.
//
// # Outputs
//
//   - string: Lowercase hex-encoded SHA256 digest (64 characters).
func computeConversationHash(turns []datatypes.Message, student datatypes.StudentProfile, model string) string {
	h := sha256.New()
	for _, msg := range turns {
		// Tab-delimited fields; newline terminates each turn.
		fmt.Fprintf(h, "%s\t%s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(h, "profile\t%s\t%s\t%s\t%s\t%s\n",
		student.Name,
		student.GradeLevel,
		student.LearningStyleSummary,
		student.EmotionalStateSummary,
		student.MasteryLevelSummary,
	)
	fmt.Fprintf(h, "model=%s\n", model)

	return hex.EncodeToString(h.Sum(nil))
}

// candidateCacheKey builds the BadgerDB key for the given conversation hash.
func candidateCacheKey(conversationHash string) []byte {
	return []byte(candidateCacheKeyPrefix + conversationHash)
}

// shortHash returns the first 8 characters of a hash for log display.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8] + "..."
	}
	return h
}
