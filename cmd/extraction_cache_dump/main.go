// Copyright (C) 2025 Lantern Education (oss@lantern-ed.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// extraction_cache_dump inspects the orchestrator's extraction result cache.
//
// The extraction cache persists LLM extraction results in BadgerDB so
// repeated student messages skip the model. This tool opens the cache
// read-only and prints a human-readable summary: keys, conversation hashes,
// TTL remaining, and the decoded tool selection for each entry.
//
// Usage:
//
//	extraction_cache_dump [--path /path/to/extraction/cache]
//
// If --path is not given, reads EXTRACTION_CACHE_DIR from the environment,
// falling back to ~/.lantern/cache/extraction/.
//
// Exit codes:
//
//	0: success (including "empty cache", which prints a message and exits 0)
//	1: error opening or reading the database
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// extractionCacheKeyPrefix must match the extractor's cache layout exactly.
const extractionCacheKeyPrefix = "extract/cand/v1/"

// cachedCandidate mirrors the extractor's stored shape. Decoded here with a
// local struct so the dump tool stays decoupled from the service packages.
type cachedCandidate struct {
	Tool       string         `json:"tool_needed"`
	Confidence float64        `json:"confidence"`
	Params     map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
	Missing    []string       `json:"missing_parameters"`
}

func main() {
	pathFlag := flag.String("path", "", "Path to extraction BadgerDB directory (overrides EXTRACTION_CACHE_DIR env var)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("EXTRACTION_CACHE_DIR")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".lantern", "cache", "extraction")
	}

	fmt.Printf("Extraction cache path: %s\n", dbPath)

	// Check existence before trying to open; gives a cleaner error message
	// than BadgerDB's "no such file or directory" buried in a long error.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Cache directory does not exist. The service has not yet cached any extractions.")
		fmt.Println("Start the orchestrator and send a request to populate the cache.")
		os.Exit(0)
	}

	opts := dgbadger.DefaultOptions(dbPath).
		WithLogger(nil). // suppress BadgerDB internal logs
		WithReadOnly(true)

	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	type entry struct {
		key              string
		conversationHash string
		expiresAt        time.Time
		hasExpiry        bool
		candidate        *cachedCandidate
		rawSize          int
		decodeErr        error
	}

	var entries []entry
	err = db.View(func(txn *dgbadger.Txn) error {
		iterOpts := dgbadger.DefaultIteratorOptions
		iterOpts.PrefetchValues = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		prefix := []byte(extractionCacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())

			var e entry
			e.key = key
			e.conversationHash = strings.TrimPrefix(key, extractionCacheKeyPrefix)

			// TTL: item.ExpiresAt() returns Unix seconds, 0 = no expiry.
			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.hasExpiry = true
				e.expiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.decodeErr = fmt.Errorf("copy value: %w", err)
				entries = append(entries, e)
				continue
			}
			e.rawSize = len(raw)

			var cand cachedCandidate
			if err := json.Unmarshal(raw, &cand); err != nil {
				e.decodeErr = fmt.Errorf("json decode: %w", err)
			} else {
				e.candidate = &cand
			}

			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo extraction cache entries found.")
		fmt.Println("Entries expire an hour after they are written, so an idle service")
		fmt.Println("is expected to show an empty cache.")
		os.Exit(0)
	}

	fmt.Printf("\nFound %d extraction cache entr%s:\n", len(entries), plural(len(entries), "y", "ies"))
	fmt.Println(strings.Repeat("─", 80))

	for i, e := range entries {
		fmt.Printf("\n[%d] Key:               %s\n", i+1, e.key)
		fmt.Printf("    Conversation hash: %s\n", e.conversationHash)

		if e.hasExpiry {
			remaining := time.Until(e.expiresAt)
			if remaining < 0 {
				fmt.Printf("    TTL:               EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
			} else {
				fmt.Printf("    TTL:               %s remaining (expires %s)\n",
					remaining.Round(time.Second),
					e.expiresAt.Format("2006-01-02 15:04:05 MST"),
				)
			}
		} else {
			fmt.Printf("    TTL:               no expiry set\n")
		}

		fmt.Printf("    Raw size:          %s\n", formatBytes(e.rawSize))

		if e.decodeErr != nil {
			fmt.Printf("    DECODE ERROR: %v\n", e.decodeErr)
			continue
		}

		fmt.Printf("    Tool:              %s (confidence %.2f)\n", e.candidate.Tool, e.candidate.Confidence)
		if e.candidate.Reasoning != "" {
			fmt.Printf("    Reasoning:         %s\n", e.candidate.Reasoning)
		}
		if len(e.candidate.Params) > 0 {
			params, err := json.Marshal(e.candidate.Params)
			if err == nil {
				fmt.Printf("    Parameters:        %s\n", params)
			}
		}
		if len(e.candidate.Missing) > 0 {
			fmt.Printf("    Missing:           %s\n", strings.Join(e.candidate.Missing, ", "))
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d entr%s, cache path: %s\n",
		len(entries), plural(len(entries), "y", "ies"), dbPath)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB (%d bytes)", float64(n)/1024/1024, n)
	case n >= 1024:
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// plural returns singular or plural suffix based on count.
func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

// fatalf prints to stderr and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "extraction_cache_dump: "+format+"\n", args...)
	os.Exit(1)
}
