// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package archive persists exported version histories in BadgerDB so they
// survive between CLI invocations. Version text, which exports leave out,
// is stored under its own keys so line diffs keep working after a restart.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"lexscan/internal/versioning"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const (
	historyPrefix = "history/"
	textPrefix    = "text/"
)

// ErrNotFound is returned when no history is archived for a document
var ErrNotFound = errors.New("history not archived")

// HistoryStore is the part of versioning.Store the archive reads and writes
type HistoryStore interface {
	Documents() []string
	ExportVersionHistory(documentID string) ([]byte, error)
	ImportVersionHistory(ctx context.Context, data []byte) (string, error)
	VersionTexts(documentID string) (map[string]string, error)
	RestoreText(documentID, versionID, text string) error
}

var _ HistoryStore = (*versioning.Store)(nil)

// Config selects where the archive lives
type Config struct {
	Path     string
	InMemory bool
	Logger   zerolog.Logger
}

// Archive is a BadgerDB keyspace of YAML history exports keyed by document
type Archive struct {
	db  *badger.DB
	log zerolog.Logger
}

// badgerLogger forwards badger's internal logging to zerolog
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(strings.TrimSpace(format), args...)
}

// Open opens or creates the archive
func Open(cfg Config) (*Archive, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("archive path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{log: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{db: db, log: cfg.Logger}, nil
}

// Close releases the database
func (a *Archive) Close() error {
	return a.db.Close()
}

func key(documentID string) []byte {
	return []byte(historyPrefix + documentID)
}

func textKeyPrefix(documentID string) []byte {
	return []byte(textPrefix + documentID + "/")
}

// textVersionIDs lists the version ids with archived text for documentID
func textVersionIDs(txn *badger.Txn, documentID string) []string {
	prefix := textKeyPrefix(documentID)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		id := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
		// a nested document id shares the prefix
		if !strings.Contains(id, "/") {
			ids = append(ids, id)
		}
	}
	return ids
}

// Save stores an exported history for documentID
func (a *Archive) Save(documentID string, data []byte) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(documentID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", documentID, err)
	}
	return nil
}

// Load returns the archived history for documentID
func (a *Archive) Load(documentID string) ([]byte, error) {
	var data []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(documentID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", documentID, err)
	}
	return data, nil
}

// Delete removes documentID and its version text from the archive
func (a *Archive) Delete(documentID string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		for _, id := range textVersionIDs(txn, documentID) {
			if err := txn.Delete(append(textKeyPrefix(documentID), id...)); err != nil {
				return err
			}
		}
		return txn.Delete(key(documentID))
	})
}

// SaveTexts replaces the archived version text of documentID
func (a *Archive) SaveTexts(documentID string, texts map[string]string) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		for _, id := range textVersionIDs(txn, documentID) {
			if _, keep := texts[id]; keep {
				continue
			}
			if err := txn.Delete(append(textKeyPrefix(documentID), id...)); err != nil {
				return err
			}
		}
		for id, text := range texts {
			if err := txn.Set(append(textKeyPrefix(documentID), id...), []byte(text)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to archive text of %s: %w", documentID, err)
	}
	return nil
}

// LoadTexts returns the archived version text of documentID
func (a *Archive) LoadTexts(documentID string) (map[string]string, error) {
	texts := make(map[string]string)
	err := a.db.View(func(txn *badger.Txn) error {
		for _, id := range textVersionIDs(txn, documentID) {
			item, err := txn.Get(append(textKeyPrefix(documentID), id...))
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			texts[id] = string(data)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load text of %s: %w", documentID, err)
	}
	return texts, nil
}

// List returns the archived document ids in order
func (a *Archive) List() ([]string, error) {
	var ids []string
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(historyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), historyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Sync writes every document held by store into the archive
func (a *Archive) Sync(ctx context.Context, store HistoryStore) error {
	for _, id := range store.Documents() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := store.ExportVersionHistory(id)
		if err != nil {
			return err
		}
		if err := a.Save(id, data); err != nil {
			return err
		}
		texts, err := store.VersionTexts(id)
		if err != nil {
			return err
		}
		if err := a.SaveTexts(id, texts); err != nil {
			return err
		}
	}
	return nil
}

// Restore imports every archived history into store and reattaches the
// archived version text. A history that fails to import is logged and
// skipped; the count of restored documents is returned.
func (a *Archive) Restore(ctx context.Context, store HistoryStore) (int, error) {
	ids, err := a.List()
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, id := range ids {
		data, err := a.Load(id)
		if err != nil {
			return restored, err
		}
		if _, err := store.ImportVersionHistory(ctx, data); err != nil {
			if ctx.Err() != nil {
				return restored, ctx.Err()
			}
			a.log.Warn().Err(err).Str("document_id", id).Msg("skipping unreadable archived history")
			continue
		}
		texts, err := a.LoadTexts(id)
		if err != nil {
			return restored, err
		}
		for versionID, text := range texts {
			// text of pruned versions has no version to attach to
			if err := store.RestoreText(id, versionID, text); err != nil {
				a.log.Debug().Err(err).Str("document_id", id).Str("version_id", versionID).Msg("dropping archived text")
			}
		}
		restored++
	}
	return restored, nil
}
