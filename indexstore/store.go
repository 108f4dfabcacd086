// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package indexstore persists decoder probe metadata and seek indexes.
//
// Probing a media file can be expensive (it opens the file with a real
// format library), and building a seek index for a long video container is
// worse. The store keeps both keyed by filename, tagged with the file's
// size and modification time so stale records self-invalidate when the
// file changes on disk.
package indexstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
var (
	bucketProbes  = []byte("probes")
	bucketIndexes = []byte("seekindexes")
)

// StreamRecord is the persisted metadata of one probed stream.
type StreamRecord struct {
	Index              int  `json:"index"`
	Width              int  `json:"width"`
	Height             int  `json:"height"`
	PremultipliedAlpha bool `json:"premultiplied_alpha"`
	Still              bool `json:"still"`
}

// ProbeRecord is the persisted result of probing one media file.
type ProbeRecord struct {
	DecoderID string         `json:"decoder_id"`
	Streams   []StreamRecord `json:"streams"`

	// Freshness tags. A record is only served while both match the file.
	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time_unix_nano"`
}

// SeekIndex is a decoder-built mapping from timeline seconds to container
// frame numbers, persisted so reopening a file skips the index build.
type SeekIndex struct {
	FPS        float64 `json:"fps"`
	FrameCount int64   `json:"frame_count"`

	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time_unix_nano"`
}

// Store is a bbolt-backed index store. Safe for concurrent use; bbolt
// serializes writers internally.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("indexstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketProbes, bucketIndexes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("indexstore: create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProbe returns the persisted probe record for filename if it is still
// current against the file's size and modification time on fs.
func (s *Store) GetProbe(fs afero.Fs, filename string) (ProbeRecord, bool) {
	var rec ProbeRecord
	if err := s.get(bucketProbes, filename, &rec); err != nil {
		return ProbeRecord{}, false
	}

	size, mtime, err := stat(fs, filename)
	if err != nil || rec.Size != size || rec.ModTime != mtime {
		return ProbeRecord{}, false
	}
	return rec, true
}

// PutProbe persists a probe record for filename, stamping it with the
// file's current size and modification time.
func (s *Store) PutProbe(fs afero.Fs, filename string, rec ProbeRecord) error {
	size, mtime, err := stat(fs, filename)
	if err != nil {
		return fmt.Errorf("indexstore: stat %s: %w", filename, err)
	}
	rec.Size = size
	rec.ModTime = mtime
	return s.put(bucketProbes, filename, rec)
}

// GetSeekIndex returns the persisted seek index for filename if current.
func (s *Store) GetSeekIndex(fs afero.Fs, filename string) (SeekIndex, bool) {
	var idx SeekIndex
	if err := s.get(bucketIndexes, filename, &idx); err != nil {
		return SeekIndex{}, false
	}

	size, mtime, err := stat(fs, filename)
	if err != nil || idx.Size != size || idx.ModTime != mtime {
		return SeekIndex{}, false
	}
	return idx, true
}

// PutSeekIndex persists a seek index for filename.
func (s *Store) PutSeekIndex(fs afero.Fs, filename string, idx SeekIndex) error {
	size, mtime, err := stat(fs, filename)
	if err != nil {
		return fmt.Errorf("indexstore: stat %s: %w", filename, err)
	}
	idx.Size = size
	idx.ModTime = mtime
	return s.put(bucketIndexes, filename, idx)
}

func (s *Store) get(bucket []byte, key string, out any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("indexstore: no record for %q", key)
		}
		return json.Unmarshal(data, out)
	})
}

func (s *Store) put(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("indexstore: marshal record for %q: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func stat(fs afero.Fs, filename string) (size, mtimeNano int64, err error) {
	info, err := fs.Stat(filename)
	if err != nil {
		return 0, 0, err
	}
	return info.Size(), info.ModTime().UnixNano(), nil
}

// IndexPath returns a stable per-file index filename under dir: the base
// name of the media file plus a short hash of its full path, so distinct
// files with the same base name never collide.
func IndexPath(dir, mediaFilename string) string {
	normalized := strings.ToLower(filepath.Clean(mediaFilename))
	hash := sha256.Sum256([]byte(normalized))
	name := filepath.Base(mediaFilename) + "." + hex.EncodeToString(hash[:6]) + ".reelidx"
	return filepath.Join(dir, name)
}
