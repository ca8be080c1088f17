// Jackify Steam
// Copyright (c) 2026 The Jackify Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Jackify Steam.
//
// Jackify Steam is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Jackify Steam is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Jackify Steam.  If not, see <http://www.gnu.org/licenses/>.

package prefix

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// StateStore records which components have been installed and verified
// per prefix, so repeat runs skip work that protontricks would redo
// slowly. One bucket per AppID, one key per component.
type StateStore struct {
	db *bolt.DB
}

// OpenStateStore opens (creating if needed) the component state
// database at path.
func OpenStateStore(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close state db: %w", err)
	}
	return nil
}

func bucketName(appID uint32) []byte {
	return []byte(strconv.FormatUint(uint64(appID), 10))
}

// IsVerified reports whether component was previously verified for the
// prefix of appID.
func (s *StateStore) IsVerified(appID uint32, component string) (bool, error) {
	var verified bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(appID))
		if b == nil {
			return nil
		}
		verified = b.Get([]byte(component)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read state db: %w", err)
	}
	return verified, nil
}

// MarkVerified records component as verified for appID with the
// verification time.
func (s *StateStore) MarkVerified(appID uint32, component string, when time.Time) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(appID))
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return b.Put([]byte(component), []byte(when.UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("failed to update state db: %w", err)
	}
	return nil
}

// Forget drops all recorded state for appID, used when a prefix is
// deleted and will be rebuilt.
func (s *StateStore) Forget(appID uint32) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketName(appID)) == nil {
			return nil
		}
		return tx.DeleteBucket(bucketName(appID))
	})
	if err != nil {
		return fmt.Errorf("failed to update state db: %w", err)
	}
	return nil
}
