// Package storage wraps the external media store. The core only issues upload
// targets and deletes objects; serving and signed reads live elsewhere.
package storage

import (
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

type UploadTarget struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

type Store interface {
	IssueUploadTarget(contentType string) (UploadTarget, error)
	DeleteObject(storageKey string) error
}

// KeyedStore issues PUT targets under a base URL with generated object keys.
type KeyedStore struct {
	BaseURL string

	// Deleted collects keys when no backend is wired, so cancel flows stay
	// observable in dev setups.
	Deleted []string
}

func NewKeyed(baseURL string) *KeyedStore {
	return &KeyedStore{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *KeyedStore) IssueUploadTarget(contentType string) (UploadTarget, error) {
	key := uuid.NewString()
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		key += exts[0]
	}
	return UploadTarget{
		UploadURL:  fmt.Sprintf("%s/%s", s.BaseURL, key),
		StorageKey: key,
	}, nil
}

func (s *KeyedStore) DeleteObject(storageKey string) error {
	s.Deleted = append(s.Deleted, storageKey)
	return nil
}
