// Package persistence saves and loads the registry's exportable
// configuration document: every registered tool's metadata, grouped
// by origin, with credentials excluded.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/toolfabric/registry/pkg/toolmeta"
)

// Document is the full exportable state of the registry.
type Document struct {
	LocalTools    []toolmeta.Metadata `json:"local_tools"`
	ExternalTools []toolmeta.Metadata `json:"external_tools"`
	RemoteTools   []toolmeta.Metadata `json:"remote_tools"`
}

// Save writes doc to path atomically: it's marshaled, written to a
// sibling temp file, then renamed into place so a reader never
// observes a partially-written document. Transient write failures are
// retried twice before giving up.
func Save(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal document: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
		if lastErr = writeAtomic(path, data); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("persistence: save %s failed after retries: %w", path, lastErr)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-registry-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Load reads and parses the document at path. A missing file is not
// an error: it's treated as an empty document so a fresh registry can
// start with no prior state.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("persistence: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("persistence: parse %s: %w", path, err)
	}
	return doc, nil
}
