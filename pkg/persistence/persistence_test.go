package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/toolfabric/registry/pkg/toolmeta"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	m := toolmeta.New(toolmeta.Local, "echo", "1.0.0")
	m.AuthReference = "should-not-survive"
	doc := Document{LocalTools: []toolmeta.Metadata{*m}}

	if err := Save(path, doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.LocalTools) != 1 {
		t.Fatalf("expected 1 local tool, got %d", len(got.LocalTools))
	}
	if got.LocalTools[0].ToolID != m.ToolID {
		t.Fatalf("tool_id mismatch: got %s, want %s", got.LocalTools[0].ToolID, m.ToolID)
	}
}

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	doc, err := Load(filepath.Join(dir, "does-not-exist.json"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(doc.LocalTools)+len(doc.ExternalTools)+len(doc.RemoteTools) != 0 {
		t.Fatalf("expected empty document, got %#v", doc)
	}
}

func TestSaveOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	first := Document{LocalTools: []toolmeta.Metadata{*toolmeta.New(toolmeta.Local, "a", "1.0.0")}}
	second := Document{LocalTools: []toolmeta.Metadata{*toolmeta.New(toolmeta.Local, "b", "1.0.0")}}

	if err := Save(path, first); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := Save(path, second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.LocalTools) != 1 || got.LocalTools[0].Name != "b" {
		t.Fatalf("expected overwritten document with tool 'b', got %#v", got)
	}
}
