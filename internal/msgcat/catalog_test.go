package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedKorean(t *testing.T) {
	c, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("outcome.move", map[string]string{"Piece": "WP", "From": "(6, 4)", "To": "(4, 4)"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := "WP가 (6, 4)에서 (4, 4)로 이동했습니다."; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	c, err := New("xx", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !c.Has("outcome.indeterminate") {
		t.Fatalf("expected default catalog to be loaded")
	}
}

func TestMissingKeyAndData(t *testing.T) {
	c, err := New("en", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("outcome.move", map[string]string{"Piece": "WP"}); err == nil {
		t.Fatalf("expected error for missing template field")
	}
	if got := c.Text("nope", nil); got != "nope" {
		t.Fatalf("Text fallback: %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "outcome:\n  indeterminate: \"nothing to see\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-custom.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x: y"), 0o644); err != nil {
		t.Fatalf("write ignored: %v", err)
	}
	c, err := New("en", dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("outcome.indeterminate", nil); got != "nothing to see" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("side.white", nil); got != "White" {
		t.Fatalf("non-overridden key lost: %q", got)
	}
}

func TestOverrideRejectsNonString(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("outcome:\n  move: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New("en", dir); err == nil {
		t.Fatalf("expected error for non-string leaf")
	}
}
