package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devkaluri/rag-chat/errs"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "Onboarding notes\r\nSecond line\r\n")

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Text != "Onboarding notes\nSecond line\n" {
		t.Fatalf("line endings not normalized: %q", doc.Text)
	}
	if doc.Title != "Onboarding notes" {
		t.Fatalf("title: want %q, got %q", "Onboarding notes", doc.Title)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Number != 1 {
		t.Fatalf("text document should carry a single page span: %+v", doc.Pages)
	}
}

func TestLoadFileMarkdownTitle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.md", "preamble\n\n## Vacation Policy\n\ncontent here\n")

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Title != "Vacation Policy" {
		t.Fatalf("markdown heading should win as title, got %q", doc.Title)
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.csv", "a,b,c\n")

	if _, err := LoadFile(path); !errs.IsInvalidInput(err) {
		t.Fatalf("expected invalid input error for csv, got %v", err)
	}
}

func TestLoadDirectorySkipsUnsupportedAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second document\n")
	writeFile(t, dir, "a.md", "# First Document\n\nbody\n")
	writeFile(t, dir, "ignore.csv", "a,b\n")
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, sub, "c.txt", "third document\n")

	docs, err := LoadDirectory(dir)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if filepath.Base(docs[0].Path) != "a.md" || filepath.Base(docs[1].Path) != "b.txt" || filepath.Base(docs[2].Path) != "c.txt" {
		t.Fatalf("documents not in lexical order: %s, %s, %s", docs[0].Path, docs[1].Path, docs[2].Path)
	}
}

func TestLoadDirectoryMissing(t *testing.T) {
	if _, err := LoadDirectory(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestDocumentPage(t *testing.T) {
	doc := &Document{
		Pages: []PageSpan{
			{Number: 1, Start: 0, End: 10},
			{Number: 2, Start: 11, End: 20},
		},
	}
	if got := doc.Page(0); got != 1 {
		t.Fatalf("offset 0: want page 1, got %d", got)
	}
	if got := doc.Page(15); got != 2 {
		t.Fatalf("offset 15: want page 2, got %d", got)
	}
	if got := doc.Page(99); got != 2 {
		t.Fatalf("offset past the end should map to the last page, got %d", got)
	}

	empty := &Document{}
	if got := empty.Page(0); got != 0 {
		t.Fatalf("document without pages: want 0, got %d", got)
	}
}
