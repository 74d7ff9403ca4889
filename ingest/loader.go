// Package ingest loads source documents, splits them into overlapping
// chunks, and builds the vector index.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/devkaluri/rag-chat/errs"
)

// PageSpan marks the rune range a source page occupies in the joined
// document text. Non-paginated formats carry a single span for page 1.
type PageSpan struct {
	Number int
	Start  int
	End    int
}

// Document is an immutable loaded source file.
type Document struct {
	Path  string
	Title string
	Text  string
	Pages []PageSpan
}

// Page returns the page number containing the given rune offset, or 0
// when the document has no page information.
func (d *Document) Page(offset int) int {
	for _, span := range d.Pages {
		if offset >= span.Start && offset < span.End {
			return span.Number
		}
	}
	if n := len(d.Pages); n > 0 && offset >= d.Pages[n-1].End {
		return d.Pages[n-1].Number
	}
	return 0
}

// LoadFile reads a single document. PDF files are extracted page by
// page; markdown and plain text are read whole.
func LoadFile(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".md", ".markdown", ".txt":
		return loadText(path)
	default:
		return nil, errs.InvalidInputf("unsupported document format: %s", path)
	}
}

// LoadDirectory walks dir and loads every supported document, skipping
// unsupported extensions. Paths are returned in lexical order.
func LoadDirectory(dir string) ([]*Document, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}

	var paths []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".pdf", ".md", ".markdown", ".txt":
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walk data directory: %w", err)
	}
	sort.Strings(paths)

	docs := make([]*Document, 0, len(paths))
	for _, path := range paths {
		doc, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadPDF(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	var pages []PageSpan
	offset := 0

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		text = normalizeText(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
			offset++
		}
		runes := len([]rune(text))
		pages = append(pages, PageSpan{Number: i, Start: offset, End: offset + runes})
		sb.WriteString(text)
		offset += runes
	}

	content := sb.String()
	title := firstNonEmptyLine(content)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &Document{Path: path, Title: title, Text: content, Pages: pages}, nil
}

func loadText(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	content := normalizeText(string(data))
	title := extractTitle(content, filepath.Base(path))

	return &Document{
		Path:  path,
		Title: title,
		Text:  content,
		Pages: []PageSpan{{Number: 1, Start: 0, End: len([]rune(content))}},
	}, nil
}

// extractTitle prefers the first markdown heading, falling back to the
// first non-empty line, then the given fallback.
func extractTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	if line := firstNonEmptyLine(content); line != "" {
		return line
	}
	return fallback
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return content
}
