package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"reddot-watch/feedsreader/internal/models"
)

// Surface receives rendered documents. Every call to Show opens a new
// display for the document.
type Surface interface {
	Show(doc *models.Document) error
}

// Page is a rendered document kept in memory.
type Page struct {
	Document *models.Document
	HTML     []byte
}

// MemorySurface keeps the latest rendering of every feed in memory. A new
// document from the same source replaces the previous one.
type MemorySurface struct {
	style func() string

	mu       sync.RWMutex
	pages    map[string]Page
	bySource map[string]string
	order    []string
}

// NewMemorySurface creates an empty surface. style supplies the CSS class
// applied to rendered pages and may be nil.
func NewMemorySurface(style func() string) *MemorySurface {
	return &MemorySurface{
		style:    style,
		pages:    make(map[string]Page),
		bySource: make(map[string]string),
	}
}

// Show renders doc and stores it under doc.ID.
func (s *MemorySurface) Show(doc *models.Document) error {
	var buf bytes.Buffer
	if err := Listing(&buf, doc, currentStyle(s.style)); err != nil {
		return fmt.Errorf("render %s: %w", doc.SourceURL, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.bySource[doc.SourceURL]; ok && previous != doc.ID {
		delete(s.pages, previous)
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == previous })
	}
	if _, ok := s.pages[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.bySource[doc.SourceURL] = doc.ID
	s.pages[doc.ID] = Page{Document: doc, HTML: buf.Bytes()}
	return nil
}

// Page returns the page stored under id, rendered with the style in effect
// now. The rendering made by Show is returned if that fails.
func (s *MemorySurface) Page(id string) (Page, bool) {
	s.mu.RLock()
	p, ok := s.pages[id]
	s.mu.RUnlock()
	if !ok {
		return Page{}, false
	}

	var buf bytes.Buffer
	if err := Listing(&buf, p.Document, currentStyle(s.style)); err == nil {
		p.HTML = buf.Bytes()
	}
	return p, true
}

// Documents returns the stored documents in the order they were shown.
func (s *MemorySurface) Documents() []*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*models.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.pages[id].Document)
	}
	return docs
}

// DirSurface writes every document to its own HTML file in a directory.
type DirSurface struct {
	dir   string
	style func() string

	mu      sync.Mutex
	written []string
}

// NewDirSurface creates a surface writing into dir.
func NewDirSurface(dir string, style func() string) *DirSurface {
	return &DirSurface{dir: dir, style: style}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// FileName returns the file name used for doc.
func (s *DirSurface) FileName(doc *models.Document) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(doc.Title), "-"), "-")
	if base == "" {
		base = "feed"
	}
	if len(base) > 60 {
		base = base[:60]
	}
	return fmt.Sprintf("%s-%s.html", base, doc.ID)
}

// Show writes doc to a new file.
func (s *DirSurface) Show(doc *models.Document) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(s.dir, s.FileName(doc)))
	if err != nil {
		return fmt.Errorf("create listing file: %w", err)
	}

	if err := Listing(f, doc, currentStyle(s.style)); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", doc.SourceURL, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close listing file: %w", err)
	}

	s.mu.Lock()
	if !slices.Contains(s.written, f.Name()) {
		s.written = append(s.written, f.Name())
	}
	s.mu.Unlock()
	return nil
}

// Files lists the listings this surface has written. Files already in the
// directory are left out.
func (s *DirSurface) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := slices.Clone(s.written)
	sort.Strings(files)
	return files
}

func currentStyle(style func() string) string {
	if style == nil {
		return ""
	}
	return style()
}
