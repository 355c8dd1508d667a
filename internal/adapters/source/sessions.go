package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lanr/missionsync/internal/domain/session"
)

// DefaultDocumentPattern names subject documents: 1_Data01.xml, 1_Data02.xml, ...
const DefaultDocumentPattern = "1_Data%02d.xml"

// Sessions is the extracted content of one document directory.
type Sessions struct {
	Series    session.Series
	Documents []string // paths in subject order
}

// LoadSessions extracts the session window of every subject document in dir.
//
// Documents are visited by index starting at 1 and the walk stops at the first
// index with no document, whatever else the directory holds. Subject order is
// index order. Any unreadable or malformed document fails the whole directory:
// skipping one would shift every later subject onto the wrong row.
func LoadSessions(dir string, opts ...Option) (Sessions, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return Sessions{}, fmt.Errorf("%w: %w", ErrSourceIO, err)
	}
	if !info.IsDir() {
		return Sessions{}, fmt.Errorf("%w: %s is not a directory", ErrSourceIO, dir)
	}

	var (
		histories []session.History
		docs      []string
	)
	for i := 1; ; i++ {
		path := filepath.Join(dir, fmt.Sprintf(o.docPattern, i))
		h, err := extractFile(path, o.maxEntries)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return Sessions{}, fmt.Errorf("%s: %w", path, err)
		}
		histories = append(histories, h)
		docs = append(docs, path)
	}

	return Sessions{Series: session.Collect(histories), Documents: docs}, nil
}

func extractFile(path string, maxEntries int) (session.History, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return session.History{}, err
		}
		return session.History{}, fmt.Errorf("%w: %w", ErrSourceIO, err)
	}
	defer func() { _ = f.Close() }()
	return session.Extract(f, maxEntries)
}
