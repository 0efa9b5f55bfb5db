package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// FileKind says how a discovered bill file is analyzed.
type FileKind int

// File kinds.
const (
	// KindRecord is a JSON bill export decoded directly.
	KindRecord FileKind = iota
	// KindDocument is a PDF or image sent to the extraction service.
	KindDocument
)

func (k FileKind) String() string {
	if k == KindDocument {
		return "document"
	}
	return "record"
}

// DiscoveredFile represents a bill file found during directory scanning.
type DiscoveredFile struct {
	Path    string
	Name    string
	Kind    FileKind
	MIME    string
	Size    int64
	ModTime time.Time
}

var candidateExts = map[string]bool{
	".json": true, ".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
}

// DocumentMIMEs lists the content types accepted for extraction uploads.
var DocumentMIMEs = []string{"application/pdf", "image/png", "image/jpeg"}

// DetectKind classifies content by sniffing its bytes rather than trusting
// the file extension. ok is false for unsupported content.
func DetectKind(mime *mimetype.MIME) (kind FileKind, ok bool) {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("application/json") {
			return KindRecord, true
		}
	}
	if mimetype.EqualsAny(mime.String(), DocumentMIMEs...) {
		return KindDocument, true
	}
	return 0, false
}

// ScanDir walks dir and discovers bill files: JSON exports, PDFs and images.
// Hidden directories are skipped, as are files whose content doesn't match a
// supported type.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !candidateExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		mime, err := mimetype.DetectFile(path)
		if err != nil {
			return nil //nolint:nilerr // unreadable file, skip
		}
		kind, ok := DetectKind(mime)
		if !ok {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // raced with deletion
		}

		files = append(files, DiscoveredFile{
			Path:    path,
			Name:    d.Name(),
			Kind:    kind,
			MIME:    mime.String(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})

	return files, err
}

// ErrUnsupported is returned by Discover for content that is neither a JSON
// record nor a supported document.
var ErrUnsupported = errors.New("unsupported bill file")

// Discover classifies a single file by content.
func Discover(path string) (DiscoveredFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return DiscoveredFile{}, err
	}
	if fi.IsDir() {
		return DiscoveredFile{}, fmt.Errorf("%s is a directory", path)
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return DiscoveredFile{}, err
	}
	kind, ok := DetectKind(mime)
	if !ok {
		return DiscoveredFile{}, fmt.Errorf("%w: %s (%s)", ErrUnsupported, filepath.Base(path), mime.String())
	}
	return DiscoveredFile{
		Path:    path,
		Name:    filepath.Base(path),
		Kind:    kind,
		MIME:    mime.String(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}

// CountKinds returns how many records and documents are in files.
func CountKinds(files []DiscoveredFile) (records, documents int) {
	for _, f := range files {
		if f.Kind == KindDocument {
			documents++
		} else {
			records++
		}
	}
	return records, documents
}
