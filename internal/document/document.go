package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const PDFMime = "application/pdf"

var ErrNotPDF = errors.New("only PDF files are allowed")

// Local is a file picked by the user, not yet (or already) uploaded.
type Local struct {
	Path  string
	Name  string
	Size  int64
	MIME  string
	Pages int
}

// Inspect stats path, sniffs its type and counts PDF pages.
func Inspect(path string) (Local, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Local{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return Local{}, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Local{}, fmt.Errorf("failed to detect file type: %w", err)
	}
	if !mt.Is(PDFMime) {
		return Local{}, fmt.Errorf("%w: %s is %s", ErrNotPDF, filepath.Base(path), mt.String())
	}

	doc := Local{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
		MIME: mt.String(),
	}
	// a PDF the reader cannot parse can still be uploaded; the service decides
	if pages, err := countPages(path); err == nil {
		doc.Pages = pages
	}
	return doc, nil
}

// Open returns the file content for upload.
func (d Local) Open() (io.ReadCloser, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Name, err)
	}
	return f, nil
}

func countPages(path string) (n int, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed xref tables
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}
