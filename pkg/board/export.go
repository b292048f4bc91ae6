package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/recera/boardify/pkg/card"
)

// ExportFileName is the name of the file written by ExportLayoutFile.
const ExportFileName = "cardboard-layout.json"

// ErrExport is matched by every export failure.
var ErrExport = errors.New("export layout failed")

// ExportError wraps the cause of a failed export.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string { return fmt.Sprintf("export layout: %v", e.Err) }

func (e *ExportError) Unwrap() []error { return []error{ErrExport, e.Err} }

// ExportLayout writes the current layout as a pretty-printed JSON array of
// {id, title, x, y}. A failure sets ExportErrorMessage as the notice; the
// card list is never modified.
func (m *Manager) ExportLayout(w io.Writer) error {
	data, err := encodeLayout(m.cards.Get())
	if err == nil {
		_, err = w.Write(data)
	}
	if err != nil {
		return m.exportFailed(err)
	}
	return nil
}

// ExportLayoutFile writes the layout to ExportFileName inside dir and returns
// the file's path.
func (m *Manager) ExportLayoutFile(dir string) (string, error) {
	data, err := encodeLayout(m.cards.Get())
	if err != nil {
		return "", m.exportFailed(err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", m.exportFailed(err)
	}
	path := filepath.Join(dir, ExportFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", m.exportFailed(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", m.exportFailed(err)
	}

	m.logger.WithField("path", path).Info("Exported layout")
	return path, nil
}

func (m *Manager) exportFailed(err error) error {
	m.logger.WithError(err).Error("Export layout failed")
	m.notice.Set(ExportErrorMessage)
	return &ExportError{Err: err}
}

func encodeLayout(cards []card.Card) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(card.Layout(cards)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
