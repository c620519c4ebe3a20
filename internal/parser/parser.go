// Package parser turns uploaded documents into plain text and splits that
// text into overlapping chunks sized for embedding.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

// ExtractText dispatches on the file extension. Markdown is parsed and
// flattened to plain text; .txt passes through as-is.
func ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return extractMarkdown(data), nil
	case ".txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: unsupported file type: %s", appErr.ErrInvalid, filepath.Ext(filename))
	}
}

// SupportedExt reports whether the filename carries an extension ExtractText
// can handle.
func SupportedExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}
