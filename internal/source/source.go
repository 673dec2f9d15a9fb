// Package source reads raw notification messages from exported files.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
)

// Format names a message file format.
type Format string

// Supported formats.
const (
	FormatAuto  Format = "auto"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
	FormatXML   Format = "xml"
)

// Source yields messages one at a time. Next returns io.EOF after the last message.
// A row that cannot be parsed is reported as an error wrapping common.ErrMalformedRow;
// reading may continue after it.
type Source interface {
	Next(ctx context.Context) (model.RawMessage, error)
	Close() error
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSONL, FormatCSV, FormatXML:
		return f, nil
	case "json", "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownFormat, name)
	}
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	case ".xml":
		return FormatXML, nil
	default:
		return "", fmt.Errorf("%w: cannot detect format of %s", common.ErrUnknownFormat, path)
	}
}

// Open opens a message file. FormatAuto detects the format from the extension.
func Open(path string, format Format) (Source, error) {
	if format == "" || format == FormatAuto {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	f, err := os.Open(path) //nolint:gosec // user-provided import path
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	src, err := NewReader(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileSource{Source: src, file: f}, nil
}

// NewReader reads messages of an explicit format from r.
func NewReader(r io.Reader, format Format) (Source, error) {
	switch format {
	case FormatJSONL:
		return newJSONLSource(r), nil
	case FormatCSV:
		return newCSVSource(r)
	case FormatXML:
		return newXMLSource(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownFormat, format)
	}
}

// ReadAll drains a source. Malformed rows are passed to skip when it is non-nil and
// abort the read otherwise.
func ReadAll(ctx context.Context, src Source, skip func(error)) ([]model.RawMessage, error) {
	var msgs []model.RawMessage
	for {
		msg, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return msgs, nil
		case err != nil && skip != nil && isMalformed(err):
			skip(err)
			continue
		case err != nil:
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
}

type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	return s.file.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func malformed(row int, format string, args ...any) error {
	return fmt.Errorf("%w: row %d: %s", common.ErrMalformedRow, row, fmt.Sprintf(format, args...))
}

func checkMessage(row int, msg model.RawMessage) error {
	if strings.TrimSpace(msg.Body) == "" {
		return malformed(row, "empty body")
	}
	if msg.Timestamp.UnixMilli() <= 0 {
		return malformed(row, "missing timestamp")
	}
	return nil
}
