// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package outputlog captures the output of commands executed on a
// machine, one file per output channel and process. Agent bootstrap
// output (Tomcat logs, shell traces) is text-heavy and long-lived, so
// it is stored compressed.
//
// File names are derived from the channel name with every character
// outside [A-Za-z0-9._-] replaced by '_', followed by the process ID
// and an extension naming the compression:
//
//	workspace_ws-1_ext-server_output.4242.log.zst
package outputlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how captured output is stored on disk.
type Compression string

const (
	// CompressionNone stores output as plain text.
	CompressionNone Compression = "none"

	// CompressionZstd stores output as a zstd stream. Best ratio for
	// log text; the default.
	CompressionZstd Compression = "zstd"

	// CompressionLZ4 stores output as an LZ4 frame. Cheaper on CPU
	// than zstd for chatty agents.
	CompressionLZ4 Compression = "lz4"
)

// ParseCompression parses a compression name. The empty string maps
// to CompressionZstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionZstd:
		return CompressionZstd, nil
	case CompressionLZ4:
		return CompressionLZ4, nil
	case CompressionNone:
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("unknown output compression %q (valid: none, zstd, lz4)", name)
	}
}

// Extension returns the file extension for the compression.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".log.zst"
	case CompressionLZ4:
		return ".log.lz4"
	default:
		return ".log"
	}
}

// FileName returns the capture file name for a channel and process.
func FileName(channel string, pid int, compression Compression) string {
	return fmt.Sprintf("%s.%d%s", sanitizeChannel(channel), pid, compression.Extension())
}

func sanitizeChannel(channel string) string {
	if channel == "" {
		return "default"
	}
	var builder strings.Builder
	for _, r := range channel {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return builder.String()
}

// Writer is a capture file open for writing. It is safe for
// concurrent use so that stdout and stderr copiers can share it.
type Writer struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	buffered   *bufio.Writer
	compressor io.WriteCloser
	sink       io.Writer
}

// Create opens a new capture file in directory for the given channel
// and process ID. The directory is created if missing.
func Create(directory, channel string, pid int, compression Compression) (*Writer, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", directory, err)
	}

	path := filepath.Join(directory, FileName(channel, pid, compression))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating output log %s: %w", path, err)
	}

	writer := &Writer{path: path, file: file, buffered: bufio.NewWriter(file)}
	switch compression {
	case CompressionZstd:
		encoder, err := zstd.NewWriter(writer.buffered, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		writer.compressor = encoder
		writer.sink = encoder
	case CompressionLZ4:
		encoder := lz4.NewWriter(writer.buffered)
		writer.compressor = encoder
		writer.sink = encoder
	case CompressionNone:
		writer.sink = writer.buffered
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported output compression %q", compression)
	}
	return writer, nil
}

// Path returns the capture file path.
func (w *Writer) Path() string { return w.path }

// Write appends p to the capture.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sink.Write(p)
}

// Close finishes the compressed stream, flushes, and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstError error
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			firstError = fmt.Errorf("closing compressor: %w", err)
		}
	}
	if err := w.buffered.Flush(); err != nil && firstError == nil {
		firstError = fmt.Errorf("flushing %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil && firstError == nil {
		firstError = fmt.Errorf("closing %s: %w", w.path, err)
	}
	return firstError
}

// Open opens a capture file for reading, choosing the decompressor
// from the file extension.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, CompressionZstd.Extension()):
		decoder, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		return &readCloser{Reader: decoder, close: func() error {
			decoder.Close()
			return file.Close()
		}}, nil
	case strings.HasSuffix(path, CompressionLZ4.Extension()):
		return &readCloser{Reader: lz4.NewReader(file), close: file.Close}, nil
	default:
		return file, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }
