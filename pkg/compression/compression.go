// Package compression implements the body compression codec used by the
// execution store. Bodies are compressed with a named scheme; the scheme name
// is persisted alongside the compressed payload.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Scheme names a compression algorithm as stored in the compression_type
// column.
type Scheme string

const (
	GZIP Scheme = "GZIP"
	ZLIB Scheme = "ZLIB"
)

var (
	// ErrUnsupportedScheme indicates the named scheme is not recognized.
	ErrUnsupportedScheme = errors.New("unsupported compression scheme")

	// ErrCorruptPayload indicates the byte stream could not be inflated.
	ErrCorruptPayload = errors.New("corrupt compressed payload")
)

// ParseScheme validates a scheme name.
func ParseScheme(name string) (Scheme, error) {
	switch Scheme(name) {
	case GZIP, ZLIB:
		return Scheme(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, name)
	}
}

// Decompress inflates data using the named scheme and returns the text.
func Decompress(scheme Scheme, data []byte) (string, error) {
	var (
		reader io.ReadCloser
		err    error
	)

	switch scheme {
	case GZIP:
		reader, err = gzip.NewReader(bytes.NewReader(data))
	case ZLIB:
		reader, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	text, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}

	return string(text), nil
}

// Compress deflates text with the named scheme. Inverse of Decompress.
func Compress(scheme Scheme, text string) ([]byte, error) {
	var buf bytes.Buffer

	var writer io.WriteCloser

	switch scheme {
	case GZIP:
		writer = gzip.NewWriter(&buf)
	case ZLIB:
		writer = zlib.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	if _, err := io.WriteString(writer, text); err != nil {
		return nil, fmt.Errorf("failed to compress body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress body: %w", err)
	}

	return buf.Bytes(), nil
}
