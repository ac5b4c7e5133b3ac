package postgresql

import (
	"fmt"

	"github.com/edgarulg/orca/pkg/compression"
)

// resolveBody picks the stored body text for a row.
//
// With compression disabled only the plain body column is consulted; the
// compression columns may not even exist in the schema. With compression
// enabled the plain body wins when present, otherwise the compressed payload
// is inflated with the row's named scheme. An empty or absent body is an
// empty string, never an error.
func resolveBody(compressionEnabled bool, row bodyRow) (string, error) {
	if !compressionEnabled {
		if row.Body.Valid {
			return row.Body.String, nil
		}

		return "", nil
	}

	if row.Body.Valid && row.Body.String != "" {
		return row.Body.String, nil
	}

	if len(row.CompressedBody) == 0 {
		return "", nil
	}

	scheme, err := compression.ParseScheme(row.CompressionType.String)
	if err != nil {
		return "", err
	}

	body, err := compression.Decompress(scheme, row.CompressedBody)
	if err != nil {
		return "", fmt.Errorf("failed to decompress body: %w", err)
	}

	return body, nil
}
