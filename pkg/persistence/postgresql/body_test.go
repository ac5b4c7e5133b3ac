package postgresql

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarulg/orca/pkg/compression"
)

func compressedPayload(t *testing.T, scheme compression.Scheme, body string) []byte {
	t.Helper()

	data, err := compression.Compress(scheme, body)
	require.NoError(t, err)

	return data
}

func TestResolveBodyCompressionDisabled(t *testing.T) {
	body, err := resolveBody(false, bodyRow{
		ID:   "exec-1",
		Body: sql.NullString{String: `{"id":"exec-1"}`, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"exec-1"}`, body)
}

func TestResolveBodyCompressionDisabledIgnoresCompressedColumns(t *testing.T) {
	// With compression off the compressed columns are never consulted, even
	// when a row carries garbage in them.
	body, err := resolveBody(false, bodyRow{
		ID:              "exec-1",
		Body:            sql.NullString{String: `{"id":"exec-1"}`, Valid: true},
		CompressionType: sql.NullString{String: "SNAPPY", Valid: true},
		CompressedBody:  []byte("not compressed at all"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"exec-1"}`, body)
}

func TestResolveBodyCompressionDisabledNullBody(t *testing.T) {
	body, err := resolveBody(false, bodyRow{ID: "exec-1"})
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestResolveBodyCompressionEnabledPlainWins(t *testing.T) {
	body, err := resolveBody(true, bodyRow{
		ID:              "exec-1",
		Body:            sql.NullString{String: `{"plain":true}`, Valid: true},
		CompressionType: sql.NullString{String: "ZLIB", Valid: true},
		CompressedBody:  compressedPayload(t, compression.ZLIB, `{"compressed":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"plain":true}`, body)
}

func TestResolveBodyCompressionEnabledFallsBackToCompressed(t *testing.T) {
	for _, scheme := range []compression.Scheme{compression.GZIP, compression.ZLIB} {
		body, err := resolveBody(true, bodyRow{
			ID:              "exec-1",
			CompressionType: sql.NullString{String: string(scheme), Valid: true},
			CompressedBody:  compressedPayload(t, scheme, `{"compressed":true}`),
		})
		require.NoError(t, err)
		assert.Equal(t, `{"compressed":true}`, body)
	}
}

func TestResolveBodyCompressionEnabledEmptyEverywhere(t *testing.T) {
	body, err := resolveBody(true, bodyRow{ID: "exec-1"})
	require.NoError(t, err)
	assert.Empty(t, body)

	// An empty but valid plain body falls through to the compressed payload.
	body, err = resolveBody(true, bodyRow{
		ID:              "exec-1",
		Body:            sql.NullString{String: "", Valid: true},
		CompressionType: sql.NullString{String: "GZIP", Valid: true},
		CompressedBody:  compressedPayload(t, compression.GZIP, `{"a":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, body)
}

func TestResolveBodyUnknownScheme(t *testing.T) {
	_, err := resolveBody(true, bodyRow{
		ID:              "exec-1",
		CompressionType: sql.NullString{String: "SNAPPY", Valid: true},
		CompressedBody:  []byte{0x01},
	})
	assert.ErrorIs(t, err, compression.ErrUnsupportedScheme)
}

func TestResolveBodyCorruptPayload(t *testing.T) {
	_, err := resolveBody(true, bodyRow{
		ID:              "exec-1",
		CompressionType: sql.NullString{String: "GZIP", Valid: true},
		CompressedBody:  []byte("definitely not gzip"),
	})
	assert.ErrorIs(t, err, compression.ErrCorruptPayload)
}
