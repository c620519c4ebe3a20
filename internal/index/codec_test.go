package index

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowd-io/knowd/internal/model"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
)

func sampleChunks() []model.Chunk {
	return []model.Chunk{
		{Position: 0, DocumentID: 10, DocumentName: "a.md", Text: "first", Embedding: []float32{1, 2, 3, 4}},
		{Position: 1, DocumentID: 10, DocumentName: "a.md", Text: "second", Embedding: []float32{-1, 0.5, 0, 2.25}},
		{Position: 2, DocumentID: 11, DocumentName: "b.md", Text: "third", Embedding: []float32{0, 0, 0, 0}},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	chunks := sampleChunks()
	data, err := encodeSnapshot(4, chunks)
	require.NoError(t, err)

	decoded, err := decodeSnapshot(bytes.NewReader(data), 4)
	require.NoError(t, err)
	assert.Equal(t, chunks, decoded)
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	data, err := encodeSnapshot(4, nil)
	require.NoError(t, err)

	decoded, err := decodeSnapshot(bytes.NewReader(data), 4)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestEncodeRejectsWrongDimension(t *testing.T) {
	_, err := encodeSnapshot(8, sampleChunks())
	require.Error(t, err)
}

func TestDecodeBadMagic(t *testing.T) {
	data, err := encodeSnapshot(4, sampleChunks())
	require.NoError(t, err)
	data[0] = 'X'

	_, err = decodeSnapshot(bytes.NewReader(data), 4)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}

func TestDecodeShortHeader(t *testing.T) {
	_, err := decodeSnapshot(bytes.NewReader([]byte{'K', 'N'}), 4)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}

func TestDecodeTruncatedVectors(t *testing.T) {
	data, err := encodeSnapshot(4, sampleChunks())
	require.NoError(t, err)

	// cut inside the vector block
	_, err = decodeSnapshot(bytes.NewReader(data[:20]), 4)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}

func TestDecodeDimensionMismatch(t *testing.T) {
	data, err := encodeSnapshot(4, sampleChunks())
	require.NoError(t, err)

	_, err = decodeSnapshot(bytes.NewReader(data), 8)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}

func TestDecodeImplausibleEntryCount(t *testing.T) {
	data, err := encodeSnapshot(4, sampleChunks())
	require.NoError(t, err)

	// header.Count sits after magic+version+dim
	binary.LittleEndian.PutUint32(data[12:], maxSnapshotEntries+1)

	_, err = decodeSnapshot(bytes.NewReader(data), 4)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}

func TestDecodeImplausibleMetadataLength(t *testing.T) {
	chunks := sampleChunks()
	data, err := encodeSnapshot(4, chunks)
	require.NoError(t, err)

	// the metadata length prefix follows the header and the vector block
	off := 16 + len(chunks)*4*4
	binary.LittleEndian.PutUint64(data[off:], maxSnapshotMetaLen+1)

	_, err = decodeSnapshot(bytes.NewReader(data), 4)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}

func TestDecodeTruncatedMetadata(t *testing.T) {
	data, err := encodeSnapshot(4, sampleChunks())
	require.NoError(t, err)

	_, err = decodeSnapshot(bytes.NewReader(data[:len(data)-5]), 4)
	assert.ErrorIs(t, err, appErr.ErrIndexCorrupted)
}
