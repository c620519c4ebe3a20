package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	appErr "github.com/knowd-io/knowd/internal/pkg/errors"

	"github.com/knowd-io/knowd/internal/model"
)

// Snapshot layout: a fixed header, then the vector block (count*dim float32,
// little endian), then the chunk-metadata block (length-prefixed JSON). The
// two blocks are co-versioned inside one blob so the atomic save of the blob
// swaps them together; the decoder verifies they agree in count.
var snapshotMagic = [4]byte{'K', 'N', 'S', 'X'}

const snapshotVersion uint32 = 1

// Allocation ceilings for decoding. A corrupt header must fail as
// ErrIndexCorrupted, not as a multi-gigabyte make().
const (
	maxSnapshotEntries = 16 << 20  // chunks per namespace
	maxSnapshotMetaLen = 256 << 20 // metadata block bytes
)

type snapshotHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint32
}

type chunkMeta struct {
	Position     int    `json:"position"`
	DocumentID   int64  `json:"document_id"`
	DocumentName string `json:"document_name"`
	Text         string `json:"text"`
}

func encodeSnapshot(dim int, chunks []model.Chunk) ([]byte, error) {
	var buf bytes.Buffer
	header := snapshotHeader{
		Magic:   snapshotMagic,
		Version: snapshotVersion,
		Dim:     uint32(dim),
		Count:   uint32(len(chunks)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != dim {
			return nil, fmt.Errorf("chunk %d embedding dimension %d, want %d", chunk.Position, len(chunk.Embedding), dim)
		}
		for _, v := range chunk.Embedding {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return nil, err
			}
		}
	}
	metas := make([]chunkMeta, 0, len(chunks))
	for _, chunk := range chunks {
		metas = append(metas, chunkMeta{
			Position:     chunk.Position,
			DocumentID:   chunk.DocumentID,
			DocumentName: chunk.DocumentName,
			Text:         chunk.Text,
		})
	}
	metaJSON, err := json.Marshal(metas)
	if err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(metaJSON))); err != nil {
		return nil, err
	}
	buf.Write(metaJSON)
	return buf.Bytes(), nil
}

func decodeSnapshot(r io.Reader, dim int) ([]model.Chunk, error) {
	var header snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", appErr.ErrIndexCorrupted, err)
	}
	if header.Magic != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", appErr.ErrIndexCorrupted)
	}
	if header.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", appErr.ErrIndexCorrupted, header.Version)
	}
	if int(header.Dim) != dim {
		return nil, fmt.Errorf("%w: snapshot dimension %d, want %d", appErr.ErrIndexCorrupted, header.Dim, dim)
	}
	if header.Count > maxSnapshotEntries {
		return nil, fmt.Errorf("%w: implausible entry count %d", appErr.ErrIndexCorrupted, header.Count)
	}
	count := int(header.Count)
	vectors := make([][]float32, count)
	raw := make([]uint32, dim)
	for i := 0; i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("%w: truncated vector block at %d/%d", appErr.ErrIndexCorrupted, i, count)
		}
		vec := make([]float32, dim)
		for j, bits := range raw {
			vec[j] = math.Float32frombits(bits)
		}
		vectors[i] = vec
	}
	var metaLen uint64
	if err := binary.Read(r, binary.LittleEndian, &metaLen); err != nil {
		return nil, fmt.Errorf("%w: missing metadata block", appErr.ErrIndexCorrupted)
	}
	if metaLen > maxSnapshotMetaLen {
		return nil, fmt.Errorf("%w: implausible metadata length %d", appErr.ErrIndexCorrupted, metaLen)
	}
	metaJSON := make([]byte, metaLen)
	if _, err := io.ReadFull(r, metaJSON); err != nil {
		return nil, fmt.Errorf("%w: truncated metadata block", appErr.ErrIndexCorrupted)
	}
	var metas []chunkMeta
	if err := json.Unmarshal(metaJSON, &metas); err != nil {
		return nil, fmt.Errorf("%w: unreadable metadata: %v", appErr.ErrIndexCorrupted, err)
	}
	if len(metas) != count {
		return nil, fmt.Errorf("%w: vector block has %d entries, metadata has %d", appErr.ErrIndexCorrupted, count, len(metas))
	}
	chunks := make([]model.Chunk, count)
	for i, meta := range metas {
		chunks[i] = model.Chunk{
			Position:     meta.Position,
			DocumentID:   meta.DocumentID,
			DocumentName: meta.DocumentName,
			Text:         meta.Text,
			Embedding:    vectors[i],
		}
	}
	return chunks, nil
}
