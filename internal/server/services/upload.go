package services

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

// Upload is a decoded publish envelope.
type Upload struct {
	Metadata models.UploadMetadata
	Tarball  []byte
	// Length is the size of the whole envelope in bytes.
	Length int64
}

// ParseUpload decodes a publish envelope: a little-endian u32 length and
// that many bytes of JSON metadata, then a little-endian u32 length and the
// crate tarball. Metadata longer than maxSize is rejected before decoding.
func ParseUpload(r io.Reader, maxSize int64) (*Upload, error) {
	var jsonLen uint32
	if err := binary.Read(r, binary.LittleEndian, &jsonLen); err != nil {
		return nil, common.Human("invalid upload request: missing metadata length")
	}
	if int64(jsonLen) > maxSize {
		return nil, common.HumanKind(common.ErrUploadTooLarge, "JSON metadata blob too large")
	}

	raw := make([]byte, jsonLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, common.Human("invalid upload request: truncated metadata")
	}

	up := &Upload{}
	if err := json.Unmarshal(raw, &up.Metadata); err != nil {
		return nil, common.Human("invalid upload request: %v", err)
	}

	var tarLen uint32
	if err := binary.Read(r, binary.LittleEndian, &tarLen); err != nil {
		return nil, common.Human("invalid upload request: missing tarball length")
	}

	tarball, err := io.ReadAll(io.LimitReader(r, int64(tarLen)))
	if err != nil {
		return nil, err
	}
	if len(tarball) != int(tarLen) {
		return nil, common.Human("invalid upload request: truncated tarball")
	}

	up.Tarball = tarball
	up.Length = 8 + int64(jsonLen) + int64(tarLen)
	return up, nil
}
