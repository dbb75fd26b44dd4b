package pngenc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Signature is the fixed 8-byte prefix of every PNG file.
const Signature = "\x89PNG\r\n\x1a\n"

const (
	// chunkHeaderSize is the 4-byte big-endian payload length followed by
	// the 4-byte ASCII tag.
	chunkHeaderSize = 8

	// chunkCRCSize is the trailing big-endian CRC-32 over tag and payload.
	chunkCRCSize = 4

	// MaxChunkSize is the largest payload a chunk may carry (2^31-1).
	MaxChunkSize = 1<<31 - 1

	// maxReadChunkSize bounds payload allocations when decoding (64 MB).
	maxReadChunkSize = 64 << 20
)

// ErrChunkTooLarge is returned when a chunk payload exceeds the writable or
// readable limit.
var ErrChunkTooLarge = errors.New("chunk too large")

// ErrChecksum is returned when a chunk's stored CRC does not match its
// contents.
var ErrChecksum = errors.New("chunk checksum mismatch")

// ErrBadSignature is returned when data does not start with [Signature].
var ErrBadSignature = errors.New("not a PNG file")

// ///////////////////////////////////////////////
// Chunk Encoding
// ///////////////////////////////////////////////

// AppendChunk appends a PNG chunk to dst:
// [4-byte BE length][4-byte tag][payload][4-byte BE CRC-32(tag+payload)].
// The tag must be exactly four bytes.
func AppendChunk(dst []byte, tag string, payload []byte) ([]byte, error) {
	if len(tag) != 4 {
		return dst, fmt.Errorf("invalid chunk tag %q", tag)
	}
	if len(payload) > MaxChunkSize {
		return dst, fmt.Errorf("%w: %d bytes (max %d)", ErrChunkTooLarge, len(payload), MaxChunkSize)
	}

	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	start := len(dst)
	dst = append(dst, tag...)
	dst = append(dst, payload...)
	return binary.BigEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:])), nil
}

// ///////////////////////////////////////////////
// Chunk Decoding
// ///////////////////////////////////////////////

// ReadChunk reads one chunk from r and verifies its CRC.
// It handles partial reads via io.ReadFull.
func ReadChunk(r io.Reader) (tag string, payload []byte, err error) {
	header := make([]byte, chunkHeaderSize)
	if _, err = io.ReadFull(r, header); err != nil {
		return "", nil, fmt.Errorf("reading chunk header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[0:4])
	tag = string(header[4:8])
	if length > maxReadChunkSize {
		return "", nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrChunkTooLarge, tag, length, maxReadChunkSize)
	}

	body := make([]byte, int(length)+chunkCRCSize)
	if _, err = io.ReadFull(r, body); err != nil {
		return "", nil, fmt.Errorf("reading %s chunk: %w", tag, err)
	}
	payload = body[:length]

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(payload)
	if got, want := binary.BigEndian.Uint32(body[length:]), crc.Sum32(); got != want {
		return "", nil, fmt.Errorf("%w: %s stored %08x, computed %08x", ErrChecksum, tag, got, want)
	}
	return tag, payload, nil
}
