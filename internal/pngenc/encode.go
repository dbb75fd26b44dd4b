// Package pngenc writes and reads the narrow slice of PNG that iconsmith
// produces: 8-bit truecolor with alpha, no interlacing, filter type 0 on
// every scanline and a single IDAT chunk compressed at zlib's best level.
package pngenc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
)

const (
	bitDepth       = 8
	colorTypeRGBA  = 6
	ihdrSize       = 13
	bytesPerPixel  = 4
	filterNone     = 0
	methodDeflate  = 0
	methodAdaptive = 0
	noInterlace    = 0
)

// Encode returns a complete PNG file for a width×height image whose pixels
// are given row-major as RGBA8 in pix. It panics when the dimensions are not
// positive or pix has the wrong length. The output depends only on the
// inputs.
func Encode(width, height int, pix []byte) ([]byte, error) {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("pngenc: invalid image size %dx%d", width, height))
	}
	stride := width * bytesPerPixel
	if len(pix) != stride*height {
		panic(fmt.Sprintf("pngenc: got %d pixel bytes, want %d for %dx%d", len(pix), stride*height, width, height))
	}

	ihdr := make([]byte, 0, ihdrSize)
	ihdr = binary.BigEndian.AppendUint32(ihdr, uint32(width))
	ihdr = binary.BigEndian.AppendUint32(ihdr, uint32(height))
	ihdr = append(ihdr, bitDepth, colorTypeRGBA, methodDeflate, methodAdaptive, noInterlace)

	idat, err := compress(pix, stride, height)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(Signature)+3*(chunkHeaderSize+chunkCRCSize)+ihdrSize+len(idat))
	out = append(out, Signature...)
	for _, c := range []struct {
		tag     string
		payload []byte
	}{
		{"IHDR", ihdr},
		{"IDAT", idat},
		{"IEND", nil},
	} {
		if out, err = AppendChunk(out, c.tag, c.payload); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// compress prefixes every row with filter byte 0 and deflates the result
// into a zlib stream.
func compress(pix []byte, stride, height int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating zlib writer: %w", err)
	}

	filter := []byte{filterNone}
	for y := 0; y < height; y++ {
		if _, err := zw.Write(filter); err != nil {
			return nil, fmt.Errorf("compressing scanline %d: %w", y, err)
		}
		if _, err := zw.Write(pix[y*stride : (y+1)*stride]); err != nil {
			return nil, fmt.Errorf("compressing scanline %d: %w", y, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing zlib stream: %w", err)
	}
	return buf.Bytes(), nil
}
