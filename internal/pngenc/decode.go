package pngenc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Image is a decoded RGBA8 picture.
type Image struct {
	Width, Height int
	Pix           []byte // row-major RGBA, len Width*Height*4
}

// maxDimension bounds the width and height accepted by [Decode].
const maxDimension = 1 << 14

// Decode parses a PNG produced by [Encode]: 8-bit RGBA, non-interlaced, with
// filter type 0 on every row. Ancillary chunks are skipped; IDAT chunks are
// concatenated. Anything outside that subset is rejected.
func Decode(data []byte) (*Image, error) {
	if !bytes.HasPrefix(data, []byte(Signature)) {
		return nil, ErrBadSignature
	}
	r := bytes.NewReader(data[len(Signature):])

	var (
		img     *Image
		idat    bytes.Buffer
		seenEnd bool
	)
	for !seenEnd {
		tag, payload, err := ReadChunk(r)
		if err != nil {
			return nil, err
		}
		switch tag {
		case "IHDR":
			if img != nil {
				return nil, errors.New("duplicate IHDR chunk")
			}
			if img, err = parseIHDR(payload); err != nil {
				return nil, err
			}
		case "IDAT":
			if img == nil {
				return nil, errors.New("IDAT before IHDR")
			}
			idat.Write(payload)
		case "IEND":
			seenEnd = true
		default:
			if img == nil {
				return nil, fmt.Errorf("%s chunk before IHDR", tag)
			}
			if tag[0]&0x20 == 0 {
				return nil, fmt.Errorf("unsupported critical chunk %s", tag)
			}
		}
	}
	if img == nil {
		return nil, errors.New("missing IHDR chunk")
	}
	if idat.Len() == 0 {
		return nil, errors.New("missing IDAT chunk")
	}

	if err := inflate(img, idat.Bytes()); err != nil {
		return nil, err
	}
	return img, nil
}

func parseIHDR(p []byte) (*Image, error) {
	if len(p) != ihdrSize {
		return nil, fmt.Errorf("IHDR is %d bytes, want %d", len(p), ihdrSize)
	}
	w := binary.BigEndian.Uint32(p[0:4])
	h := binary.BigEndian.Uint32(p[4:8])
	if w == 0 || h == 0 || w > maxDimension || h > maxDimension {
		return nil, fmt.Errorf("unsupported image size %dx%d", w, h)
	}
	if p[8] != bitDepth || p[9] != colorTypeRGBA {
		return nil, fmt.Errorf("unsupported bit depth %d / color type %d", p[8], p[9])
	}
	if p[10] != methodDeflate || p[11] != methodAdaptive || p[12] != noInterlace {
		return nil, fmt.Errorf("unsupported compression %d, filter %d, interlace %d", p[10], p[11], p[12])
	}
	return &Image{Width: int(w), Height: int(h)}, nil
}

func inflate(img *Image, stream []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return fmt.Errorf("opening zlib stream: %w", err)
	}
	defer zr.Close()

	stride := img.Width * bytesPerPixel
	raw := make([]byte, img.Height*(1+stride))
	if _, err := io.ReadFull(zr, raw); err != nil {
		return fmt.Errorf("inflating image data: %w", err)
	}

	img.Pix = make([]byte, 0, img.Height*stride)
	for y := 0; y < img.Height; y++ {
		row := raw[y*(1+stride):]
		if row[0] != filterNone {
			return fmt.Errorf("row %d uses filter %d, only 0 is supported", y, row[0])
		}
		img.Pix = append(img.Pix, row[1:1+stride]...)
	}
	return nil
}
