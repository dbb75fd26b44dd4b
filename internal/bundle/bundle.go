// Package bundle packages rendered icons into single-file containers: a zip
// archive (optionally AES-encrypted) and a multi-resolution Windows icon.
package bundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexmullins/zip"
)

// Entry is one file placed in a bundle.
type Entry struct {
	Name string
	Data []byte
}

// ///////////////////////////////////////////////
// Zip
// ///////////////////////////////////////////////

// WriteZip writes entries to w as a deflate-compressed zip archive. With a
// non-empty password every entry is AES-256 encrypted.
func WriteZip(w io.Writer, entries []Entry, password string) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		var (
			fw  io.Writer
			err error
		)
		if password != "" {
			fw, err = zw.Encrypt(e.Name, password)
		} else {
			fw, err = zw.Create(e.Name)
		}
		if err != nil {
			return errors.Join(fmt.Errorf("create archive entry %s: %w", e.Name, err), zw.Close())
		}
		if _, err := fw.Write(e.Data); err != nil {
			return errors.Join(fmt.Errorf("write archive entry %s: %w", e.Name, err), zw.Close())
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// Zip returns the archive WriteZip would write.
func Zip(entries []Entry, password string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteZip(&buf, entries, password); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ///////////////////////////////////////////////
// ICO
// ///////////////////////////////////////////////

// Image is one PNG-encoded square icon.
type Image struct {
	Size int
	PNG  []byte
}

const (
	icoHeaderSize = 6
	icoEntrySize  = 16
	icoMaxSize    = 256
)

// ICO builds a Windows icon file embedding the PNG images. Sizes above 256
// cannot be described by the directory and are skipped with a warning.
// Returns an error when no image fits.
func ICO(images []Image) ([]byte, error) {
	fit := make([]Image, 0, len(images))
	for _, img := range images {
		if img.Size <= 0 || img.Size > icoMaxSize {
			slog.Warn("icon size does not fit an ICO directory, skipping", "size", img.Size)
			continue
		}
		fit = append(fit, img)
	}
	if len(fit) == 0 {
		return nil, fmt.Errorf("no icon sizes between 1 and %d", icoMaxSize)
	}

	var buf bytes.Buffer
	// Header: reserved, type (1 = icon), count.
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, uint16(len(fit))})

	offset := uint32(icoHeaderSize + icoEntrySize*len(fit))
	for _, img := range fit {
		dim := uint8(img.Size) // 256 wraps to 0, which the format reads as 256
		buf.Write([]byte{dim, dim, 0, 0})                             // width, height, palette, reserved
		binary.Write(&buf, binary.LittleEndian, uint16(1))            // color planes
		binary.Write(&buf, binary.LittleEndian, uint16(32))           // bits per pixel
		binary.Write(&buf, binary.LittleEndian, uint32(len(img.PNG))) // data size
		binary.Write(&buf, binary.LittleEndian, offset)               // data offset
		offset += uint32(len(img.PNG))
	}
	for _, img := range fit {
		buf.Write(img.PNG)
	}
	return buf.Bytes(), nil
}
