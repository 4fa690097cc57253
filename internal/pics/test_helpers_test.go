package pics

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// exifJPEG builds a minimal JPEG whose APP1 segment carries a single
// DateTimeOriginal tag with the given value.
func exifJPEG(dateTimeOriginal string) []byte {
	order := binary.LittleEndian
	val := append([]byte(dateTimeOriginal), 0)

	// TIFF header, IFD0 at 8 with one ExifIFDPointer entry, Exif IFD at 26
	// with one DateTimeOriginal entry, value at 44
	const exifIFD, valueOffset = 26, 44
	var tiff bytes.Buffer
	tiff.WriteString("II")
	binary.Write(&tiff, order, uint16(42))
	binary.Write(&tiff, order, uint32(8))

	binary.Write(&tiff, order, uint16(1))
	binary.Write(&tiff, order, uint16(0x8769))
	binary.Write(&tiff, order, uint16(4))
	binary.Write(&tiff, order, uint32(1))
	binary.Write(&tiff, order, uint32(exifIFD))
	binary.Write(&tiff, order, uint32(0))

	binary.Write(&tiff, order, uint16(1))
	binary.Write(&tiff, order, uint16(0x9003))
	binary.Write(&tiff, order, uint16(2))
	binary.Write(&tiff, order, uint32(len(val)))
	binary.Write(&tiff, order, uint32(valueOffset))
	binary.Write(&tiff, order, uint32(0))
	tiff.Write(val)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var jpeg bytes.Buffer
	jpeg.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	binary.Write(&jpeg, binary.BigEndian, uint16(len(payload)+2))
	jpeg.Write(payload)
	jpeg.Write([]byte{0xFF, 0xD9})
	return jpeg.Bytes()
}

// writeTestFile writes content to dir/name and sets its modification time.
func writeTestFile(t *testing.T, dir, name string, content []byte, modTime time.Time) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", dir, err)
	}
	filePath := filepath.Join(dir, name)
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		t.Fatalf("Failed to create file %s: %v", filePath, err)
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		t.Fatalf("Failed to set file times: %v", err)
	}
	return filePath
}

// writeExifJPEG writes a JPEG carrying dateTimeOriginal to dir/name.
func writeExifJPEG(t *testing.T, dir, name, dateTimeOriginal string, modTime time.Time) string {
	t.Helper()
	return writeTestFile(t, dir, name, exifJPEG(dateTimeOriginal), modTime)
}
