package pics

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acm19/offload/internal/logger"
	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	// exifDateLayout is the layout of the EXIF DateTimeOriginal tag. Single
	// digit fields parse too, as some cameras drop the zero padding.
	exifDateLayout = "2006:1:2 15:4:5"
	// exiftoolDateField is the exiftool name of the DateTimeOriginal tag.
	exiftoolDateField = "DateTimeOriginal"
)

// captureDateReader reads the embedded capture date of a file.
// ok is false when the file has no usable date; read failures are never errors.
type captureDateReader interface {
	captureDate(filePath string) (date time.Time, ok bool)
	name() string
}

// goexifReader decodes the EXIF block of JPEG files in process
type goexifReader struct {
	extensions Extensions
}

func newGoexifReader() *goexifReader {
	return &goexifReader{extensions: NewExtensions()}
}

func (r *goexifReader) name() string {
	return "goexif"
}

func (r *goexifReader) captureDate(filePath string) (time.Time, bool) {
	// goexif scans for a JPEG APP1 segment, other containers are left to exiftool
	if !r.extensions.IsJPEG(filePath) {
		return time.Time{}, false
	}

	f, err := os.Open(filePath)
	if err != nil {
		logger.Debug("Failed to open file for EXIF", "file", filePath, "error", err)
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logger.Debug("Failed to decode EXIF", "file", filepath.Base(filePath), "error", err)
		return time.Time{}, false
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, false
	}
	val, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	return parseExifDate(filePath, val)
}

// exiftoolReader asks a running exiftool process, which understands HEIC and PNG
type exiftoolReader struct {
	et *exiftool.Exiftool
}

func newExiftoolReader(et *exiftool.Exiftool) *exiftoolReader {
	return &exiftoolReader{et: et}
}

func (r *exiftoolReader) name() string {
	return "exiftool"
}

func (r *exiftoolReader) captureDate(filePath string) (time.Time, bool) {
	fileInfos := r.et.ExtractMetadata(filePath)
	if len(fileInfos) == 0 {
		return time.Time{}, false
	}

	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		logger.Debug("exiftool failed", "file", filepath.Base(filePath), "error", fileInfo.Err)
		return time.Time{}, false
	}

	val, err := fileInfo.GetString(exiftoolDateField)
	if err != nil {
		return time.Time{}, false
	}
	return parseExifDate(filePath, val)
}

// parseExifDate parses a DateTimeOriginal value as naive local time
func parseExifDate(filePath, val string) (time.Time, bool) {
	val = strings.TrimRight(val, "\x00 ")
	date, err := time.ParseInLocation(exifDateLayout, val, time.Local)
	if err != nil {
		logger.Debug("Failed to parse EXIF date", "file", filepath.Base(filePath), "date", val, "error", err)
		return time.Time{}, false
	}
	return date, true
}

// DateResolver determines the date a photo was taken.
//
// Raw files always use their modification time. Other images use the first
// DateTimeOriginal found by the readers, in order:
//
//   - goexif: in-process decoding of JPEG files.
//   - exiftool: HEIC, PNG and anything goexif could not read, when an
//     exiftool process is available.
//
// When no reader finds a date the modification time is used.
type DateResolver struct {
	extensions Extensions
	readers    []captureDateReader
}

// NewDateResolver creates a DateResolver. et may be nil, in which case only
// the in-process EXIF reader is used.
func NewDateResolver(et *exiftool.Exiftool) *DateResolver {
	readers := []captureDateReader{newGoexifReader()}
	if et != nil {
		readers = append(readers, newExiftoolReader(et))
	}
	return &DateResolver{
		extensions: NewExtensions(),
		readers:    readers,
	}
}

// CaptureDate returns the embedded capture date of a non-raw image.
// ok is false for raw files and when no usable date is embedded.
func (r *DateResolver) CaptureDate(filePath string) (time.Time, bool) {
	if r.extensions.IsRaw(filePath) {
		return time.Time{}, false
	}
	for _, reader := range r.readers {
		if date, ok := reader.captureDate(filePath); ok {
			logger.Debug("Using embedded capture date", "file", filepath.Base(filePath), "reader", reader.name(), "date", date)
			return date, true
		}
	}
	return time.Time{}, false
}

// ResolveDate returns the capture date of a file, falling back to its
// modification time. It only fails when the file cannot be stat'ed.
func (r *DateResolver) ResolveDate(filePath string) (time.Time, error) {
	if date, ok := r.CaptureDate(filePath); ok {
		return date, nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return time.Time{}, err
	}
	logger.Debug("Using file modification time", "file", filepath.Base(filePath), "modTime", info.ModTime())
	return info.ModTime(), nil
}
