package pics

import (
	"io"
	"os"

	"github.com/acm19/offload/internal/logger"
	"github.com/djherbis/times"
)

// copyFilePreserveMetadata copies src over dst and carries over the
// permission bits, access time and modification time of src.
func copyFilePreserveMetadata(src, dst string) error {
	logger.Debug("Starting file copy", "from", src, "to", dst)

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	srcTimes, err := times.Stat(src)
	if err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}

	bytesWritten, err := io.Copy(dstFile, srcFile)
	if err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}
	logger.Debug("File copied", "from", src, "to", dst, "bytes", bytesWritten)

	if err := verifyCopy(dst, srcInfo.Size()); err != nil {
		return err
	}

	// OpenFile only applies the mode to new files
	if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(dst, srcTimes.AccessTime(), srcTimes.ModTime()); err != nil {
		return err
	}

	logger.Debug("Metadata preserved", "file", dst, "mode", srcInfo.Mode().Perm(), "modTime", srcTimes.ModTime())
	return nil
}
