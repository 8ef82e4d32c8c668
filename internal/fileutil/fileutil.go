// Package fileutil provides the filesystem primitives backing uploads and
// the review workflow: conditional moves and deletes, directory maintenance
// and content checksums.
package fileutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// invalidFilenameChars strips path separators and control characters so a
// user-supplied name cannot escape its gallery directory.
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+|\.+$`)

// DirectoryExists reports whether path exists and is a directory.
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CreateDirectoryIfNotExists creates path and any missing parents. It
// reports true when the directory was created by this call.
func CreateDirectoryIfNotExists(path string) (bool, error) {
	if DirectoryExists(path) {
		return false, nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, errors.Wrapf(err, "failed to create directory %q", path)
	}

	return true, nil
}

// DeleteDirectoryIfExists removes path and everything under it. It reports
// true when something was deleted.
func DeleteDirectoryIfExists(path string) (bool, error) {
	if !DirectoryExists(path) {
		return false, nil
	}

	if err := os.RemoveAll(path); err != nil {
		return false, errors.Wrapf(err, "failed to delete directory %q", path)
	}

	return true, nil
}

// PurgeDirectory empties path by deleting and recreating it.
func PurgeDirectory(path string) error {
	if _, err := DeleteDirectoryIfExists(path); err != nil {
		return err
	}

	_, err := CreateDirectoryIfNotExists(path)
	return err
}

// DeleteFileIfExists removes the file at path. It reports true when a file
// was deleted and never fails on an absent file.
func DeleteFileIfExists(path string) (bool, error) {
	if !FileExists(path) {
		return false, nil
	}

	if err := os.Remove(path); err != nil {
		return false, errors.Wrapf(err, "failed to delete file %q", path)
	}

	return true, nil
}

// MoveFileIfExists renames source to destination. It reports true when a
// file was moved and never fails on an absent source.
func MoveFileIfExists(source, destination string) (bool, error) {
	if !FileExists(source) {
		return false, nil
	}

	if err := os.Rename(source, destination); err != nil {
		return false, errors.Wrapf(err, "failed to move file %q to %q", source, destination)
	}

	return true, nil
}

// FileSize returns the size of the file at path in bytes, or 0 when the
// file cannot be read.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.Size()
}

// DirectorySize returns the total size of every regular file under path.
func DirectorySize(path string) int64 {
	var size int64

	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.Type().IsRegular() {
			if info, err := entry.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})

	return size
}

// Checksum returns the hex-encoded MD5 digest of the file's content, or an
// empty string when the file cannot be read. The digest only guards against
// duplicate uploads, not tampering.
func Checksum(path string) string {
	file, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to compute checksum")
		return ""
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to compute checksum")
		return ""
	}

	return hex.EncodeToString(hash.Sum(nil))
}

// ChecksumBytes returns the hex-encoded MD5 digest of an in-memory blob.
func ChecksumBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SanitizeFilename strips characters that are invalid in file names or
// could traverse directories, plus any trailing dots.
func SanitizeFilename(filename string) string {
	return invalidFilenameChars.ReplaceAllString(strings.TrimSpace(filename), "")
}

// BytesToHumanReadable renders a byte count with a decimal unit suffix,
// e.g. 1500000 becomes "1.5 MB" with one decimal place.
func BytesToHumanReadable(bytes int64, decimalPlaces int) string {
	if bytes <= 0 {
		return fmt.Sprintf("%.*f %s", decimalPlaces, 0.0, sizeUnits[0])
	}

	place := int(math.Floor(math.Log(float64(bytes)) / math.Log(1000)))
	if place >= len(sizeUnits) {
		place = len(sizeUnits) - 1
	}

	value := float64(bytes) / math.Pow(1000, float64(place))
	return fmt.Sprintf("%.*f %s", decimalPlaces, value, sizeUnits[place])
}
