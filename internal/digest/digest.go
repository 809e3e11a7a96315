// Package digest computes the MD5 fingerprints the release catalog and S3
// ETags use, reading files in fixed-size chunks so memory stays constant.
package digest

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ChunkSize is the read buffer used when hashing.
const ChunkSize = 8 * 1024

// Empty is the digest of zero bytes.
const Empty = "d41d8cd98f00b204e9800998ecf8427e"

// Reader returns the lowercase hex MD5 of everything read from r.
func Reader(r io.Reader) (string, error) {
	hasher := md5.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(hasher, r, buf); err != nil {
		return "", errors.Wrap(err, "failed to read data for checksum")
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// File returns the lowercase hex MD5 of the file at path.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer file.Close()

	sum, err := Reader(file)
	if err != nil {
		return "", errors.Wrapf(err, "failed to hash file: %s", path)
	}
	return sum, nil
}

// Normalize lowercases a digest and strips whitespace and ETag quotes.
func Normalize(sum string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(sum), `"`))
}

// Equal compares two digests after normalisation. Empty values never match.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}
