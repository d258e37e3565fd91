package midi

import (
	"encoding/hex"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// ContentHash returns the hex-encoded 256-bit BLAKE3 hash of a file's raw
// bytes. This is the value stored in FileRecord.ContentHash and used to
// detect duplicate content before it reaches the Sanitize stage.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentHashBytes hashes an in-memory buffer, used when Import has already
// read an archive member into memory and would rather not re-read it from
// disk.
func ContentHashBytes(data []byte) string {
	h := blake3.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
