// Package content defines the content hash used to address file data
// throughout a vault. A file's hash is the blake3 digest of its bytes,
// and doubles as the file's address in the content store.
package content

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// HashSize is the size of a content hash in bytes.
const HashSize = 32

// Hash is the blake3 digest of a file's contents.
type Hash [HashSize]byte

// HashBytes returns the hash of b.
func HashBytes(b []byte) Hash {
	return Hash(blake3.Sum256(b))
}

// HashReader hashes everything readable from r.
// It returns the hash and the number of bytes read.
func HashReader(r io.Reader) (Hash, int64, error) {
	h := blake3.New(HashSize, nil)
	n, err := io.Copy(h, r)
	if err != nil {
		return Hash{}, 0, err
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out, n, nil
}

// HashFile hashes the contents of the file at path.
// It returns the hash and the file's size in bytes.
func HashFile(path string) (Hash, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h, n, err := HashReader(f)
	if err != nil {
		return Hash{}, 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return h, n, nil
}

// ParseHex parses the 64-character hex encoding of a hash.
func ParseHex(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(HashSize) {
		return h, fmt.Errorf("invalid hash %q: want %d hex characters", s, hex.EncodedLen(HashSize))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return h, nil
}

// Hex returns the lowercase hex encoding of h.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// MarshalText encodes h as hex, so Hash values serialize as strings and
// work as JSON object keys.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes the hex encoding produced by MarshalText.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
