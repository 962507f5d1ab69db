// Package commitment implements the commit-reveal integrity check for
// numeric-vector answers: a participant first submits a digest of its
// values, then reveals the values in a later round, and the verifier
// detects any tampering in between.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Digest computes the commitment for a vector of values. Each value is
// encoded as a little-endian IEEE-754 float64; the concatenation is
// hashed with SHA-256. The encoding is fixed so that committer and
// verifier agree byte for byte.
func Digest(values []float64) [sha256.Size]byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return sha256.Sum256(buf)
}

// Encode renders a digest in the base64 transport form.
func Encode(digest [sha256.Size]byte) string {
	return base64.StdEncoding.EncodeToString(digest[:])
}

// Decode parses the base64 transport form back into a digest.
func Decode(s string) ([sha256.Size]byte, bool) {
	var out [sha256.Size]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) != sha256.Size {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

// Verify recomputes the commitment for values and compares it to the
// claimed digest. Any mismatch, including a different vector length,
// rejects.
func Verify(values []float64, claimed [sha256.Size]byte) bool {
	actual := Digest(values)
	return subtle.ConstantTimeCompare(actual[:], claimed[:]) == 1
}
