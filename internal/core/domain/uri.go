package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"
)

// uriModulus bounds the numeric part of an entity URI.
const uriModulus = 100000000

// AssignURI derives the content-addressed identifier of a named entity.
//
// The name is lowercased and stripped of ASCII spaces and commas (not the
// NormalizeKey rule), hashed with SHA-256, and the first 8 hex digits are
// reduced modulo 1e8 and prefixed with "r". Existing graph data is keyed on
// this value, so the recipe must stay bit-exact.
func AssignURI(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")

	sum := sha256.Sum256([]byte(s))
	n := binary.BigEndian.Uint32(sum[:4]) // first 8 hex characters
	return "r" + strconv.FormatUint(uint64(n)%uriModulus, 10)
}
