package program

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashPath returns the stable structural hash of a definition: the first
// 16 bytes of SHA-256 over "module::path", hex encoded.
func HashPath(module, path string) string {
	sum := sha256.Sum256([]byte(module + "::" + path))
	return hex.EncodeToString(sum[:16])
}

// GuessVersion derives a version for a module without registered
// metadata. A "name-1.2.3" module yields the text after the last dash
// when it starts with a digit; anything else yields "0.0.0-<hash8>" of
// the module name.
func GuessVersion(module string) string {
	if idx := strings.LastIndexByte(module, '-'); idx >= 0 {
		if v := module[idx+1:]; v != "" && v[0] >= '0' && v[0] <= '9' {
			return v
		}
	}
	sum := sha256.Sum256([]byte(module))
	return "0.0.0-" + hex.EncodeToString(sum[:4])
}
