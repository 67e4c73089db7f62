package cache

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"golang.org/x/text/cases"
)

// Key returns the cache key for text: the hex BLAKE2b-256 digest of the
// trimmed, case-folded text. Texts that normalize equally share a key.
func Key(text string) string {
	normalized := cases.Fold().String(strings.TrimSpace(text))

	h, _ := blake2b.New(32, nil)
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}
