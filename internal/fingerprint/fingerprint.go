// Package fingerprint derives natural keys for review deduplication.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// bodyPrefixRunes is how much of the review body participates in the key.
const bodyPrefixRunes = 120

// Review computes the content fingerprint for a review: the SHA-256 hex
// digest of (product id, author, published timestamp, first 120 characters
// of the body). The same review seen on a later crawl hashes identically.
func Review(productID int64, author, publishedAt, body string) string {
	runes := []rune(body)
	if len(runes) > bodyPrefixRunes {
		runes = runes[:bodyPrefixRunes]
	}
	key := fmt.Sprintf("%d|%s|%s|%s", productID, author, publishedAt, string(runes))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
