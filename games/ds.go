// games/ds.go
package games

import (
	"crypto/md5"
	"fmt"
	"math/rand"
	"time"
)

const dsNonceChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateDS computes the HoYoLAB request signature header for the given
// salt, timestamp, nonce, request body and query string. The hash input
// layout is a fixed upstream constant; changing it breaks wire
// compatibility. Timestamp and nonce are parameters so callers (and tests)
// control freshness.
func GenerateDS(salt string, t int64, nonce, body, query string) string {
	check := fmt.Sprintf("salt=%s&t=%d&r=%s&b=%s&q=%s", salt, t, nonce, body, query)
	hash := fmt.Sprintf("%x", md5.Sum([]byte(check)))
	return fmt.Sprintf("%d,%s,%s", t, nonce, hash)
}

// FreshDS returns a DS header for the current time with a random 6-char
// nonce.
func FreshDS(salt, body, query string) string {
	return GenerateDS(salt, time.Now().Unix(), randNonce(6), body, query)
}

func randNonce(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = dsNonceChars[rand.Intn(len(dsNonceChars))]
	}
	return string(b)
}
