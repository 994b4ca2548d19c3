package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/buslistings/bus-scraper/internal/models"
)

// Fingerprint derives the stable identity of a listing across re-crawls.
// It digests the normalized source URL when present; otherwise it falls
// back to the normalized (title, price, capacity, mileage) tuple.
// Whitespace and case differences never change the result.
func Fingerprint(record models.ListingRecord) string {
	key := normalize(record.SourceURL)
	if key == "" {
		key = strings.Join([]string{
			normalize(record.Title),
			normalize(record.Price),
			strconv.Itoa(record.PassengerCapacity),
			normalize(record.Mileage),
		}, "|")
	}

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// normalize lowercases and collapses all whitespace runs.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
