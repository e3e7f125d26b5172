package store

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Id prefixes per entity type.
const (
	PrefixBlogPost     = "bp"
	PrefixEvent        = "ev"
	PrefixGalleryImage = "gal"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns "<prefix>_<unixMillis>_<9 chars of [a-z0-9]>".
func NewID(prefix string, now time.Time) string {
	b := make([]byte, 9)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("store: read random: %v", err))
		}
		b[i] = idAlphabet[v.Int64()]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), b)
}
