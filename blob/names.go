package blob

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomToken returns n characters drawn from [a-z0-9].
func randomToken(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("blob: read random: %v", err))
		}
		b[i] = tokenAlphabet[v.Int64()]
	}
	return string(b)
}

// newFilename builds "<folder>_<unixMillis>_<token><ext>". The timestamp plus
// random suffix keeps concurrent writers from colliding without a lock.
func (s *Storage) newFilename(folder Folder, ext string) string {
	return fmt.Sprintf("%s_%d_%s%s", folder, s.now().UnixMilli(), randomToken(9), ext)
}
