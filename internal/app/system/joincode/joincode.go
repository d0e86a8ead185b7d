// Package joincode creates and normalizes organization join codes.
//
// Codes are short, uppercase and drawn from an alphabet without the easily
// confused characters 0/O and 1/I/L, so they can be read aloud or copied by hand.
package joincode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Length of generated codes.
const Length = 6

const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Normalize trims surrounding whitespace and uppercases the code. Stored
// codes are always in this form.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Generate returns a random code of Length characters.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
