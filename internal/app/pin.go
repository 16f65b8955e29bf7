package app

import (
	"crypto/rand"
	"math/big"
)

// Game PINs are short numeric codes typed in by players, Kahoot style.
const pinDigits = "0123456789"

const pinLength = 6

// GeneratePin returns a random numeric game PIN.
func GeneratePin() (string, error) {
	pin := make([]byte, pinLength)
	for i := range pin {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pinDigits))))
		if err != nil {
			return "", err
		}
		pin[i] = pinDigits[n.Int64()]
	}
	return string(pin), nil
}
