package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CPFLength is the number of digits in a CPF.
const CPFLength = 11

// ValidCPF reports whether s is exactly eleven ASCII digits.
// Check digits are not enforced; the registry imports legacy records without them.
func ValidCPF(s string) bool {
	if len(s) != CPFLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// GenerateCPF returns a random CPF with correct check digits.
func GenerateCPF() (string, error) {
	digits := make([]int, CPFLength)
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10)) //nolint:mnd // decimal digit
		if err != nil {
			return "", fmt.Errorf("generating cpf: %w", err)
		}
		digits[i] = int(n.Int64())
	}
	digits[9] = cpfCheckDigit(digits[:9])
	digits[10] = cpfCheckDigit(digits[:10])

	buf := make([]byte, CPFLength)
	for i, d := range digits {
		buf[i] = byte('0' + d)
	}
	return string(buf), nil
}

// cpfCheckDigit computes the mod-11 check digit over prefix.
func cpfCheckDigit(prefix []int) int {
	sum := 0
	weight := len(prefix) + 1
	for _, d := range prefix {
		sum += d * weight
		weight--
	}
	r := (sum * 10) % 11
	if r == 10 {
		return 0
	}
	return r
}
