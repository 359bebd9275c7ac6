package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash for storage in users.password_hash.
// The cost comes from BCRYPT_COST so environments can trade latency for
// hardness without a code change.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash. Callers
// only see a boolean, so login responses stay uniform for bad emails and
// bad passwords alike.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
