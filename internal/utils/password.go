package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes an account password for users.password_hash.
// BCRYPT_COST values bcrypt would reject use bcrypt.DefaultCost instead.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(b), err
}

// VerifyPassword reports whether plain matches hash.  Login answers a
// mismatch the same way as an unknown email.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
