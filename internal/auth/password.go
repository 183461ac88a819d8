package auth

import "golang.org/x/crypto/bcrypt"

// Cost 12 rather than the bcrypt default; these hashes gate real money.
const hashCost = 12

func HashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), hashCost)
	return string(b), err
}

func VerifyPassword(plain, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
