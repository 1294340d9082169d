package util

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword хэширует пароль через bcrypt со стандартной стоимостью.
// Соль генерируется внутри bcrypt, два вызова дают разные хэши
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль с сохраненным хэшем
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
