package app

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/warepix/warepix/internal/domain"
)

const superUsername = "admin"
const defaultPassword = "warepix"

// GetSecretSalt returns the hash salt, overridable through the environment.
func GetSecretSalt() string {
	if salt := os.Getenv("WAREPIX_SECRET"); salt != "" {
		return salt
	}
	return "warepix-secret"
}

func Sha256HashWithSalt(s, salt string) string {
	sum := sha256.Sum256([]byte(s + salt))
	return hex.EncodeToString(sum[:])
}

// CheckLogin validates the single operator account. The password can be
// changed by setting WAREPIX_PASSWORD_HASH to a salted sha256 digest.
func (a *Application) CheckLogin(username, password string) error {
	if username != superUsername {
		return domain.ValidationErrorf("unknown user %s", username)
	}
	want := os.Getenv("WAREPIX_PASSWORD_HASH")
	if want == "" {
		want = Sha256HashWithSalt(defaultPassword, GetSecretSalt())
	}
	if Sha256HashWithSalt(password, GetSecretSalt()) != want {
		return domain.ValidationErrorf("wrong password")
	}
	return nil
}
