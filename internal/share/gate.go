package share

import (
	"crypto/subtle"

	"github.com/Karannkx/Kxshare/internal/models"
)

// Decision is the outcome of the access gate.
type Decision int

const (
	Granted Decision = iota
	PasswordRequired
	Denied
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case PasswordRequired:
		return "password required"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Authorize gates content release for a resolved share. Unprotected
// shares are always granted. For protected shares an empty submission
// asks for the password without touching the cipher; a decryption
// failure of the stored ciphertext is reported as Denied, identical to
// a wrong password. Stateless: no lockout, no attempt counting.
func (m *Manager) Authorize(rec *models.Share, submitted string) Decision {
	if !rec.Protected {
		return Granted
	}
	if submitted == "" {
		return PasswordRequired
	}

	password, err := m.cipher.Decrypt(rec.Password)
	if err != nil {
		return Denied
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(submitted)) == 1 {
		return Granted
	}
	return Denied
}
