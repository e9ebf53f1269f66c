package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is the work factor applied to every stored credential.
const bcryptCost = 12

// PasswordHasher wraps bcrypt for the identity directory. Digests embed
// their own salt and cost, so Verify needs no configuration.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the standard work factor.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcryptCost}
}

// Hash derives a salted digest of the password. Passwords longer than 72
// bytes are rejected by bcrypt; the service validates length before calling.
func (h *PasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether password matches the stored digest. A malformed
// digest verifies as false.
func (h *PasswordHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
