package service

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyPassword checks a client-supplied password against the configured
// access password. Plain secrets compare byte-for-byte; a configured value
// that is a bcrypt hash is compared with bcrypt, so deployments can avoid
// keeping the secret in the environment in clear text.
func (s *SyncService) VerifyPassword(password string) bool {
	secret := s.cfg.AccessPassword

	if strings.HasPrefix(secret, "$2a$") || strings.HasPrefix(secret, "$2b$") || strings.HasPrefix(secret, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}
