package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies the download tokens that gate access to
// rendered export files. Tokens are self-contained: job id, expiry, and file
// path travel inside the token under an HMAC, so no server-side token store
// is needed.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner builds a signer. A non-positive ttl falls back to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate issues a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("job id and path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret is not configured")
	}

	expiresAt := time.Now().Add(s.ttl)
	stamp := strconv.FormatInt(expiresAt.Unix(), 10)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	signature := s.sign(jobID, stamp, encoded)

	return strings.Join([]string{jobID, stamp, encoded, signature}, "."), expiresAt, nil
}

// Parse verifies a token and returns its contents. Cleanup paths may pass
// allowExpired to resolve files whose tokens have already lapsed.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, errors.New("malformed download token")
	}
	jobID, stamp, encoded, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(jobID, stamp, encoded)), []byte(signature)) {
		return "", "", time.Time{}, errors.New("download token signature mismatch")
	}

	unix, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return "", "", time.Time{}, errors.New("malformed token expiry")
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, errors.New("download token expired")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode token path: %w", err)
	}
	return jobID, string(raw), expiresAt, nil
}

func (s *SignedURLSigner) sign(jobID, stamp, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", jobID, stamp, encodedPath)
	return hex.EncodeToString(mac.Sum(nil))
}
