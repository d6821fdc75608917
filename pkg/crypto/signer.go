package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
)

// SignatureHeader carries the ledger signature on API responses.
const SignatureHeader = "X-Ledger-Signature"

var (
	ErrEmptyKey         = errors.New("signing key is empty")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer computes HMAC-SHA256 signatures over rendered ledgers, so a
// consumer holding the same key can check a report was not altered.
type Signer struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewSigner(secretKey string, logger *slog.Logger) (*Signer, error) {
	if secretKey == "" {
		return nil, ErrEmptyKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		secretKey: []byte(secretKey),
		logger:    logger,
	}, nil
}

// Sign returns the hex encoded signature of data.
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(data []byte, signature string) error {
	expected := s.Sign(data)

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.logger.Warn("Ledger signature verification failed",
			slog.Int("bytes", len(data)))
		return ErrInvalidSignature
	}
	return nil
}
