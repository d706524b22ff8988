package crypto

import (
	"encoding/base64"
	"unicode/utf8"
)

// EncodeShareableID derives the public, URL-safe id of an aggregator
// account id. The encoding is reversible and carries no secret.
func EncodeShareableID(accountID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(accountID))
}

func DecodeShareableID(shareableID string) (string, error) {
	if shareableID == "" {
		return "", ErrInvalidShareableID
	}

	raw, err := base64.RawURLEncoding.DecodeString(shareableID)
	if err != nil || len(raw) == 0 || !utf8.Valid(raw) {
		return "", ErrInvalidShareableID
	}

	return string(raw), nil
}
