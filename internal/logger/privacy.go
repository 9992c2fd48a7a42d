package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const defaultHashSalt = "default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt loads the salt from LOG_HASH_SALT.
// In production, set LOG_HASH_SALT so hashes are not guessable.
func InitHashSalt() {
	if salt := os.Getenv("LOG_HASH_SALT"); salt != "" {
		hashSalt = salt
		return
	}
	Log.Warn().Msg("LOG_HASH_SALT not set, using default salt")
	hashSalt = defaultHashSalt
}

// InitHashSaltForTesting sets a fixed salt.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	data := fmt.Sprintf("%d:%s", chatID, hashSalt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:8]
}

// RedactToken keeps the last four characters of a credential.
func RedactToken(token string) string {
	if token == "" {
		return "<none>"
	}
	if len(token) <= 8 {
		return "<redacted>"
	}
	return "…" + token[len(token)-4:]
}

// SanitizeEmail keeps the first letter of the local part and the domain.
func SanitizeEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" {
		return SanitizeText(email)
	}
	return local[:1] + "***@" + domain
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	// For short text, show only the length
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
