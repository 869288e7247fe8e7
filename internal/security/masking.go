// Package security provides security utilities for the application
package security

// MaskSecret masks sensitive strings for logging.
// Shows first N characters followed by "..." to minimize secret exposure.
// Returns "***" for very short secrets (â‰¤ prefixLen).
//
// Examples:
//
//	MaskSecret("sk_test_abc123", 4) -> "sk_t..."
//	MaskSecret("abcd", 4) -> "***"
//	MaskSecret("", 4) -> ""
func MaskSecret(secret string, prefixLen int) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= prefixLen {
		return "***"
	}
	return secret[:prefixLen] + "..."
}

// MaskAPIKey masks API keys (shows first 4 characters).
// Convenience wrapper for MaskSecret with prefixLen=4.
//
// Example:
//
//	MaskAPIKey("sk_test_abc123") -> "sk_t..."
func MaskAPIKey(key string) string {
	return MaskSecret(key, 4)
}
