package models

import "strings"

// KeyIdentifier is the non-secret label an API key is tracked under.
type KeyIdentifier string

const NoKey KeyIdentifier = "no_key"

// IdentifierFor derives the bookkeeping label for a secret: "key_" plus its last four characters.
func IdentifierFor(apiKey string) KeyIdentifier {
	if apiKey == "" {
		return NoKey
	}
	suffix := apiKey
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return KeyIdentifier("key_" + suffix)
}

// CandidateKeys returns primary followed by fallbacks with blank entries removed.
func CandidateKeys(primary string, fallbacks []string) []string {
	keys := make([]string, 0, len(fallbacks)+1)
	for _, k := range append([]string{primary}, fallbacks...) {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
