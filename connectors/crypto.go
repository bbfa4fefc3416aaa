package connectors

import (
	"fmt"
	"strings"

	"github.com/ignitergo/connectors/pkg/crypto"
)

// sensitiveKeyHints are substrings that mark a config field as sensitive
// when a connector doesn't declare an explicit EncryptedFields list. Used
// both by encryptConfig's default policy and by the Field Introspector's
// maskSensitiveSettings behavior, so the two stay in lockstep.
var sensitiveKeyHints = []string{
	"secret", "token", "key", "password", "credential", "apikey", "api_key",
}

func looksSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, hint := range sensitiveKeyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// encryptConfig returns a copy of config with every field named by def's
// encryption policy (explicit EncryptedFields, or the sensitive-name
// default) replaced by its ciphertext-formatted value. Already-encrypted
// values (per crypto.IsEncrypted) are left untouched so re-saving a record
// never double-encrypts it.
func encryptConfig(cipher crypto.Cipher, def ConnectorDefinition, config map[string]any) (map[string]any, error) {
	if cipher == nil {
		return nil, ErrEncryptionSecretRequired
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = v
	}

	fields := def.EncryptedFields
	for k, v := range out {
		str, ok := v.(string)
		if !ok || str == "" {
			continue
		}
		shouldEncrypt := false
		if len(fields) > 0 {
			shouldEncrypt = containsField(fields, k)
		} else {
			shouldEncrypt = looksSensitive(k)
		}
		if !shouldEncrypt || crypto.IsEncrypted(str) {
			continue
		}
		ct, err := cipher.Encrypt(str)
		if err != nil {
			return nil, ErrEncryptFailed.WithInternal(fmt.Errorf("field %q: %w", k, err))
		}
		out[k] = ct
	}
	return out, nil
}

// decryptConfig reverses encryptConfig, leaving plaintext values (those
// that never matched crypto.IsEncrypted) untouched.
func decryptConfig(cipher crypto.Cipher, config map[string]any) (map[string]any, error) {
	if cipher == nil {
		return nil, ErrEncryptionSecretRequired
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		str, ok := v.(string)
		if !ok || !crypto.IsEncrypted(str) {
			out[k] = v
			continue
		}
		pt, err := cipher.Decrypt(str)
		if err != nil {
			return nil, ErrDecryptFailed.WithInternal(fmt.Errorf("field %q: %w", k, err))
		}
		out[k] = pt
	}
	return out, nil
}

func containsField(fields []string, key string) bool {
	for _, f := range fields {
		if f == key {
			return true
		}
	}
	return false
}
