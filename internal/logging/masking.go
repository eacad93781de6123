// Package logging provides utilities for secure logging with data masking.
package logging

import (
	"encoding/json"
	"strings"
)

// sensitiveFields are JSON body fields whose values never reach the logs.
var sensitiveFields = map[string]bool{
	"password":         true,
	"registration_key": true,
	"token":            true,
	"secret":           true,
}

// MaskHeader redacts sensitive header values based on header name.
// Returns the redacted value suitable for logging.
//
// Rules:
// - Password/secret headers: "[REDACTED]" (no partial reveal)
// - Token/API key headers: "****" + last4chars (e.g., "****ab3f")
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	// Password/secret headers - full redaction
	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "registration-key") {
		return "[REDACTED]"
	}

	// Token/API key headers - show last 4 chars
	if lowerName == "authorization" ||
		lowerName == "x-api-key" {
		return MaskSecret(value)
	}

	// All other headers - return unchanged
	return value
}

// MaskSecret reduces a credential to "****" plus its last 4 characters,
// enough to correlate log lines without exposing the secret.
func MaskSecret(value string) string {
	if len(value) < 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskJSONBody redacts sensitive fields in a JSON body before logging.
// Fields named in sensitiveFields are replaced with "[REDACTED]" at any
// nesting depth. Returns the masked JSON, or the original bytes if parsing
// fails.
func MaskJSONBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		// Not JSON - nothing to mask structurally
		return body
	}

	masked := maskJSONValue(data)

	result, err := json.Marshal(masked)
	if err != nil {
		return body
	}

	return result
}

// maskJSONValue recursively redacts sensitive fields.
func maskJSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, val := range v {
			if sensitiveFields[strings.ToLower(key)] {
				result[key] = "[REDACTED]"
				continue
			}
			result[key] = maskJSONValue(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item)
		}
		return result
	default:
		return value
	}
}
