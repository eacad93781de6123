//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// doRequest sends a JSON request with optional headers and decodes the JSON
// response body into a map (nil on empty or non-JSON bodies).
func doRequest(t *testing.T, method, path string, payload map[string]any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp.StatusCode, decoded
}

// plainRequest sends an unauthenticated request.
func plainRequest(t *testing.T, method, path string, payload map[string]any) (int, map[string]any) {
	t.Helper()
	return doRequest(t, method, path, payload, nil)
}

// bootstrapRequest authenticates with the registration key.
func bootstrapRequest(t *testing.T, method, path string, payload map[string]any) (int, map[string]any) {
	t.Helper()
	return doRequest(t, method, path, payload, map[string]string{"X-Api-Key": registrationKey})
}

// tokenRequest authenticates with a bearer PAT.
func tokenRequest(t *testing.T, token, method, path string, payload map[string]any) (int, map[string]any) {
	t.Helper()
	return doRequest(t, method, path, payload, map[string]string{"Authorization": "Bearer " + token})
}
