package usecase

import (
	"encoding/base64"
	"strings"
)

const msgNoFile = "No File Uploaded"

// decodeBody turns the raw request body into bytes.
func decodeBody(body string, isBase64 bool) ([]byte, error) {
	if body == "" {
		return nil, newError(ErrorInput, msgNoFile, nil)
	}
	if !isBase64 {
		return []byte(body), nil
	}

	trimmed := strings.TrimSpace(body)
	enc := base64.StdEncoding
	if !strings.HasSuffix(trimmed, "=") && len(trimmed)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(trimmed)
	if err != nil {
		return nil, newError(ErrorInput, "invalid base64 body", err)
	}
	return data, nil
}
