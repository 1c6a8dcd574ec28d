package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNotDataURI is returned when a string is not a base64 data URI.
var ErrNotDataURI = errors.New("not a base64 data URI")

// DecodeDataURI decodes a "data:<mime>;base64,<payload>" string into its
// mime type and raw bytes. The engine reports captured screenshots in this
// form.
func DecodeDataURI(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}

	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	if mime == "" {
		mime = "application/octet-stream"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return mime, data, nil
}
