package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeDataURI(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	t.Run("png data URI", func(t *testing.T) {
		mime, data, err := DecodeDataURI("data:image/png;base64," + encoded)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mime != "image/png" {
			t.Errorf("mime: got %q, want %q", mime, "image/png")
		}
		if !bytes.Equal(data, pngBytes) {
			t.Errorf("data mismatch: got %v, want %v", data, pngBytes)
		}
	})

	t.Run("missing mime type defaults", func(t *testing.T) {
		mime, data, err := DecodeDataURI("data:;base64," + encoded)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mime != "application/octet-stream" {
			t.Errorf("mime: got %q, want %q", mime, "application/octet-stream")
		}
		if !bytes.Equal(data, pngBytes) {
			t.Errorf("data mismatch: got %v, want %v", data, pngBytes)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		_, data, err := DecodeDataURI("data:image/png;base64,")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 0 {
			t.Errorf("expected empty data, got %v", data)
		}
	})
}

func TestDecodeDataURI_NotDataURI(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "plain file path",
			input: "/tmp/screenshots/0.png",
		},
		{
			name:  "missing data prefix",
			input: "image/png;base64,aGVsbG8=",
		},
		{
			name:  "missing comma",
			input: "data:image/png;base64",
		},
		{
			name:  "not base64 encoded",
			input: "data:text/plain,hello%20world",
		},
		{
			name:  "empty string",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeDataURI(tt.input)
			if !errors.Is(err, ErrNotDataURI) {
				t.Errorf("expected ErrNotDataURI, got %v", err)
			}
		})
	}
}

func TestDecodeDataURI_InvalidBase64(t *testing.T) {
	_, _, err := DecodeDataURI("data:image/png;base64,!!!not-base64!!!")
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if errors.Is(err, ErrNotDataURI) {
		t.Error("broken payload should not be reported as ErrNotDataURI")
	}
}
