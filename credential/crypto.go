package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Fixed derivation parameters. DeriveKey must stay deterministic for a given
// passphrase or existing ciphertexts become unreadable.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1
	keyLen  = 32
)

var keySalt = []byte("automation-bridge-credential-v1")

// ErrCiphertextTooShort is returned when the ciphertext is shorter than a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey derives a 32-byte AES key from the master passphrase.
func DeriveKey(passphrase string) []byte {
	key, err := scrypt.Key([]byte(passphrase), keySalt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		// parameters are constant and valid
		panic(err)
	}
	return key
}

// EncryptCredentials encrypts a secret set with AES-256-GCM. A fresh random
// nonce is prepended to the ciphertext.
func EncryptCredentials(key []byte, creds map[string]string) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptCredentials decrypts a blob produced by EncryptCredentials.
func DecryptCredentials(key []byte, encrypted []byte) (map[string]string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(encrypted) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce := encrypted[:gcm.NonceSize()]
	ciphertext := encrypted[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var creds map[string]string
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, err
	}

	return creds, nil
}
