package sessionstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

// Credential file layout constants, matching the teacher's
// pkg/config/secrets.go scrypt+AES-GCM scheme.
const (
	credentialsFileName = "credentials.json.enc"
	saltSize            = 16
	nonceSize           = 12
	scryptN             = 32768
	scryptR             = 8
	scryptP             = 1
	keySize             = 32
)

// EncryptCredentials derives a key from passphrase via scrypt and encrypts
// the runtime credential map with AES-256-GCM, writing
// <sessionDir>/credentials.json.enc with 0600 permissions so injected
// runtime credentials never touch disk in plaintext.
func EncryptCredentials(sessionDir, passphrase string, creds map[string]string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("sessionstore: generating salt: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("sessionstore: deriving key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("sessionstore: marshaling credentials: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("sessionstore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("sessionstore: creating GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sessionstore: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("sessionstore: creating session directory: %w", err)
	}
	path := filepath.Join(sessionDir, credentialsFileName)
	if err := os.WriteFile(path, fileData, 0o600); err != nil {
		return fmt.Errorf("sessionstore: writing credentials file: %w", err)
	}
	return nil
}

// DecryptCredentials reverses EncryptCredentials.
func DecryptCredentials(sessionDir, passphrase string) (map[string]string, error) {
	path := filepath.Join(sessionDir, credentialsFileName)
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: reading credentials file: %w", err)
	}

	minSize := saltSize + nonceSize + 16
	if len(fileData) < minSize {
		return nil, fmt.Errorf("sessionstore: credentials file is corrupted or invalid")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: deriving key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: decryption failed (wrong passphrase or corrupted file)")
	}

	var creds map[string]string
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("sessionstore: parsing credentials: %w", err)
	}
	return creds, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
