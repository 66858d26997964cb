package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	keyLen           = 32
	saltLen          = 16
)

// ErrNoPassphrase is returned when an encrypted store is built without a passphrase.
var ErrNoPassphrase = errors.New("session passphrase is empty")

// envelope is the on-disk form of an encrypted record.
type envelope struct {
	Version int    `json:"v"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

type aesSealer struct {
	passphrase []byte
}

// NewEncryptedFileStore returns a FileStore whose record is sealed with
// AES-256-GCM under a key derived from passphrase with PBKDF2-SHA256. A fresh
// salt and nonce are drawn on every write.
func NewEncryptedFileStore(path, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	return &FileStore{path: path, sealer: aesSealer{passphrase: []byte(passphrase)}}, nil
}

func (a aesSealer) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(a.passphrase, salt, pbkdf2Iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (a aesSealer) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	gcm, err := a.gcm(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return json.Marshal(envelope{
		Version: 1,
		Salt:    salt,
		Nonce:   nonce,
		Data:    gcm.Seal(nil, nonce, plain, nil),
	})
}

func (a aesSealer) open(sealed []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != 1 || len(env.Salt) != saltLen {
		return nil, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	gcm, err := a.gcm(env.Salt)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != gcm.NonceSize() {
		return nil, errors.New("bad nonce length")
	}
	plain, err := gcm.Open(nil, env.Nonce, env.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
