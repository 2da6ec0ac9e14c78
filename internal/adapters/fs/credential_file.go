package fs

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	credentialFileName = "credentials.enc"

	// credentialFormatVersion is the current sealed blob format.
	credentialFormatVersion = 1
)

var errWrongPassphrase = errors.New("wrong passphrase or corrupted credential file")

// sealedBlob is the on-disk JSON structure holding ciphertext and KDF parameters.
type sealedBlob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_n"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// CredentialFile implements ports.CredentialStore with a passphrase-sealed file.
type CredentialFile struct {
	dir        string
	passphrase string
	n, r, p    int

	mu sync.Mutex
}

// NewCredentialFile creates a credential store in dir sealed with passphrase.
func NewCredentialFile(dir, passphrase string) *CredentialFile {
	return &CredentialFile{dir: dir, passphrase: passphrase, n: 1 << 15, r: 8, p: 1}
}

// WithScryptParams overrides the key derivation cost. Tests use small values.
func (c *CredentialFile) WithScryptParams(n, r, p int) *CredentialFile {
	c.n, c.r, c.p = n, r, p
	return c
}

// Path returns the full path to the sealed file.
func (c *CredentialFile) Path() string {
	return filepath.Join(c.dir, credentialFileName)
}

// Get returns the secret stored under key.
func (c *CredentialFile) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	secrets, err := c.load()
	if err != nil {
		return "", false, err
	}
	v, ok := secrets[key]
	return v, ok, nil
}

// Set stores secret under key.
func (c *CredentialFile) Set(key, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	secrets, err := c.load()
	if err != nil {
		return err
	}
	secrets[key] = secret
	return c.save(secrets)
}

// Delete removes a single key.
func (c *CredentialFile) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	secrets, err := c.load()
	if err != nil {
		return err
	}
	if _, ok := secrets[key]; !ok {
		return nil
	}
	delete(secrets, key)
	return c.save(secrets)
}

// Clear removes every stored secret. Clearing an absent store succeeds.
func (c *CredentialFile) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func (c *CredentialFile) load() (map[string]string, error) {
	data, err := os.ReadFile(c.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var blob sealedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if blob.V > credentialFormatVersion {
		return nil, fmt.Errorf("unsupported credential format version %d", blob.V)
	}

	key, err := scrypt.Key([]byte(c.passphrase), blob.Salt, blob.N, blob.R, blob.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, blob.Nonce, blob.Cipher, blob.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}

	secrets := map[string]string{}
	if err := json.Unmarshal(plain, &secrets); err != nil {
		return nil, fmt.Errorf("decode secrets: %w", err)
	}
	return secrets, nil
}

func (c *CredentialFile) save(secrets map[string]string) error {
	plain, err := json.Marshal(secrets)
	if err != nil {
		return err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	key, err := scrypt.Key([]byte(c.passphrase), salt, c.n, c.r, c.p, chacha20poly1305.KeySize)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	data, err := json.Marshal(sealedBlob{
		V:      credentialFormatVersion,
		Salt:   salt,
		N:      c.n,
		R:      c.r,
		P:      c.p,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, plain, salt),
	})
	if err != nil {
		return err
	}
	if err := writeFileAtomic(c.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
