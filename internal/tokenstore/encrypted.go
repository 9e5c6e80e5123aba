package tokenstore

import (
	"bytes"
	"errors"
	"io"

	"filippo.io/age"
)

// ErrNoPassphrase is returned when an encrypted store is created without a
// passphrase.
var ErrNoPassphrase = errors.New("tokenstore: passphrase is required")

// defaultWorkFactor is age's scrypt default.
const defaultWorkFactor = 18

type ageCodec struct {
	passphrase string
	workFactor int
}

func (c ageCodec) seal(plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(c.passphrase)
	if err != nil {
		return nil, err
	}
	recipient.SetWorkFactor(c.workFactor)

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c ageCodec) open(ciphertext []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(c.passphrase)
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// EncryptedOption configures an encrypted file store.
type EncryptedOption func(*ageCodec)

// WithWorkFactor sets the scrypt work factor (log2 of N). Lower values are
// only suitable for tests.
func WithWorkFactor(logN int) EncryptedOption {
	return func(c *ageCodec) {
		c.workFactor = logN
	}
}

// NewEncryptedFile returns a file store whose record is encrypted with an
// age scrypt recipient derived from passphrase.
func NewEncryptedFile(path, passphrase string, opts ...EncryptedOption) (*File, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	c := ageCodec{passphrase: passphrase, workFactor: defaultWorkFactor}
	for _, opt := range opts {
		opt(&c)
	}
	return &File{path: path, codec: c}, nil
}
