package securestorage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Ciphertext layout is the OpenSSL "enc" passphrase format:
//
//	base64("Salted__" || salt[8] || AES-256-CBC(PKCS#7(plaintext)))
//
// with key and IV derived by EVP_BytesToKey(MD5, 1 round). Values written by
// earlier clients use exactly this layout and must stay readable.
const (
	saltMagic = "Salted__"
	saltLen   = 8
	keyLen    = 32
)

// Encrypt seals plaintext under passphrase. Salt bytes come from rnd, or from
// crypto/rand when rnd is nil.
func Encrypt(plaintext, passphrase string, rnd io.Reader) (string, error) {
	if rnd == nil {
		rnd = rand.Reader
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return "", fmt.Errorf("%w: salt: %v", ErrEncryptionFailure, err)
	}

	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(saltMagic)+saltLen+len(padded))
	copy(out, saltMagic)
	copy(out[len(saltMagic):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(saltMagic)+saltLen:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt. A wrong passphrase surfaces as
// ErrDecryptionFailure (bad padding or non UTF-8 output), never as garbage.
func Decrypt(encoded, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrDecryptionFailure, err)
	}
	if len(raw) < len(saltMagic)+saltLen || !bytes.Equal(raw[:len(saltMagic)], []byte(saltMagic)) {
		return "", fmt.Errorf("%w: missing salt header", ErrDecryptionFailure)
	}

	salt := raw[len(saltMagic) : len(saltMagic)+saltLen]
	body := raw[len(saltMagic)+saltLen:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrDecryptionFailure, len(body))
	}

	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: malformed utf-8", ErrDecryptionFailure)
	}
	return string(plain), nil
}

// deriveKeyIV is EVP_BytesToKey with MD5 and a single iteration.
func deriveKeyIV(passphrase, salt []byte) ([]byte, []byte) {
	need := keyLen + aes.BlockSize
	derived := make([]byte, 0, need+md5.Size)

	var prev []byte
	for len(derived) < need {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen:need]
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
