package raknet

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encryptor is the opaque hook the session calls through when a game
// packet's compressed buffer needs encrypting; spec.md is explicit
// that cryptographic handshake design is out of scope, so this
// interface only covers the steady-state AEAD call once a key has
// already been established by whatever handshake the game layer runs.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// aeadEncryptor implements Encryptor with ChaCha20-Poly1305, grounded
// on golang.org/x/crypto usage in xendarboh-katzenpost and
// 1ureka-roj1's transport-layer encryption. Each call draws a fresh
// random nonce, prepended to the ciphertext the way AEAD-over-UDP
// transports commonly do since there's no persistent stream state to
// derive one from.
type aeadEncryptor struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// NewAEADEncryptor builds an Encryptor from a 32-byte key already
// established by the game layer's own handshake.
func NewAEADEncryptor(key [32]byte) (Encryptor, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, newErr(KindCrypto, "new aead encryptor", err)
	}
	return &aeadEncryptor{aead: aead}, nil
}

func (e *aeadEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, newErr(KindCrypto, "encrypt", err)
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+chacha20poly1305.Overhead)
	out = append(out, nonce...)
	return e.aead.Seal(out, nonce, plaintext, nil), nil
}

func (e *aeadEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	n := e.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, newErr(KindCrypto, "decrypt", fmt.Errorf("ciphertext shorter than nonce"))
	}
	nonce, box := ciphertext[:n], ciphertext[n:]
	plaintext, err := e.aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, newErr(KindCrypto, "decrypt", err)
	}
	return plaintext, nil
}
