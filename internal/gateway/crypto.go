package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
)

// preambleLen is the size of the raw handshake the gateway sends first:
// three big-endian uint32 values (prime, generator, client public key).
const preambleLen = 12

// Preamble holds the client's half of the Diffie-Hellman exchange.
type Preamble struct {
	Prime     uint32
	Generator uint32
	ClientKey uint32
}

// ParsePreamble decodes the 12-byte handshake preamble.
//
// Returns ErrCrypto when the buffer is the wrong size or the parameters
// are degenerate (zero prime or generator).
func ParsePreamble(data []byte) (Preamble, error) {
	if len(data) != preambleLen {
		return Preamble{}, fmt.Errorf("%w: preamble length %d", ErrCrypto, len(data))
	}
	p := Preamble{
		Prime:     binary.BigEndian.Uint32(data[0:4]),
		Generator: binary.BigEndian.Uint32(data[4:8]),
		ClientKey: binary.BigEndian.Uint32(data[8:12]),
	}
	if p.Prime == 0 || p.Generator == 0 {
		return Preamble{}, fmt.Errorf("%w: degenerate DH parameters", ErrCrypto)
	}
	return p, nil
}

// Derive computes the server's public key and the session key material for
// the given server secret.
//
// serverKey = generator^secret mod prime, shared = clientKey^secret mod
// prime. The session key is md5 of the shared secret encoded as 4
// big-endian bytes, and the IV is md5 of the key.
func (p Preamble) Derive(secret uint32) (serverKey uint32, key, iv []byte) {
	prime := new(big.Int).SetUint64(uint64(p.Prime))
	serverKey = uint32(new(big.Int).Exp(
		new(big.Int).SetUint64(uint64(p.Generator)),
		new(big.Int).SetUint64(uint64(secret)),
		prime,
	).Uint64())
	shared := uint32(new(big.Int).Exp(
		new(big.Int).SetUint64(uint64(p.ClientKey)),
		new(big.Int).SetUint64(uint64(secret)),
		prime,
	).Uint64())

	var sharedBytes [4]byte
	binary.BigEndian.PutUint32(sharedBytes[:], shared)
	keySum := md5.Sum(sharedBytes[:])
	ivSum := md5.Sum(keySum[:])
	return serverKey, keySum[:], ivSum[:]
}

// ServerKeyBytes encodes the server's public key the way it is written to
// the socket: 4 big-endian bytes, unframed and unencrypted.
func ServerKeyBytes(serverKey uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, serverKey)
	return out
}

// randomSecret draws a 31-bit server DH secret from crypto/rand.
func randomSecret() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("%w: reading secret: %v", ErrCrypto, err)
	}
	return binary.BigEndian.Uint32(buf[:]) & 0x7fffffff, nil
}

// Cipher is an AES-128-CBC codec with zero padding, matching the gateway
// wire format. The same key and IV are used for every packet of a session.
//
// Zero padding is lossy for payloads with trailing zero bytes; the JSON
// payloads carried here never end in 0x00, so round-trips are exact.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher builds a session cipher from 16-byte key and IV.
func NewCipher(key, iv []byte) (*Cipher, error) {
	if len(key) != 16 || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: key/iv must be 16 bytes", ErrCrypto)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	c := &Cipher{block: block, iv: make([]byte, aes.BlockSize)}
	copy(c.iv, iv)
	return c, nil
}

// Encrypt pads plaintext with zero bytes to a block multiple and encrypts
// it in CBC mode.
func (c *Cipher) Encrypt(plaintext []byte) []byte {
	padded := plaintext
	if rem := len(plaintext) % aes.BlockSize; rem != 0 {
		padded = make([]byte, len(plaintext)+aes.BlockSize-rem)
		copy(padded, plaintext)
	} else {
		padded = make([]byte, len(plaintext))
		copy(padded, plaintext)
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return out
}

// Decrypt decrypts ciphertext and strips trailing zero padding.
//
// Returns ErrCrypto when the ciphertext length is not a multiple of the
// AES block size.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrCrypto, len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, ciphertext)
	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return out[:end], nil
}
