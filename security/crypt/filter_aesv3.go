/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/unidoc/pdfcrypt/common"
)

func init() {
	registerFilter("AESV3", newFilterAESV3)
}

// NewFilterAESV3 builds an AES-256 crypt filter (CFM AESV3, PDF 2.0).
func NewFilterAESV3() Filter {
	f, err := newFilterAESV3(FilterDict{})
	if err != nil {
		common.Log.Error("ERROR: could not create AES V3 crypt filter: %v", err)
		return filterAESV3{}
	}
	return f
}

func newFilterAESV3(d FilterDict) (Filter, error) {
	length := d.Length
	if length == 256 {
		common.Log.Debug("AESV3 crypt filter length %d looks like bits, not bytes; dividing by 8", length)
		length /= 8
	}
	if length != 0 && length != 32 {
		return nil, fmt.Errorf("AESV3 crypt filter key length must be 32 bytes, got %d", length)
	}
	return filterAESV3{}, nil
}

// filterAES is the padded, IV-prepended AES-CBC body cipher shared by
// AESV2 and AESV3 -- the only difference between the two is key length and
// per-object key derivation (MakeKey), both handled by the embedding type.
type filterAES struct{}

// EncryptBytes PKCS#5-pads buf to a block boundary, generates a random IV,
// and prepends it to the ciphertext (7.6.2, "Algorithm 1").
func (filterAES) EncryptBytes(buf []byte, okey []byte) ([]byte, error) {
	block, err := aes.NewCipher(okey)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}

	padded := pkcs5Pad(buf, aes.BlockSize)

	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("aes: generating IV: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// DecryptBytes strips the leading IV, runs AES-CBC, and removes the
// PKCS#5 padding Algorithm 1 requires every AES-encrypted string or stream
// to carry.
func (filterAES) DecryptBytes(buf []byte, okey []byte) ([]byte, error) {
	block, err := aes.NewCipher(okey)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	if len(buf) < aes.BlockSize {
		return nil, fmt.Errorf("aes: ciphertext shorter than one block (%d bytes)", len(buf))
	}

	iv, body := buf[:aes.BlockSize], buf[aes.BlockSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes: ciphertext not a multiple of the block size (%d bytes)", len(body))
	}

	cipher.NewCBCDecrypter(block, iv).CryptBlocks(body, body)
	return pkcs5Unpad(body)
}

// pkcs5Pad appends 1..blockSize bytes, each holding the pad length, so that
// len(buf) becomes a multiple of blockSize -- a full block of padding is
// added when buf is already aligned, so the pad can always be removed
// unambiguously.
func pkcs5Pad(buf []byte, blockSize int) []byte {
	pad := blockSize - len(buf)%blockSize
	out := make([]byte, len(buf)+pad)
	copy(out, buf)
	for i := len(buf); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs5Unpad(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return buf, nil
	}
	padLen := int(buf[len(buf)-1])
	if padLen == 0 || padLen > len(buf) {
		return nil, fmt.Errorf("aes: invalid PKCS#5 pad length %d", padLen)
	}
	return buf[:len(buf)-padLen], nil
}

var _ Filter = filterAESV3{}

// filterAESV3 is the AES-256-CBC crypt filter introduced in PDF 2.0.
type filterAESV3 struct {
	filterAES
}

func (filterAESV3) PDFVersion() [2]int { return [2]int{2, 0} }

func (filterAESV3) HandlerVersion() (V, R int) { return 5, 6 }

func (filterAESV3) Name() string { return "AESV3" }

func (filterAESV3) KeyLength() int { return 32 }

// MakeKey implements Filter. AESV3 has no per-object key: the file
// encryption key is used directly.
func (filterAESV3) MakeKey(_, _ uint32, fkey []byte) ([]byte, error) {
	return fkey, nil
}
