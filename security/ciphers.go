/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"

	"github.com/unidoc/pdfcrypt/common"
)

// rc4Once runs a single RC4 encrypt/decrypt pass (the two are identical for
// a stream cipher) with a freshly keyed cipher, matching the "stateful only
// within a single call" contract of spec §4.1.
func rc4Once(key, data []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, NewCryptoFormatError("rc4: %v", err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// aesWrapKey encrypts exactly one 32-byte file key under kek using
// AES-256-CBC with a zero IV and no padding -- the operation
// ISO 32000-2 Algorithms 8 and 9 actually specify for /UE and /OE (the
// 16-byte /Perms block of Algorithm 10 goes through encryptPermsBlock in
// ecb.go instead; DESIGN.md "Open Question decisions" explains why this is
// not a generic RFC 3394 key wrap despite the family resemblance).
func aesWrapKey(kek, fileKey []byte) ([]byte, error) {
	if len(fileKey) != 32 {
		return nil, NewCryptoFormatError("aes wrap: file key must be 32 bytes, got %d", len(fileKey))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		common.Log.Error("ERROR: could not create AES cipher for key wrap: %v", err)
		return nil, NewCryptoFormatError("aes wrap: %v", err)
	}
	iv := make([]byte, aes.BlockSize)
	out := make([]byte, len(fileKey))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, fileKey)
	return out, nil
}

// aesUnwrapKey is the inverse of aesWrapKey.
func aesUnwrapKey(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) != 32 {
		return nil, NewCryptoFormatError("aes unwrap: wrapped key must be 32 bytes, got %d", len(wrapped))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		common.Log.Error("ERROR: could not create AES cipher for key unwrap: %v", err)
		return nil, NewCryptoFormatError("aes unwrap: %v", err)
	}
	iv := make([]byte, aes.BlockSize)
	out := make([]byte, len(wrapped))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, wrapped)
	return out, nil
}
