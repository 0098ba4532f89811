/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import "crypto/cipher"

// encryptPermsBlock and decryptPermsBlock implement the single
// Electronic-Codebook block operation Algorithms 10 and 13 need for the
// 16-byte /Perms entry. Unlike a general-purpose ECB cipher.BlockMode, the
// /Perms string is always exactly one AES block, so there is no reason to
// carry the multi-block looping, buffer-size checks or BlockSize() plumbing
// a reusable mode would need -- callers hand in fixed 16-byte arrays and
// get a fixed 16-byte array back.
func encryptPermsBlock(b cipher.Block, plain [16]byte) [16]byte {
	var out [16]byte
	b.Encrypt(out[:], plain[:])
	return out
}

func decryptPermsBlock(b cipher.Block, cipherText [16]byte) [16]byte {
	var out [16]byte
	b.Decrypt(out[:], cipherText[:])
	return out
}
