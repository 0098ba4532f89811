/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"
	"io"
	"math"

	"github.com/unidoc/pdfcrypt/common"
)

var _ StdHandler = stdHandlerR6{}

// NewHandlerR6 creates a standard security handler for the AES-256 key
// derivation family (R=5, the deprecated pre-ISO-32000-2 extension, and
// R=6, Algorithms 2.A through 13).
func NewHandlerR6() StdHandler {
	return stdHandlerR6{}
}

// stdHandlerR6 implements the AES-256 password ladder. Like stdHandlerR4 it
// is stateless: every quantity it needs travels through *StdEncryptDict and
// the password argument.
type stdHandlerR6 struct{}

// recoverFileKey tries pass first as an owner password and, failing that,
// as a user password (and then the empty string, matching Adobe's observed
// behaviour of accepting a blank user password), returning the file key and
// the permission set that applies.
// 7.6.4.3.2 Algorithm 2.A.
func (sh stdHandlerR6) recoverFileKey(d *StdEncryptDict, pass []byte) ([]byte, Permissions, error) {
	// O & U: 32-byte hash + 8-byte validation salt + 8-byte key salt.
	if err := checkAtLeast("recoverFileKey", "O", 48, d.O); err != nil {
		return nil, 0, err
	}
	if err := checkAtLeast("recoverFileKey", "U", 48, d.U); err != nil {
		return nil, 0, err
	}

	// PDF passwords are meant to be normalized (SASLprep) before hashing;
	// this core accepts the caller's bytes as-is and leaves normalization
	// to whichever layer collects the password from the user (spec §1).
	if len(pass) > 127 {
		pass = pass[:127]
	}

	ownerHash, err := sh.verifyOwnerPassword(d, pass)
	if err != nil {
		return nil, 0, err
	}

	var (
		intermediateInput []byte // input to the intermediate-key hash
		wrappedKey        []byte // AES-256-CBC-wrapped file key
		perm              Permissions
	)
	if len(ownerHash) != 0 {
		perm = PermOwner

		// Algorithm 2.A step d: owner intermediate key input is
		// password || owner key salt || full U string.
		buf := make([]byte, len(pass)+8+48)
		i := copy(buf, pass)
		i += copy(buf[i:], d.O[40:48])
		i += copy(buf[i:], d.U[0:48])
		intermediateInput = buf
		wrappedKey = d.OE
	} else {
		userHash, err := sh.verifyUserPassword(d, pass)
		if err == nil && len(userHash) == 0 {
			userHash, err = sh.verifyUserPassword(d, nil)
			if len(userHash) != 0 {
				pass = nil
			}
		}
		if err != nil {
			return nil, 0, err
		}
		if len(userHash) == 0 {
			return nil, 0, nil
		}
		perm = d.P

		// Algorithm 2.A step e: user intermediate key input is
		// password || user key salt.
		buf := make([]byte, len(pass)+8)
		i := copy(buf, pass)
		i += copy(buf[i:], d.U[40:48])
		intermediateInput = buf
		wrappedKey = d.UE
	}
	if err := checkAtLeast("recoverFileKey", "Key", 32, wrappedKey); err != nil {
		return nil, 0, err
	}
	wrappedKey = wrappedKey[:32]

	userKeyForHash := d.U[0:48]
	if perm != PermOwner {
		userKeyForHash = nil
	}
	intermediateKey, err := sh.computeHash(d.R, intermediateInput, pass, userKeyForHash)
	if err != nil {
		return nil, 0, err
	}

	fkey, err := aesUnwrapKey(intermediateKey[:32], wrappedKey)
	if err != nil {
		return nil, 0, err
	}

	if d.R == 5 {
		return fkey, perm, nil
	}
	if err := sh.verifyPermissions(d, fkey); err != nil {
		return nil, 0, err
	}
	return fkey, perm, nil
}

// hashR5 is the R=5 stand-in for Algorithm 2.B: a deprecated pre-ISO-32000-2
// extension that hashes the intermediate-key input directly with SHA-256,
// without the hardening round or the password/user-key dependent hash
// selection R=6 adds.
func hashR5(data []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(data)
	return h.Sum(nil), nil
}

// extendRepeating fills buf past its first n bytes by repeatedly doubling
// the already-written prefix, on the assumption that len(buf) is a multiple
// of n.
func extendRepeating(buf []byte, n int) {
	written := n
	for written < len(buf) {
		copy(buf[written:], buf[:written])
		written *= 2
	}
}

// hashR6 implements the repeated-hashing-and-hash-selection construction of
// Algorithm 2.B: it feeds password||K||userKey through one of SHA-256,
// SHA-384 or SHA-512 (chosen by the running hash's own output), repeating
// at least 64 rounds and then until the last byte of a round's cipher
// output no longer exceeds (round - 32).
// 7.6.4.3.3 Algorithm 2.B.
func hashR6(data, pwd, userKey []byte) ([]byte, error) {
	s256 := sha256.New()
	var s384, s512 hash.Hash

	digestBuf := make([]byte, 64)
	s256.Write(data)
	K := s256.Sum(digestBuf[:0])

	roundBuf := make([]byte, 64*(127+64+48))

	round := func() ([]byte, error) {
		n := len(pwd) + len(K) + len(userKey)
		part := roundBuf[:n]
		i := copy(part, pwd)
		i += copy(part[i:], K)
		i += copy(part[i:], userKey)
		if i != n {
			common.Log.Error("ERROR: hashR6: unexpected round input size")
			return nil, NewCryptoFormatError("hashR6: unexpected round input size")
		}
		K1 := roundBuf[:n*64]
		extendRepeating(K1, n)

		block, err := aes.NewCipher(K[0:16])
		if err != nil {
			common.Log.Error("ERROR: hashR6: could not create AES cipher: %v", err)
			return nil, NewCryptoFormatError("hashR6: %v", err)
		}
		cipher.NewCBCEncrypter(block, K[16:32]).CryptBlocks(K1, K1)
		E := K1

		sum := 0
		for i := 0; i < 16; i++ {
			sum += int(E[i] % 3)
		}
		var next hash.Hash
		switch sum % 3 {
		case 0:
			next = s256
		case 1:
			if s384 == nil {
				s384 = sha512.New384()
			}
			next = s384
		case 2:
			if s512 == nil {
				s512 = sha512.New()
			}
			next = s512
		}
		next.Reset()
		next.Write(E)
		K = next.Sum(digestBuf[:0])
		return E, nil
	}

	for i := 0; ; {
		E, err := round()
		if err != nil {
			return nil, err
		}
		last := uint8(E[len(E)-1])
		// The text reads as though the comparison should use the round
		// count before this round is counted; matching Adobe's actual
		// behaviour requires incrementing first and comparing against i-32.
		i++
		if i >= 64 && last <= uint8(i-32) {
			break
		}
	}
	return K[:32], nil
}

// computeHash dispatches Algorithm 2.B's hash to the R=5 or R=6 variant.
func (sh stdHandlerR6) computeHash(r int, data, pwd, userKey []byte) ([]byte, error) {
	if r == 5 {
		return hashR5(data)
	}
	return hashR6(data, pwd, userKey)
}

// deriveUserEntries computes /U and /UE from a freshly generated file key
// and the desired user password.
// 7.6.4.4.6 Algorithm 8.
func (sh stdHandlerR6) deriveUserEntries(d *StdEncryptDict, fkey, upass []byte) error {
	if err := checkAtLeast("deriveUserEntries", "Key", 32, fkey); err != nil {
		return err
	}
	var salts [16]byte
	if _, err := io.ReadFull(rand.Reader, salts[:]); err != nil {
		return NewCryptoFormatError("deriveUserEntries: %v", err)
	}
	validationSalt, keySalt := salts[0:8], salts[8:16]

	buf := make([]byte, len(upass)+8)
	i := copy(buf, upass)
	copy(buf[i:], validationSalt)

	validationHash, err := sh.computeHash(d.R, buf, upass, nil)
	if err != nil {
		return err
	}
	U := make([]byte, 48)
	i = copy(U, validationHash[:32])
	i += copy(U[i:], validationSalt)
	copy(U[i:], keySalt)
	d.U = U

	copy(buf[len(upass):], keySalt)
	intermediateHash, err := sh.computeHash(d.R, buf, upass, nil)
	if err != nil {
		return err
	}
	UE, err := aesWrapKey(intermediateHash[:32], fkey[:32])
	if err != nil {
		return err
	}
	d.UE = UE
	return nil
}

// deriveOwnerEntries computes /O and /OE from a freshly generated file key,
// the desired owner password, and the already-computed /U string.
// 7.6.4.4.7 Algorithm 9.
func (sh stdHandlerR6) deriveOwnerEntries(d *StdEncryptDict, fkey, opass []byte) error {
	if err := checkAtLeast("deriveOwnerEntries", "Key", 32, fkey); err != nil {
		return err
	}
	if err := checkAtLeast("deriveOwnerEntries", "U", 48, d.U); err != nil {
		return err
	}
	var salts [16]byte
	if _, err := io.ReadFull(rand.Reader, salts[:]); err != nil {
		return NewCryptoFormatError("deriveOwnerEntries: %v", err)
	}
	validationSalt, keySalt := salts[0:8], salts[8:16]
	userKey := d.U[:48]

	buf := make([]byte, len(opass)+8+len(userKey))
	i := copy(buf, opass)
	i += copy(buf[i:], validationSalt)
	copy(buf[i:], userKey)

	validationHash, err := sh.computeHash(d.R, buf, opass, userKey)
	if err != nil {
		return err
	}
	O := make([]byte, 48)
	i = copy(O, validationHash[:32])
	i += copy(O[i:], validationSalt)
	copy(O[i:], keySalt)
	d.O = O

	copy(buf[len(opass):], keySalt)
	intermediateHash, err := sh.computeHash(d.R, buf, opass, userKey)
	if err != nil {
		return err
	}
	OE, err := aesWrapKey(intermediateHash[:32], fkey[:32])
	if err != nil {
		return err
	}
	d.OE = OE
	return nil
}

// derivePermsEntry computes the 16-byte, AES-ECB-encrypted /Perms block
// (R=6 only).
// 7.6.4.4.8 Algorithm 10.
func (sh stdHandlerR6) derivePermsEntry(d *StdEncryptDict, fkey []byte) error {
	if err := checkAtLeast("derivePermsEntry", "Key", 32, fkey); err != nil {
		return err
	}
	extended := uint64(uint32(d.P)) | (math.MaxUint32 << 32)

	var plain [16]byte
	binary.LittleEndian.PutUint64(plain[:8], extended)

	if d.EncryptMetadata {
		plain[8] = 'T'
	} else {
		plain[8] = 'F'
	}
	copy(plain[9:12], "adb")

	// Algorithm 10 does not require these 4 bytes to come from a strong
	// random source, but a crypto-grade generator is at hand, so use it.
	if _, err := io.ReadFull(rand.Reader, plain[12:16]); err != nil {
		return NewCryptoFormatError("derivePermsEntry: %v", err)
	}

	block, err := aes.NewCipher(fkey[:32])
	if err != nil {
		common.Log.Error("ERROR: derivePermsEntry: could not create AES cipher: %v", err)
		return NewCryptoFormatError("derivePermsEntry: %v", err)
	}
	out := encryptPermsBlock(block, plain)

	d.Perms = out[:]
	return nil
}

// verifyUserPassword checks upass against /U and returns the 32-byte
// validation hash on success, or a nil slice (no error) on a wrong
// password.
func (sh stdHandlerR6) verifyUserPassword(d *StdEncryptDict, upass []byte) ([]byte, error) {
	if err := checkAtLeast("verifyUserPassword", "U", 48, d.U); err != nil {
		return nil, err
	}
	buf := make([]byte, len(upass)+8)
	i := copy(buf, upass)
	copy(buf[i:], d.U[32:40]) // user validation salt

	h, err := sh.computeHash(d.R, buf, upass, nil)
	if err != nil {
		return nil, err
	}
	h = h[:32]
	if !bytes.Equal(h, d.U[:32]) {
		return nil, nil
	}
	return h, nil
}

// verifyOwnerPassword checks opass against /O and returns the 32-byte
// validation hash on success, or a nil slice (no error) on a wrong
// password.
// 7.6.4.4.10 Algorithm 12.
func (sh stdHandlerR6) verifyOwnerPassword(d *StdEncryptDict, opass []byte) ([]byte, error) {
	if err := checkAtLeast("verifyOwnerPassword", "U", 48, d.U); err != nil {
		return nil, err
	}
	if err := checkAtLeast("verifyOwnerPassword", "O", 48, d.O); err != nil {
		return nil, err
	}
	userKey := d.U[0:48]
	buf := make([]byte, len(opass)+8+len(userKey))
	i := copy(buf, opass)
	i += copy(buf[i:], d.O[32:40]) // owner validation salt
	copy(buf[i:], userKey)

	h, err := sh.computeHash(d.R, buf, opass, userKey)
	if err != nil {
		return nil, err
	}
	h = h[:32]
	if !bytes.Equal(h, d.O[:32]) {
		return nil, nil
	}
	return h, nil
}

// verifyPermissions cross-checks the file key's /Perms block against the
// plaintext /P and /EncryptMetadata values (R=6 only).
// 7.6.4.4.11 Algorithm 13.
func (sh stdHandlerR6) verifyPermissions(d *StdEncryptDict, fkey []byte) error {
	if err := checkAtLeast("verifyPermissions", "Key", 32, fkey); err != nil {
		return err
	}
	if err := checkAtLeast("verifyPermissions", "Perms", 16, d.Perms); err != nil {
		return err
	}
	var cipherText [16]byte
	copy(cipherText[:], d.Perms[:16])

	block, err := aes.NewCipher(fkey[:32])
	if err != nil {
		return NewCryptoFormatError("verifyPermissions: %v", err)
	}
	plain := decryptPermsBlock(block, cipherText)

	if !bytes.Equal(plain[9:12], []byte("adb")) {
		return NewCryptoFormatError("verifyPermissions: decoded permissions block is malformed")
	}
	p := Permissions(binary.LittleEndian.Uint32(plain[0:4]))
	if p != d.P {
		return NewCryptoFormatError("verifyPermissions: /P does not match the encrypted permissions copy")
	}
	var encMeta bool
	switch plain[8] {
	case 'T':
		encMeta = true
	case 'F':
		encMeta = false
	default:
		return NewCryptoFormatError("verifyPermissions: decoded metadata-encryption flag is invalid")
	}
	if encMeta != d.EncryptMetadata {
		return NewCryptoFormatError("verifyPermissions: /EncryptMetadata does not match the encrypted permissions copy")
	}
	return nil
}

// GenerateParams implements StdHandler. It expects R, P and EncryptMetadata
// to already be set on d.
func (sh stdHandlerR6) GenerateParams(d *StdEncryptDict, opass, upass []byte) ([]byte, error) {
	fkey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, fkey); err != nil {
		return nil, NewCryptoFormatError("GenerateParams: %v", err)
	}
	d.U, d.O, d.UE, d.OE, d.Perms = nil, nil, nil, nil, nil

	if len(upass) > 127 {
		upass = upass[:127]
	}
	if len(opass) > 127 {
		opass = opass[:127]
	}

	if err := sh.deriveUserEntries(d, fkey, upass); err != nil {
		return nil, err
	}
	if err := sh.deriveOwnerEntries(d, fkey, opass); err != nil {
		return nil, err
	}
	if d.R == 5 {
		return fkey, nil
	}
	if err := sh.derivePermsEntry(d, fkey); err != nil {
		return nil, err
	}
	return fkey, nil
}

// Authenticate implements StdHandler.
func (sh stdHandlerR6) Authenticate(d *StdEncryptDict, pass []byte) ([]byte, Permissions, error) {
	return sh.recoverFileKey(d, pass)
}
