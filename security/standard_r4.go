/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/unidoc/pdfcrypt/common"
)

var _ StdHandler = stdHandlerR4{}

// padding is the 32-byte string PDF pads passwords out to before hashing
// them, per 7.6.3.3 Algorithm 2, step (a).
const padding = "\x28\xBF\x4E\x5E\x4E\x75\x8A\x41\x64\x00\x4E\x56\xFF" +
	"\xFA\x01\x08\x2E\x2E\x00\xB6\xD0\x68\x3E\x80\x2F\x0C" +
	"\xA9\xFE\x64\x53\x69\x7A"

// NewHandlerR4 creates a new standard security handler for R<=4.
func NewHandlerR4() StdHandler {
	return stdHandlerR4{}
}

// stdHandlerR4 implements the legacy (R=2,3,4) password-to-key ladder
// (Algorithms 2-7). Unlike stdHandlerR6 it needs the document ID and the
// file-key length, both of which it reads from the StdEncryptDict passed to
// it rather than holding them as instance state -- the handler itself is
// stateless and safe to share, matching stdHandlerR6's shape.
type stdHandlerR4 struct{}

func (stdHandlerR4) paddedPass(pass []byte) []byte {
	key := make([]byte, 32)
	i := copy(key, pass)
	copy(key[i:], padding[:32-i])
	return key
}

func (sh stdHandlerR4) keyLengthBytes(d *StdEncryptDict) int {
	if d.R == 2 {
		return 5
	}
	if d.KeyLengthBytes > 0 {
		return d.KeyLengthBytes
	}
	return 5
}

// alg2 computes the file encryption key (7.6.3.3 Algorithm 2).
func (sh stdHandlerR4) alg2(d *StdEncryptDict, pass []byte) []byte {
	common.Log.Trace("alg2")
	n := sh.keyLengthBytes(d)
	key := sh.paddedPass(pass)

	h := md5.New()
	h.Write(key)
	h.Write(d.O)

	var pb [4]byte
	binary.LittleEndian.PutUint32(pb[:], uint32(d.P))
	h.Write(pb[:])
	h.Write(d.ID0)

	if d.R >= 4 && !d.EncryptMetadata {
		h.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	hashb := h.Sum(nil)

	if d.R >= 3 {
		for i := 0; i < 50; i++ {
			h = md5.New()
			h.Write(hashb[:n])
			hashb = h.Sum(nil)
		}
		return hashb[:n]
	}
	return hashb[:5]
}

// alg3Key derives the RC4 key used to wrap/unwrap /O (7.6.3.4 Algorithm 3,
// steps a-b).
func (sh stdHandlerR4) alg3Key(d *StdEncryptDict, pass []byte) []byte {
	n := sh.keyLengthBytes(d)
	h := md5.New()
	h.Write(sh.paddedPass(pass))
	hashb := h.Sum(nil)

	if d.R >= 3 {
		for i := 0; i < 50; i++ {
			h = md5.New()
			h.Write(hashb)
			hashb = h.Sum(nil)
		}
	}
	if d.R == 2 {
		return hashb[:5]
	}
	return hashb[:n]
}

// alg3 computes /O (7.6.3.4 Algorithm 3).
func (sh stdHandlerR4) alg3(d *StdEncryptDict, opass, upass []byte) ([]byte, error) {
	key := opass
	if len(key) == 0 {
		key = upass
	}
	rc4key := sh.alg3Key(d, key)

	encrypted, err := rc4Once(rc4key, sh.paddedPass(upass))
	if err != nil {
		return nil, err
	}

	if d.R >= 3 {
		xored := make([]byte, len(rc4key))
		for i := 0; i < 19; i++ {
			for j := range rc4key {
				xored[j] = rc4key[j] ^ byte(i+1)
			}
			encrypted, err = rc4Once(xored, encrypted)
			if err != nil {
				return nil, err
			}
		}
	}
	return encrypted, nil
}

// alg4 computes /U for R=2 (7.6.3.5 Algorithm 4).
func (sh stdHandlerR4) alg4(ekey []byte) ([]byte, error) {
	return rc4Once(ekey, []byte(padding))
}

// alg5 computes /U for R>=3 (7.6.3.5 Algorithm 5).
func (sh stdHandlerR4) alg5(d *StdEncryptDict, ekey []byte) ([]byte, error) {
	h := md5.New()
	h.Write([]byte(padding))
	h.Write(d.ID0)
	hash := h.Sum(nil)

	encrypted, err := rc4Once(ekey, hash)
	if err != nil {
		return nil, err
	}

	xored := make([]byte, len(ekey))
	for i := 0; i < 19; i++ {
		for j := range ekey {
			xored[j] = ekey[j] ^ byte(i+1)
		}
		encrypted, err = rc4Once(xored, encrypted)
		if err != nil {
			return nil, err
		}
	}

	out := make([]byte, 32)
	copy(out, encrypted[:16])
	if _, err := io.ReadFull(rand.Reader, out[16:]); err != nil {
		return nil, NewCryptoFormatError("alg5: %v", err)
	}
	return out, nil
}

// alg6 authenticates the user password and returns the file key, or nil if
// the password is wrong (7.6.3.6 Algorithm 6; "wrong password" is not an
// error here, per the StdHandler.Authenticate contract).
func (sh stdHandlerR4) alg6(d *StdEncryptDict, upass []byte) ([]byte, error) {
	ekey := sh.alg2(d, upass)

	var (
		u   []byte
		err error
	)
	if d.R == 2 {
		u, err = sh.alg4(ekey)
	} else {
		u, err = sh.alg5(d, ekey)
	}
	if err != nil {
		return nil, err
	}

	uGen, uDoc := u, d.U
	if d.R >= 3 {
		if len(uGen) > 16 {
			uGen = uGen[:16]
		}
		if len(uDoc) > 16 {
			uDoc = uDoc[:16]
		}
	}
	if !bytes.Equal(uGen, uDoc) {
		return nil, nil
	}
	return ekey, nil
}

// alg7 authenticates the owner password and returns the file key, or nil if
// the password is wrong (7.6.3.7 Algorithm 7).
func (sh stdHandlerR4) alg7(d *StdEncryptDict, opass []byte) ([]byte, error) {
	rc4key := sh.alg3Key(d, opass)

	decrypted := make([]byte, len(d.O))
	if d.R == 2 {
		var err error
		decrypted, err = rc4Once(rc4key, d.O)
		if err != nil {
			return nil, err
		}
	} else {
		s := append([]byte{}, d.O...)
		xored := make([]byte, len(rc4key))
		for i := 0; i < 20; i++ {
			for j := range rc4key {
				xored[j] = rc4key[j] ^ byte(19-i)
			}
			var err error
			decrypted, err = rc4Once(xored, s)
			if err != nil {
				return nil, err
			}
			s = decrypted
		}
	}
	return sh.alg6(d, decrypted)
}

// GenerateParams implements StdHandler.
func (sh stdHandlerR4) GenerateParams(d *StdEncryptDict, opass, upass []byte) ([]byte, error) {
	O, err := sh.alg3(d, opass, upass)
	if err != nil {
		return nil, NewPdfWriteError("generating /O: %v", err)
	}
	d.O = O

	ekey := sh.alg2(d, upass)

	var U []byte
	if d.R == 2 {
		U, err = sh.alg4(ekey)
	} else {
		U, err = sh.alg5(d, ekey)
	}
	if err != nil {
		return nil, NewPdfWriteError("generating /U: %v", err)
	}
	d.U = U
	return ekey, nil
}

// Authenticate implements StdHandler. It tries the user password first,
// then the owner password (which, for legacy revisions, requires unwrapping
// /O to recover the user password and then validating that) -- matching the
// order documented in spec §4.3.
func (sh stdHandlerR4) Authenticate(d *StdEncryptDict, pass []byte) ([]byte, Permissions, error) {
	ekey, err := sh.alg6(d, pass)
	if err != nil {
		return nil, 0, err
	}
	if ekey != nil {
		return ekey, d.P, nil
	}

	ekey, err = sh.alg7(d, pass)
	if err != nil {
		return nil, 0, err
	}
	if ekey != nil {
		return ekey, PermOwner, nil
	}
	return nil, 0, nil
}
