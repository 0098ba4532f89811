/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package crypt

import (
	"crypto/md5"
	"crypto/rc4"
	"fmt"

	"github.com/unidoc/pdfcrypt/common"
)

func init() {
	registerFilter("V2", newFilterV2)
}

// NewFilterV2 builds an RC4 crypt filter directly from a key length in
// bytes, for callers that already know the length and have no /CF
// dictionary to parse (e.g. a Standard handler filling in its default
// StmF/StrF).
func NewFilterV2(length int) Filter {
	f, err := newFilterV2(FilterDict{Length: length})
	if err != nil {
		common.Log.Error("ERROR: could not create RC4 V2 crypt filter: %v", err)
		return filterV2{length: length}
	}
	return f
}

// newFilterV2 builds an RC4 crypt filter from a /CF sub-dictionary's
// /Length. Table 25 specifies /Length in bytes for V2, but documents
// produced by tools that followed the V4+ convention of counting bits are
// common enough in the wild that the 40/64/128 values are reinterpreted
// rather than rejected.
func newFilterV2(d FilterDict) (Filter, error) {
	length := d.Length
	if length < 5 || length > 16 {
		switch length {
		case 40, 64, 128:
			common.Log.Debug("crypt filter length %d looks like bits, not bytes; dividing by 8", length)
			length /= 8
		default:
			return nil, fmt.Errorf("crypt filter key length out of range 5-16 bytes (%d)", length)
		}
	}
	return filterV2{length: length}, nil
}

// deriveObjectKey implements the per-object key derivation Algorithm 1 uses
// for legacy (RC4 and AES-128) crypt filters: the file key is salted with
// the object and generation numbers -- and, for AES, the fixed "sAlT"
// suffix -- then hashed down with MD5. AESV3 has no equivalent: its object
// key is the file key, unmodified.
func deriveObjectKey(objNum, genNum uint32, fkey []byte, isAES bool) ([]byte, error) {
	salted := make([]byte, 0, len(fkey)+9)
	salted = append(salted, fkey...)
	salted = append(salted,
		byte(objNum), byte(objNum>>8), byte(objNum>>16),
		byte(genNum), byte(genNum>>8),
	)
	if isAES {
		salted = append(salted, 0x73, 0x41, 0x6c, 0x54) // "sAlT"
	}

	sum := md5.Sum(salted)
	keyLen := len(fkey) + 5
	if keyLen > len(sum) {
		keyLen = len(sum)
	}
	return sum[:keyLen], nil
}

var _ Filter = filterV2{}

// filterV2 is the RC4 crypt filter (CFM V2), Algorithm 1.
type filterV2 struct {
	length int
}

func (f filterV2) PDFVersion() [2]int { return [2]int{1, 4} }

func (f filterV2) HandlerVersion() (V, R int) { return 2, 3 }

func (filterV2) Name() string { return "V2" }

func (f filterV2) KeyLength() int { return f.length }

func (f filterV2) MakeKey(objNum, genNum uint32, fkey []byte) ([]byte, error) {
	return deriveObjectKey(objNum, genNum, fkey, false)
}

func (filterV2) EncryptBytes(buf []byte, okey []byte) ([]byte, error) {
	return rc4Stream(buf, okey)
}

func (filterV2) DecryptBytes(buf []byte, okey []byte) ([]byte, error) {
	return rc4Stream(buf, okey)
}

// rc4Stream runs RC4 over buf in place; encryption and decryption are the
// same XOR-keystream operation.
func rc4Stream(buf, okey []byte) ([]byte, error) {
	ciph, err := rc4.NewCipher(okey)
	if err != nil {
		return nil, fmt.Errorf("rc4: %w", err)
	}
	ciph.XORKeyStream(buf, buf)
	return buf, nil
}
