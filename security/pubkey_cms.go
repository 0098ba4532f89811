/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/rsa"
	"crypto/x509"

	"github.com/unidoc/pkcs7"
)

// recipientPayload is the 20-byte string ISO 32000-1 7.6.5.2 envelopes for
// every recipient of a public-key-encrypted document: a 16-byte random seed
// shared by all recipients, followed by the 4-byte, little-endian /P
// permission mask as that particular recipient is meant to see it (the
// Standard handler's equivalent of baking P into the file key via Algorithm
// 2 -- here it travels inside the envelope instead, because there is no
// password to hash it against).
type recipientPayload struct {
	Seed  [16]byte
	Perms Permissions
}

func (p recipientPayload) bytes() []byte {
	out := make([]byte, 20)
	copy(out, p.Seed[:])
	out[16] = byte(uint32(p.Perms))
	out[17] = byte(uint32(p.Perms) >> 8)
	out[18] = byte(uint32(p.Perms) >> 16)
	out[19] = byte(uint32(p.Perms) >> 24)
	return out
}

func parseRecipientPayload(b []byte) (recipientPayload, error) {
	if len(b) != 20 {
		return recipientPayload{}, NewPdfReadError("pubkey recipient payload must be 20 bytes, got %d", len(b))
	}
	var p recipientPayload
	copy(p.Seed[:], b[:16])
	p.Perms = Permissions(uint32(b[16]) | uint32(b[17])<<8 | uint32(b[18])<<16 | uint32(b[19])<<24)
	return p, nil
}

// buildEnvelope wraps seed||perms into a DER-encoded CMS EnvelopedData
// addressed to every certificate in recipients, one RecipientInfo per
// certificate. Content-key transport always uses RSAES-PKCS1-v1.5, matching
// the library's default and the "write PKCS1-v1.5 always" half of spec
// §4.4's read/write asymmetry (the library has no OAEP transport mode to
// choose from, so there is nothing to pick between on write).
func buildEnvelope(payload recipientPayload, recipients []*x509.Certificate) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, NewPdfWriteError("cannot build a pubkey envelope with no recipients")
	}
	der, err := pkcs7.Encrypt(payload.bytes(), recipients)
	if err != nil {
		return nil, NewCryptoFormatError("building CMS envelope: %v", err)
	}
	return der, nil
}

// openEnvelope decrypts a DER-encoded CMS EnvelopedData with the holder's
// certificate and private key, returning the 20-byte seed||perms payload.
// Any content-encryption algorithm the library itself refuses to handle
// surfaces here as a CipherNotAllowed, wrapped in a PdfReadError per spec
// §7's propagation rule.
func openEnvelope(der []byte, cert *x509.Certificate, key *rsa.PrivateKey) (recipientPayload, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return recipientPayload{}, NewPdfReadError("parsing CMS envelope: %v", err)
	}
	content, err := p7.Decrypt(cert, key)
	if err != nil {
		cause := &CipherNotAllowed{Cipher: err.Error()}
		return recipientPayload{}, NewPdfReadErrorWrap(cause, "decrypting CMS envelope: %v", cause)
	}
	return parseRecipientPayload(content)
}
