/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
)

// Credential is the material a Handler needs to authenticate: either a
// password (plus, for legacy revisions, the document's first ID array
// element) or a recipient's certificate and private key.
type Credential interface {
	credentialType() string
}

// PasswordCredential authenticates against a Standard security handler.
// ID0 is only required for R<=4 documents; it is ignored for R>=5.
type PasswordCredential struct {
	Password []byte
	ID0      []byte
}

func (PasswordCredential) credentialType() string { return "pwd" }

// EnvelopeCredential authenticates against a PublicKey security handler: the
// caller's own certificate (to find its recipient entry in the CMS
// envelope) and the matching private key (to unwrap the seed). Certificate
// trust validation is the caller's job (§1 Non-goals); this type carries an
// already-trusted pair.
type EnvelopeCredential struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

func (EnvelopeCredential) credentialType() string { return "envelope" }

// pkcs11Credential names the reserved "pkcs11" credential type. This package
// does not implement it: SerialisedCredential.Deserialise reports that type
// name as a NotImplementedError, distinct from the PdfReadError it returns
// for a genuinely unknown type.
type pkcs11Credential struct{ data []byte }

func (pkcs11Credential) credentialType() string { return "pkcs11" }

// SerialisedCredential is the serialised form of a Credential: the type name
// and a payload that is a sequence of {u32be length, bytes value} fields
// specific to the type (spec §9 "Credential polymorphism"). The two parts are
// kept as separate fields; this package does not encode them into a single
// framed byte string, and the form carries no version number.
type SerialisedCredential struct {
	Type string
	Data []byte
}

// Serialise converts a Credential into its wire form.
func Serialise(cred Credential) (SerialisedCredential, error) {
	switch c := cred.(type) {
	case PasswordCredential:
		var payload []byte
		payload = appendLP(payload, c.Password)
		payload = appendLP(payload, c.ID0)
		return SerialisedCredential{Type: "pwd", Data: payload}, nil
	case EnvelopeCredential:
		if c.Certificate == nil || c.PrivateKey == nil {
			return SerialisedCredential{}, NewPdfWriteError("envelope credential missing certificate or private key")
		}
		certDER := c.Certificate.Raw
		keyDER := x509.MarshalPKCS1PrivateKey(c.PrivateKey)
		var payload []byte
		payload = appendLP(payload, certDER)
		payload = appendLP(payload, keyDER)
		return SerialisedCredential{Type: "envelope", Data: payload}, nil
	default:
		return SerialisedCredential{}, NewPdfWriteError("credential type %T cannot be serialised", cred)
	}
}

// Deserialise converts a wire form back into a Credential.
func (s SerialisedCredential) Deserialise() (Credential, error) {
	switch s.Type {
	case "pwd":
		password, rest, err := readLP(s.Data)
		if err != nil {
			return nil, NewPdfReadError("Failed to deserialise password")
		}
		id0, rest, err := readLP(rest)
		if err != nil {
			return nil, NewPdfReadError("Failed to deserialise password")
		}
		if len(rest) != 0 {
			return nil, NewPdfReadError("Failed to deserialise password")
		}
		return PasswordCredential{Password: password, ID0: id0}, nil
	case "envelope":
		certDER, rest, err := readLP(s.Data)
		if err != nil {
			return nil, NewPdfReadError("Failed to decode serialised pubkey credential")
		}
		keyDER, rest, err := readLP(rest)
		if err != nil {
			return nil, NewPdfReadError("Failed to decode serialised pubkey credential")
		}
		if len(rest) != 0 {
			return nil, NewPdfReadError("Failed to decode serialised pubkey credential")
		}
		cert, err := x509.ParseCertificate(certDER)
		if err != nil {
			return nil, NewPdfReadError("Failed to decode serialised pubkey credential")
		}
		key, err := x509.ParsePKCS1PrivateKey(keyDER)
		if err != nil {
			return nil, NewPdfReadError("Failed to decode serialised pubkey credential")
		}
		return EnvelopeCredential{Certificate: cert, PrivateKey: key}, nil
	case "pkcs11":
		return nil, NewNotImplementedError("pkcs11 credentials are reserved, not implemented")
	default:
		return nil, NewPdfReadError("credential type %q not known", s.Type)
	}
}

// appendLP appends a length-prefixed (u32 big-endian) byte field.
func appendLP(dst, field []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, field...)
	return dst
}

// readLP reads one length-prefixed field off the front of buf, returning
// the field and the remaining bytes.
func readLP(buf []byte) (field, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, NewPdfReadError("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(n) > uint64(len(buf)) {
		return nil, nil, NewPdfReadError("truncated field (want %d, have %d)", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}
