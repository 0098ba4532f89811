/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"hash"
	"io"
	"sync"

	"github.com/unidoc/pdfcrypt/security/crypt"
)

// PubkeyAuthenticator is implemented by crypt filters that need their own
// explicit authentication step beyond whatever the owning security handler
// does at document-open time. A non-default pubkey crypt filter (one that
// is not /StmF or /StrF's target) stays locked after the handler itself
// authenticates: resolve it by name from a CryptFilterConfig and call
// Authenticate on it before touching any stream or string it protects.
type PubkeyAuthenticator interface {
	Authenticate(cred EnvelopeCredential) (AuthResult, error)
	Authenticated() bool
}

var _ crypt.Filter = (*pubkeyFilter)(nil)
var _ PubkeyAuthenticator = (*pubkeyFilter)(nil)

// pubkeyFilter decorates a crypt.Filter (V2, AESV2 or AESV3) with the
// public-key recipient bookkeeping and key-derivation rule of
// ISO 32000-1 7.6.5.2: instead of running a password through Algorithm 2,
// the file key is the truncated hash of a shared seed and every recipient's
// permission bytes. Once the key is derived, encryption and decryption of
// object bodies is identical to the Standard handler's, so this type reuses
// the wrapped filter's MakeKey unchanged and only intercepts
// EncryptBytes/DecryptBytes, to enforce the lock.
//
// A filter acting as the document's default (the /StmF or /StrF target)
// unlocks whenever the owning PublicKeySecurityHandler authenticates. Any
// other, independently named filter stays locked until Authenticate is
// called on it directly -- it has its own recipient list and is not implied
// by the handler-level credential check.
type pubkeyFilter struct {
	crypt.Filter

	name            string
	isDefault       bool
	encryptMetadata bool

	mu         sync.Mutex
	seeded     bool
	seed       [16]byte
	recipients []*x509.Certificate
	perms      []Permissions
	envelopes  [][]byte
	sealed     bool

	authenticated bool
	sharedKey     []byte
}

// newPubkeyFilter wraps an already-constructed symmetric filter (built the
// same way a Standard handler would build one, via crypt.NewFilter) for use
// under a PublicKey security handler.
func newPubkeyFilter(base crypt.Filter, name string, isDefault, encryptMetadata bool) *pubkeyFilter {
	return &pubkeyFilter{
		Filter:          base,
		name:            name,
		isDefault:       isDefault,
		encryptMetadata: encryptMetadata,
	}
}

// AddRecipients enrolls certs against this filter, each granted perm. The
// first call generates the filter's own 16-byte seed; later calls against
// the same (default) filter reuse it. A non-default filter only ever gets
// one AddRecipients call -- pyHanko's test_custom_pubkey_crypt_filter pins
// this as a hard error on the second attempt, whereas the default filter
// tolerates repeated (if pointless) calls. Calling this after the filter
// has been serialized (AsPDFObject) is always rejected: its /Recipients
// array is already fixed on the page by then.
func (f *pubkeyFilter) AddRecipients(certs []*x509.Certificate, perm Permissions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sealed {
		return NewPdfWriteError("crypt filter %q: cannot add recipients after serialization", f.name)
	}
	if !f.isDefault && len(f.recipients) > 0 {
		return NewPdfError("crypt filter %q: add_recipients is only permitted once for a non-default filter", f.name)
	}
	if len(certs) == 0 {
		return nil
	}

	if !f.seeded {
		if _, err := io.ReadFull(rand.Reader, f.seed[:]); err != nil {
			return NewCryptoFormatError("crypt filter %q: generating seed: %v", f.name, err)
		}
		f.seeded = true
	}

	for _, cert := range certs {
		env, err := buildEnvelope(recipientPayload{Seed: f.seed, Perms: perm}, []*x509.Certificate{cert})
		if err != nil {
			return err
		}
		f.recipients = append(f.recipients, cert)
		f.perms = append(f.perms, perm)
		f.envelopes = append(f.envelopes, env)
	}
	return nil
}

// seal freezes the recipient list, called once this filter's /Recipients
// has been written out to an /Encrypt (or /CF sub-) dictionary.
func (f *pubkeyFilter) seal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sealed = true
}

// envelopesSnapshot returns the serialized CMS envelopes for AsPDFObject.
func (f *pubkeyFilter) envelopesSnapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte{}, f.envelopes...)
}

// loadEnvelopes installs envelopes read back from a parsed /Encrypt (or
// /CF) dictionary. Permissions per envelope are not recoverable from the
// serialized form (only the sender knew them before encrypting), so perms
// for a read-back filter are all zero; this only affects a reader that asks
// Permissions() before authenticating, which spec §4.2 does not promise
// meaningful results for anyway.
func (f *pubkeyFilter) loadEnvelopes(envelopes [][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = envelopes
	f.perms = make([]Permissions, len(envelopes))
	f.sealed = true
}

// Authenticate tries every enrolled envelope against cred, unlocking the
// filter and deriving its shared file key on the first one that opens.
// Scenario 6 requires this to be called explicitly for a non-default
// filter -- the owning handler's own Authenticate only unlocks the default
// filter implicitly.
func (f *pubkeyFilter) Authenticate(cred EnvelopeCredential) (AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, env := range f.envelopes {
		payload, err := openEnvelope(env, cred.Certificate, cred.PrivateKey)
		if err != nil {
			continue
		}
		if i < len(f.perms) {
			f.perms[i] = payload.Perms
		}
		f.sharedKey = f.deriveSharedKeyLocked(payload.Seed)
		f.authenticated = true
		p := payload.Perms
		return AuthResult{Status: AuthStatusUser, Permissions: &p}, nil
	}
	return AuthResult{Status: AuthStatusFailed}, nil
}

// Authenticated reports whether Authenticate has already unlocked this
// filter.
func (f *pubkeyFilter) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

// deriveSharedKeyLocked implements the hash half of 7.6.5.2, called with
// f.mu already held. All of this filter's own recipients must see the same
// file key regardless of which one decrypts first, so the hash covers every
// recipient's granted permissions, not just the one that opened first.
func (f *pubkeyFilter) deriveSharedKeyLocked(seed [16]byte) []byte {
	keylen := f.KeyLength()

	var h hash.Hash
	if keylen > 20 {
		h = sha256.New()
	} else {
		h = sha1.New()
	}
	h.Write(seed[:])
	for _, p := range f.perms {
		h.Write(permBytes(p))
	}
	if !f.encryptMetadata {
		h.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	sum := h.Sum(nil)

	if keylen > len(sum) {
		keylen = len(sum)
	}
	key := make([]byte, keylen)
	copy(key, sum[:keylen])
	return key
}

// deriveSharedKey is the single-shot form used by a handler that has not
// kept per-recipient state of its own (the SubFilterS4 fallback path, which
// has no crypt filter to carry the bookkeeping) -- it forwards to the same
// hash, seeded and permissioned explicitly by the caller instead of this
// filter's own bookkeeping.
func (f *pubkeyFilter) deriveSharedKey(seed [16]byte, allPerms []Permissions, encryptMetadata bool) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := f.perms
	savedMeta := f.encryptMetadata
	f.perms = allPerms
	f.encryptMetadata = encryptMetadata
	key := f.deriveSharedKeyLocked(seed)
	f.perms = saved
	f.encryptMetadata = savedMeta
	f.sharedKey = key
	f.authenticated = true
	return key
}

func permBytes(p Permissions) []byte {
	u := uint32(p)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

// SharedKey returns the derived file key, or nil if this filter has not
// been authenticated yet.
func (f *pubkeyFilter) SharedKey() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sharedKey
}

// EncryptBytes implements crypt.Filter, gating the wrapped filter's real
// implementation behind the authentication lock (scenario 6: "accessing a
// stream encrypted under the custom filter before this call raises").
func (f *pubkeyFilter) EncryptBytes(buf, okey []byte) ([]byte, error) {
	if !f.Authenticated() {
		return nil, NewPdfReadError("crypt filter %q is locked: call Authenticate before use", f.name)
	}
	return f.Filter.EncryptBytes(buf, okey)
}

// DecryptBytes implements crypt.Filter; see EncryptBytes.
func (f *pubkeyFilter) DecryptBytes(buf, okey []byte) ([]byte, error) {
	if !f.Authenticated() {
		return nil, NewPdfReadError("crypt filter %q is locked: call Authenticate before use", f.name)
	}
	return f.Filter.DecryptBytes(buf, okey)
}
