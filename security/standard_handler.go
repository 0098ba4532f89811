/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import "github.com/unidoc/pdfcrypt/security/crypt"

var _ Handler = (*StandardSecurityHandler)(nil)

// StandardSecurityHandler implements Handler for the PDF Standard security
// handler (/Filter /Standard): password-based authentication against
// Algorithms 2-13, dispatched by revision to stdHandlerR4 or stdHandlerR6.
type StandardSecurityHandler struct {
	dict   StdEncryptDict
	cfg    *CryptFilterConfig
	v      SecurityHandlerVersion
	r      StandardSecurityRevision
	impl   StdHandler
	fkey   []byte // file encryption key, set once authenticated
	perms  Permissions
	status AuthStatus

	authFailed bool

	pass []byte // the credential's password, kept for ExtractCredential
}

// NewStandardSecurityHandler builds a handler for a document being written:
// v and r select the algorithm family, p is the desired /P permission mask,
// and encryptMetadata controls the R>=4 metadata-encryption flag.
func NewStandardSecurityHandler(v SecurityHandlerVersion, r StandardSecurityRevision, p Permissions, encryptMetadata bool, cfg *CryptFilterConfig) *StandardSecurityHandler {
	h := &StandardSecurityHandler{
		dict: StdEncryptDict{
			R:               revisionNumber(r),
			P:               p,
			EncryptMetadata: encryptMetadata,
		},
		cfg: cfg,
		v:   v,
		r:   r,
	}
	h.impl = implForRevision(r)
	return h
}

func implForRevision(r StandardSecurityRevision) StdHandler {
	switch r {
	case RevisionAES256:
		return NewHandlerR6()
	default:
		return NewHandlerR4()
	}
}

// GenerateForPasswords computes /O, /U (and /OE, /UE, /Perms for R>=5) for
// the given owner/user passwords and ID, and retains the resulting file key
// as though the owner password had just authenticated. Called once, at
// document-creation time, before AsPDFObject.
func (h *StandardSecurityHandler) GenerateForPasswords(ownerPass, userPass, id0 []byte) error {
	h.dict.ID0 = id0
	if h.dict.KeyLengthBytes == 0 {
		n, err := h.v.CheckKeyLength(16)
		if err != nil {
			return err
		}
		h.dict.KeyLengthBytes = n
	}
	ekey, err := h.impl.GenerateParams(&h.dict, ownerPass, userPass)
	if err != nil {
		return err
	}
	h.fkey = ekey
	h.perms = PermOwner
	h.status = AuthStatusOwner
	h.pass = ownerPass
	h.authFailed = false
	return nil
}

// Authenticate implements Handler.
func (h *StandardSecurityHandler) Authenticate(cred Credential) (AuthResult, error) {
	pc, ok := cred.(PasswordCredential)
	if !ok {
		return AuthResult{}, NewPdfReadError("standard security handler requires a PasswordCredential, got %T", cred)
	}
	if len(pc.ID0) > 0 {
		h.dict.ID0 = pc.ID0
	}

	ekey, perm, err := h.impl.Authenticate(&h.dict, pc.Password)
	if err != nil {
		h.authFailed = true
		return AuthResult{}, err
	}
	if ekey == nil {
		h.authFailed = true
		h.status = AuthStatusFailed
		return AuthResult{Status: AuthStatusFailed}, nil
	}

	h.fkey = ekey
	h.perms = perm
	h.pass = pc.Password
	h.authFailed = false

	if perm == PermOwner {
		h.status = AuthStatusOwner
		return AuthResult{Status: AuthStatusOwner}, nil
	}
	h.status = AuthStatusUser
	p := perm
	return AuthResult{Status: AuthStatusUser, Permissions: &p}, nil
}

// ExtractCredential implements Handler.
func (h *StandardSecurityHandler) ExtractCredential() (Credential, bool) {
	if h.fkey == nil {
		return nil, false
	}
	return PasswordCredential{Password: h.pass, ID0: h.dict.ID0}, true
}

// CryptFilterConfig implements Handler.
func (h *StandardSecurityHandler) CryptFilterConfig() *CryptFilterConfig {
	return h.cfg
}

// FileKey returns the document's file encryption key, once authenticated.
// A nil result means no successful Authenticate/GenerateForPasswords call
// has happened yet (the UNINITIALIZED state in the auth state machine, spec
// §4.3), or that the auth-failed latch is set.
func (h *StandardSecurityHandler) FileKey() []byte {
	if h.authFailed {
		return nil
	}
	return h.fkey
}

// AuthFailed reports whether the handler's auth-failed latch is set. While
// it is set, FileKey returns nil; a fresh, successful Authenticate call
// clears it (spec §4.3, §7).
func (h *StandardSecurityHandler) AuthFailed() bool { return h.authFailed }

// AsPDFObject implements Handler.
func (h *StandardSecurityHandler) AsPDFObject() (Dict, error) {
	if h.fkey == nil {
		return nil, NewPdfWriteError("cannot serialize standard security handler before generating or authenticating a key")
	}
	d := Dict{
		"Filter": "Standard",
		"V":      int64(handlerVersionNumber(h.v)),
		"R":      int64(revisionNumber(h.r)),
		"P":      int64(h.dict.P),
		"O":      h.dict.O,
		"U":      h.dict.U,
	}
	if !h.dict.EncryptMetadata {
		d["EncryptMetadata"] = false
	}
	if h.r == RevisionAES256 {
		d["OE"] = h.dict.OE
		d["UE"] = h.dict.UE
		d["Perms"] = h.dict.Perms
	}
	if h.v == VersionRC4OrAES128 || h.v == VersionAES256 {
		d["Length"] = int64(h.dict.KeyLengthBytes * 8)
		if h.cfg != nil {
			cfDict := Dict{}
			for _, name := range h.cfg.Names() {
				f, err := h.cfg.Resolve(name)
				if err != nil {
					return nil, err
				}
				if f.Name() == IdentityCryptFilterName {
					return nil, NewPdfError("crypt filter %q: the identity filter cannot be serialized", name)
				}
				cfDict[name] = filterAsDict(f)
			}
			d["CF"] = cfDict
			stmF, strF := h.cfg.streamFilter, h.cfg.stringFilter
			if stmF == "" {
				stmF = IdentityCryptFilterName
			}
			if strF == "" {
				strF = IdentityCryptFilterName
			}
			d["StmF"] = stmF
			d["StrF"] = strF
		}
	}
	return d, nil
}

func filterAsDict(f crypt.Filter) Dict {
	return Dict{
		"CFM":    f.Name(),
		"Length": int64(f.KeyLength()),
	}
}

func handlerVersionNumber(v SecurityHandlerVersion) int {
	switch v {
	case VersionRC4_40:
		return 1
	case VersionRC4LongerKeys:
		return 2
	case VersionRC4OrAES128:
		return 4
	case VersionAES256:
		return 5
	default:
		return 0
	}
}

func revisionNumber(r StandardSecurityRevision) int {
	switch r {
	case RevisionRC4Basic:
		return 2
	case RevisionRC4Extended:
		return 3
	case RevisionRC4OrAES128:
		return 4
	case RevisionAES256:
		return 6
	default:
		return 0
	}
}
