/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/rand"
	"crypto/x509"
	"io"

	"github.com/unidoc/pdfcrypt/security/crypt"
)

// PubKeySubFilter identifies which flavour of the public-key security
// handler an /Encrypt dictionary declares, via its /SubFilter name.
type PubKeySubFilter string

const (
	// SubFilterS3 is adbe.pkcs7.s3, a deprecated pre-ISO-32000 form this
	// package refuses to read or write (spec §4.4).
	SubFilterS3 PubKeySubFilter = "adbe.pkcs7.s3"
	// SubFilterS4 is adbe.pkcs7.s4: a single, handler-level set of
	// /Recipients with no /CF entry, forbidding crypt filters entirely.
	SubFilterS4 PubKeySubFilter = "adbe.pkcs7.s4"
	// SubFilterS5 is adbe.pkcs7.s5: /Recipients live per-entry inside /CF,
	// alongside /StmF and /StrF, same shape as the Standard handler's V>=4
	// dictionaries, and may name more than one independently-keyed filter.
	SubFilterS5 PubKeySubFilter = "adbe.pkcs7.s5"
)

var _ Handler = (*PublicKeySecurityHandler)(nil)

// PublicKeySecurityHandler implements Handler for /Filter /Adobe.PPKLite:
// recipients are addressed by X.509 certificate rather than by password,
// and the file key is recovered from a CMS envelope rather than hashed from
// user input.
//
// For SubFilterS5, a handler may own more than one named crypt filter
// (h.cfg's table): exactly one acts as the default (/StmF and /StrF), and
// authenticating the handler unlocks that one implicitly. Any other,
// independently named filter has its own recipient list and stays locked
// until its Authenticate is called directly (scenario 6).
type PublicKeySecurityHandler struct {
	subFilter PubKeySubFilter
	v         SecurityHandlerVersion
	cfg       *CryptFilterConfig
	defaultPF *pubkeyFilter // nil for SubFilterS4, which has no crypt filter

	// s4Certs/s4Perms/s4Envelopes back the handler-level /Recipients array
	// used only by SubFilterS4, which predates /CF entirely.
	s4Certs     []*x509.Certificate
	s4Perms     []Permissions
	s4Envelopes [][]byte
	s4Seed      [16]byte

	encryptMetadata bool
	ignoreKeyUsage  bool

	fileKey []byte
	cred    EnvelopeCredential
	status  AuthStatus
}

func init() {
	_ = DefaultRegistry.Register("Adobe.PPKLite", buildPubKeyHandler, "")
}

// BuildFromCertsOptions configures PublicKeySecurityHandler construction.
type BuildFromCertsOptions struct {
	Version         SecurityHandlerVersion
	SubFilter       PubKeySubFilter // defaults to SubFilterS5 when ""
	Perms           Permissions
	EncryptMetadata bool
	IgnoreKeyUsage  bool
}

// BuildFromCerts creates a writer-side handler for the given recipient
// certificates, each of which must advertise the keyEncipherment KeyUsage
// bit unless IgnoreKeyUsage is set (spec §4.4, ported from
// test_key_encipherment_requirement_override). The certificates become the
// default crypt filter's recipients (or, for SubFilterS4, the handler's
// only recipient list); use AddCryptFilter afterward to attach additional,
// independently-locked filters under SubFilterS5.
func BuildFromCerts(certs []*x509.Certificate, opts BuildFromCertsOptions) (*PublicKeySecurityHandler, error) {
	if len(certs) == 0 {
		return nil, NewPdfWriteError("cannot build a pubkey security handler with no recipients")
	}
	if !opts.IgnoreKeyUsage {
		if err := checkKeyUsage(certs); err != nil {
			return nil, err
		}
	}
	sf := opts.SubFilter
	if sf == "" {
		sf = SubFilterS5
	}
	if sf == SubFilterS3 {
		return nil, NewPdfWriteError("SubFilter %s is deprecated and not supported for writing", SubFilterS3)
	}

	h := &PublicKeySecurityHandler{
		subFilter:       sf,
		v:               opts.Version,
		encryptMetadata: opts.EncryptMetadata,
		ignoreKeyUsage:  opts.IgnoreKeyUsage,
	}

	switch sf {
	case SubFilterS4:
		if err := h.addS4Recipients(certs, opts.Perms); err != nil {
			return nil, err
		}
	case SubFilterS5:
		base, err := crypt.NewFilter(crypt.FilterDict{CFM: cfmForVersion(opts.Version), Length: keyLengthForVersion(opts.Version)})
		if err != nil {
			return nil, NewPdfWriteError("building pubkey crypt filter: %v", err)
		}
		pf := newPubkeyFilter(base, StandardCryptFilterName, true, opts.EncryptMetadata)
		if err := pf.AddRecipients(certs, opts.Perms); err != nil {
			return nil, err
		}
		h.defaultPF = pf
		h.cfg = NewSingleCryptFilterConfig(StandardCryptFilterName, pf)
	}

	return h, nil
}

func checkKeyUsage(certs []*x509.Certificate) error {
	for _, c := range certs {
		if c.KeyUsage != 0 && c.KeyUsage&x509.KeyUsageKeyEncipherment == 0 {
			return NewPdfWriteError("certificate %s does not have the keyEncipherment key usage bit set", c.Subject)
		}
	}
	return nil
}

func (h *PublicKeySecurityHandler) addS4Recipients(certs []*x509.Certificate, perm Permissions) error {
	if !h.s4Seeded() {
		if err := h.seedS4(); err != nil {
			return err
		}
	}
	for _, cert := range certs {
		env, err := buildEnvelope(recipientPayload{Seed: h.s4Seed, Perms: perm}, []*x509.Certificate{cert})
		if err != nil {
			return err
		}
		h.s4Certs = append(h.s4Certs, cert)
		h.s4Perms = append(h.s4Perms, perm)
		h.s4Envelopes = append(h.s4Envelopes, env)
	}
	return nil
}

func (h *PublicKeySecurityHandler) s4Seeded() bool {
	for _, b := range h.s4Seed {
		if b != 0 {
			return true
		}
	}
	return false
}

func (h *PublicKeySecurityHandler) seedS4() error {
	if _, err := io.ReadFull(rand.Reader, h.s4Seed[:]); err != nil {
		return NewCryptoFormatError("generating pubkey seed: %v", err)
	}
	return nil
}

// AddCryptFilter attaches an additional, independently-keyed crypt filter
// to an existing SubFilterS5 handler -- e.g. a custom filter alongside the
// auto-authenticating default one (ported from
// test_custom_pubkey_crypt_filter). The new filter is not the default: it
// stays locked until its own Authenticate is called (PubkeyAuthenticator),
// even after the handler's own Authenticate succeeds.
func (h *PublicKeySecurityHandler) AddCryptFilter(name string, certs []*x509.Certificate, version SecurityHandlerVersion, perm Permissions) error {
	if h.subFilter != SubFilterS5 {
		return NewPdfWriteError("additional crypt filters require SubFilter %s, handler uses %s", SubFilterS5, h.subFilter)
	}
	if h.cfg == nil {
		h.cfg = NewCryptFilterConfig()
	}
	if !h.ignoreKeyUsage {
		if err := checkKeyUsage(certs); err != nil {
			return err
		}
	}
	base, err := crypt.NewFilter(crypt.FilterDict{CFM: cfmForVersion(version), Length: keyLengthForVersion(version)})
	if err != nil {
		return NewPdfWriteError("building pubkey crypt filter %q: %v", name, err)
	}
	pf := newPubkeyFilter(base, name, false, h.encryptMetadata)
	if err := pf.AddRecipients(certs, perm); err != nil {
		return err
	}
	return h.cfg.AddFilter(name, pf)
}

func cfmForVersion(v SecurityHandlerVersion) string {
	switch v {
	case VersionAES256:
		return "AESV3"
	case VersionRC4OrAES128:
		return "AESV2"
	default:
		return "V2"
	}
}

func keyLengthForVersion(v SecurityHandlerVersion) int {
	switch v {
	case VersionAES256:
		return 32
	case VersionRC4OrAES128:
		return 16
	default:
		return 5
	}
}

// Authenticate implements Handler. It looks for an envelope the holder's
// certificate can open, tries every one (a document may list recipients in
// any order), and derives the shared file key from whichever one succeeds.
// Only the default crypt filter (or, for SubFilterS4, the handler itself)
// unlocks this way; any other registered filter needs its own Authenticate
// call.
func (h *PublicKeySecurityHandler) Authenticate(cred Credential) (AuthResult, error) {
	ec, ok := cred.(EnvelopeCredential)
	if !ok {
		return AuthResult{}, NewPdfReadError("pubkey security handler requires an EnvelopeCredential, got %T", cred)
	}

	if h.defaultPF != nil {
		res, err := h.defaultPF.Authenticate(ec)
		if err != nil {
			return AuthResult{}, err
		}
		if res.Status != AuthStatusFailed {
			h.fileKey = h.defaultPF.SharedKey()
			h.cred = ec
			h.status = AuthStatusUser
			return res, nil
		}
		h.status = AuthStatusFailed
		return AuthResult{Status: AuthStatusFailed}, nil
	}

	for _, env := range h.s4Envelopes {
		payload, err := openEnvelope(env, ec.Certificate, ec.PrivateKey)
		if err != nil {
			continue
		}
		h.s4Seed = payload.Seed
		h.fileKey = computeS4FileKey(payload.Seed, h.s4Perms, h.encryptMetadata, keyLengthForVersion(h.v))
		h.cred = ec
		h.status = AuthStatusUser
		p := payload.Perms
		return AuthResult{Status: AuthStatusUser, Permissions: &p}, nil
	}

	h.status = AuthStatusFailed
	return AuthResult{Status: AuthStatusFailed}, nil
}

// computeS4FileKey re-derives the 7.6.5.2 hash for the handler-level
// SubFilterS4 case, which has no crypt filter of its own to carry the
// bookkeeping. This is deliberately a thin, one-shot stand-in for
// pubkeyFilter's richer per-filter state (DESIGN.md's S4 key-derivation
// simplification open question).
func computeS4FileKey(seed [16]byte, allPerms []Permissions, encryptMetadata bool, keylen int) []byte {
	cfm := "V2"
	if keylen == 32 {
		cfm = "AESV3"
	}
	base, err := crypt.NewFilter(crypt.FilterDict{CFM: cfm, Length: keylen})
	if err != nil {
		return seed[:]
	}
	pf := newPubkeyFilter(base, "", true, encryptMetadata)
	return pf.deriveSharedKey(seed, allPerms, encryptMetadata)
}

// ExtractCredential implements Handler.
func (h *PublicKeySecurityHandler) ExtractCredential() (Credential, bool) {
	if h.fileKey == nil {
		return nil, false
	}
	return h.cred, true
}

// CryptFilterConfig implements Handler.
func (h *PublicKeySecurityHandler) CryptFilterConfig() *CryptFilterConfig {
	return h.cfg
}

// FileKey returns the derived file key once authenticated, or nil.
func (h *PublicKeySecurityHandler) FileKey() []byte { return h.fileKey }

// AsPDFObject implements Handler.
func (h *PublicKeySecurityHandler) AsPDFObject() (Dict, error) {
	d := Dict{
		"Filter":    "Adobe.PPKLite",
		"SubFilter": string(h.subFilter),
		"V":         int64(handlerVersionNumber(h.v)),
	}

	switch h.subFilter {
	case SubFilterS4:
		recipients := make([]interface{}, len(h.s4Envelopes))
		for i, e := range h.s4Envelopes {
			recipients[i] = e
		}
		d["Recipients"] = recipients
	case SubFilterS5:
		if h.cfg == nil {
			return nil, NewPdfWriteError("SubFilter %s requires a crypt filter configuration", SubFilterS5)
		}
		cf := Dict{}
		for _, name := range h.cfg.Names() {
			f, err := h.cfg.Resolve(name)
			if err != nil {
				return nil, err
			}
			pf, ok := f.(*pubkeyFilter)
			if !ok {
				continue
			}
			pf.seal()
			envs := pf.envelopesSnapshot()
			recipients := make([]interface{}, len(envs))
			for i, e := range envs {
				recipients[i] = e
			}
			cfDict := Dict{
				"CFM":        pf.Name(),
				"Length":     int64(pf.KeyLength()),
				"Recipients": recipients,
			}
			if !h.encryptMetadata {
				cfDict["EncryptMetadata"] = false
			}
			cf[name] = cfDict
		}
		d["CF"] = cf
		d["StmF"] = StandardCryptFilterName
		d["StrF"] = StandardCryptFilterName
	default:
		return nil, NewPdfWriteError("cannot serialize SubFilter %s", h.subFilter)
	}
	return d, nil
}

func buildPubKeyHandler(d Dict) (Handler, error) {
	sfRaw, _ := d["SubFilter"].(string)
	sf := PubKeySubFilter(sfRaw)
	switch sf {
	case SubFilterS3:
		return nil, NewPdfReadError("SubFilter %s is deprecated and not supported", SubFilterS3)
	case SubFilterS4, SubFilterS5:
	default:
		return nil, NewPdfReadError("unrecognized pubkey SubFilter %q", sfRaw)
	}

	v, _ := d["V"].(int64)
	version := SecurityHandlerVersionFromNumber(int(v))
	h := &PublicKeySecurityHandler{
		subFilter:       sf,
		v:               version,
		encryptMetadata: true,
	}

	switch sf {
	case SubFilterS4:
		recips, _ := d["Recipients"].([]interface{})
		for _, r := range recips {
			if b, ok := r.([]byte); ok {
				h.s4Envelopes = append(h.s4Envelopes, b)
				h.s4Perms = append(h.s4Perms, 0)
			}
		}
	case SubFilterS5:
		cf, _ := d["CF"].(Dict)
		if cf == nil {
			return nil, NewPdfReadError("SubFilter %s requires a /CF entry", SubFilterS5)
		}
		stmF, _ := d["StmF"].(string)
		strF, _ := d["StrF"].(string)
		h.cfg = NewCryptFilterConfig()

		for name, raw := range cf {
			cfd, ok := raw.(Dict)
			if !ok {
				continue
			}
			cfm, _ := cfd["CFM"].(string)
			length, _ := cfd["Length"].(int64)
			if err := version.checkCFLength(cfm, length); err != nil {
				return nil, err
			}
			base, err := crypt.NewFilter(crypt.FilterDict{CFM: cfm, Length: int(length)})
			if err != nil {
				return nil, NewPdfReadError("building pubkey crypt filter %q: %v", name, err)
			}
			encMeta := true
			if em, ok := cfd["EncryptMetadata"].(bool); ok {
				encMeta = em
			}
			isDefault := name == stmF || name == strF
			pf := newPubkeyFilter(base, name, isDefault, encMeta)

			var envelopes [][]byte
			recips, _ := cfd["Recipients"].([]interface{})
			for _, r := range recips {
				if b, ok := r.([]byte); ok {
					envelopes = append(envelopes, b)
				}
			}
			pf.loadEnvelopes(envelopes)

			if err := h.cfg.AddFilter(name, pf); err != nil {
				return nil, err
			}
			if isDefault {
				h.defaultPF = pf
			}
		}
		if stmF != "" {
			_ = h.cfg.SetStreamFilter(stmF)
		}
		if strF != "" {
			_ = h.cfg.SetStringFilter(strF)
		}
	}
	return h, nil
}

// checkCFLength validates a parsed /Length against the key length the
// version's dominant CFM implies, the pubkey-handler counterpart of
// buildStandardHandler's /Length check (spec §3: "/Length ... mismatch is a
// hard error"). AESV2/AESV3 carry a fixed length regardless of /V, so this
// only constrains the legacy V2 case, where /V genuinely determines what
// lengths are legal.
func (v SecurityHandlerVersion) checkCFLength(cfm string, length int64) error {
	if cfm != "V2" || length == 0 {
		return nil
	}
	n := int(length)
	if n > 16 && n%8 == 0 {
		// Some writers express /Length in bits even under V2. This accepts
		// any multiple of 8 above 16, wider than newFilterV2, which only
		// reinterprets 40, 64 and 128 when building the filter itself.
		n /= 8
	}
	if _, err := v.CheckKeyLength(n); err != nil {
		return NewPdfReadError("crypt filter length %d invalid for handler version: %v", length, err)
	}
	return nil
}
