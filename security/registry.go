/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"sort"
	"sync"

	"github.com/unidoc/pdfcrypt/security/crypt"
)

// HandlerFactory builds a Handler from a parsed /Encrypt dictionary.
type HandlerFactory func(d Dict) (Handler, error)

// CryptFilterFactory builds a crypt.Filter from a parsed /CF subdictionary.
// It has no "not handled" result of its own: BuildCryptFilter reports
// ok==false when no factory is registered for a /CFM name, letting callers
// fall through to another source instead of erroring immediately.
type CryptFilterFactory func(d Dict) (crypt.Filter, error)

// handlerRegistration is the per-/Filter-name entry in the global registry:
// a constructor plus its own, independently mutable table of recognized
// /CFM names. Each registered handler kind gets a COPY of whatever table it
// inherits at registration time (see Register), not a shared reference --
// registering a custom /CFM on one handler kind must never leak into
// another (pinned by the "on_subclass" parametrization of
// test_custom_crypt_filter_type in the source this was ported from).
type handlerRegistration struct {
	build        HandlerFactory
	cryptFilters map[string]CryptFilterFactory
}

// HandlerRegistry maps /Filter names to the handler kind that implements
// them, and independently tracks, per handler kind, which /CFM names it
// recognizes when parsing a /CF dictionary.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]*handlerRegistration
}

// NewHandlerRegistry builds an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]*handlerRegistration)}
}

// DefaultRegistry is pre-populated with the Standard security handler, whose
// /CFM table starts empty: the built-in methods (V2, AESV2, AESV3) are built
// through crypt.NewFilter, not through this table. PublicKey is registered
// by pubkey_handler.go's init.
var DefaultRegistry = NewHandlerRegistry()

// Register adds a handler kind under filterName. baseFilterName, if
// non-empty, names another already-registered handler kind whose /CFM
// table should be copied as this one's starting point -- the registry
// equivalent of a Python subclass inheriting its parent's class-level
// dict. Passing "" starts from an empty /CFM table.
func (r *HandlerRegistry) Register(filterName string, build HandlerFactory, baseFilterName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfTable := make(map[string]CryptFilterFactory)
	if baseFilterName != "" {
		base, ok := r.handlers[baseFilterName]
		if !ok {
			return NewPdfWriteError("cannot register %q: base handler %q is not registered", filterName, baseFilterName)
		}
		for name, f := range base.cryptFilters {
			cfTable[name] = f
		}
	}
	r.handlers[filterName] = &handlerRegistration{build: build, cryptFilters: cfTable}
	return nil
}

// RegisterCryptFilter adds or overrides a /CFM name recognized when parsing
// a /CF dictionary for the given handler kind. It does not affect any other
// handler kind's table, including ones that previously copied from it.
func (r *HandlerRegistry) RegisterCryptFilter(filterName, cfm string, build CryptFilterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.handlers[filterName]
	if !ok {
		return NewPdfWriteError("cannot register crypt filter %q: handler %q is not registered", cfm, filterName)
	}
	reg.cryptFilters[cfm] = build
	return nil
}

// pubkeySubFilterNames lists the /SubFilter values that identify a pubkey
// /Encrypt dictionary regardless of what its /Filter name says -- some
// producers write a /Filter other than /Adobe.PubSec (or this package's
// own /Adobe.PPKLite) while still meaning the public-key handler, pinned by
// test_pubkey_alternative_filter.
var pubkeySubFilterNames = map[string]bool{
	string(SubFilterS3): true,
	string(SubFilterS4): true,
	string(SubFilterS5): true,
}

// Build constructs a Handler for the given /Filter name and dictionary. If
// filterName is not registered, it falls back to /SubFilter: a recognized
// pubkey /SubFilter routes to the PublicKey handler kind even though the
// /Filter name itself was not /Adobe.PubSec -- the /Filter name is
// informational, /SubFilter is what actually selects the handler.
func (r *HandlerRegistry) Build(filterName string, d Dict) (Handler, error) {
	r.mu.RLock()
	reg, ok := r.handlers[filterName]
	r.mu.RUnlock()
	if ok {
		return reg.build(d)
	}

	if sf, _ := d["SubFilter"].(string); pubkeySubFilterNames[sf] {
		r.mu.RLock()
		pkReg, pkOK := r.handlers["Adobe.PPKLite"]
		r.mu.RUnlock()
		if pkOK {
			return pkReg.build(d)
		}
	}
	return nil, NewPdfReadError("no security handler registered for /Filter %q", filterName)
}

// BuildCryptFilter constructs a crypt.Filter for the given handler kind and
// /CFM name, or reports ok=false if that handler kind does not recognize
// the name.
func (r *HandlerRegistry) BuildCryptFilter(filterName, cfm string, d Dict) (f crypt.Filter, ok bool, err error) {
	r.mu.RLock()
	reg, registered := r.handlers[filterName]
	r.mu.RUnlock()
	if !registered {
		return nil, false, NewPdfReadError("no security handler registered for /Filter %q", filterName)
	}
	r.mu.RLock()
	build, found := reg.cryptFilters[cfm]
	r.mu.RUnlock()
	if !found {
		return nil, false, nil
	}
	f, err = build(d)
	return f, true, err
}

// FilterNames returns the registered /Filter names, sorted for deterministic
// iteration in tests and diagnostics.
func (r *HandlerRegistry) FilterNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	_ = DefaultRegistry.Register("Standard", buildStandardHandler, "")
}

func buildStandardHandler(d Dict) (Handler, error) {
	r, _ := d["R"].(int64)
	v, _ := d["V"].(int64)
	p, _ := d["P"].(int64)
	encMeta := true
	if em, ok := d["EncryptMetadata"].(bool); ok {
		encMeta = em
	}

	h := NewStandardSecurityHandler(
		SecurityHandlerVersionFromNumber(int(v)),
		StandardSecurityRevisionFromNumber(int(r)),
		clampP32(p),
		encMeta,
		NewCryptFilterConfig(),
	)
	h.dict.R = int(r)
	if r == 5 {
		h.impl = NewHandlerR6()
	}

	getBytes := func(key string) []byte {
		b, _ := d[key].([]byte)
		return b
	}
	h.dict.O = getBytes("O")
	h.dict.U = getBytes("U")
	h.dict.OE = getBytes("OE")
	h.dict.UE = getBytes("UE")
	h.dict.Perms = getBytes("Perms")
	if length, ok := d["Length"].(int64); ok {
		n, err := h.v.CheckKeyLength(int(length / 8))
		if err != nil {
			return nil, NewPdfReadError("/Length %d invalid for handler version: %v", length, err)
		}
		h.dict.KeyLengthBytes = n
	}
	return h, nil
}
