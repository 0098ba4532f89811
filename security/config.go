/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import "github.com/unidoc/pdfcrypt/security/crypt"

// StandardCryptFilterName is the conventional name V>=4 documents give their
// sole crypt filter when there is no reason to have more than one.
const StandardCryptFilterName = "StdCF"

// IdentityCryptFilterName is the reserved name that always resolves to the
// identity filter, regardless of what (if anything) is registered under it.
const IdentityCryptFilterName = "Identity"

// CryptFilterConfig holds the named crypt filters of a V>=4 handler plus
// the three defaults (/StmF, /StrF, /EFF) that select among them. A single
// filter is commonly shared by all three names (the V<4 and "one filter for
// everything" case), but §3 and §4.5 require independent resolution of
// each.
type CryptFilterConfig struct {
	filters map[string]crypt.Filter

	streamFilter string
	stringFilter string
	effFilter    string
}

// NewCryptFilterConfig builds an empty configuration. An empty configuration
// with no defaults set is legal: it describes an unencrypted document, or a
// V<4 document whose single implicit filter lives on the handler itself
// rather than in this table (spec §3).
func NewCryptFilterConfig() *CryptFilterConfig {
	return &CryptFilterConfig{filters: make(map[string]crypt.Filter)}
}

// NewSingleCryptFilterConfig builds the common case: one named filter used
// for streams, strings and embedded files alike.
func NewSingleCryptFilterConfig(name string, f crypt.Filter) *CryptFilterConfig {
	c := NewCryptFilterConfig()
	c.AddFilter(name, f)
	c.streamFilter = name
	c.stringFilter = name
	c.effFilter = name
	return c
}

// AddFilter registers a named crypt filter. Registering under
// IdentityCryptFilterName is rejected: that name is reserved for the
// built-in identity filter and must not be shadowed.
func (c *CryptFilterConfig) AddFilter(name string, f crypt.Filter) error {
	if name == IdentityCryptFilterName {
		return NewPdfWriteError("cannot register a crypt filter under the reserved name %q", IdentityCryptFilterName)
	}
	if name == "" {
		return NewPdfWriteError("crypt filter name cannot be empty")
	}
	c.filters[name] = f
	return nil
}

// SetStreamFilter sets /StmF by name. The name must already be registered,
// or be IdentityCryptFilterName.
func (c *CryptFilterConfig) SetStreamFilter(name string) error {
	if err := c.checkName(name); err != nil {
		return err
	}
	c.streamFilter = name
	return nil
}

// SetStringFilter sets /StrF by name, same rules as SetStreamFilter.
func (c *CryptFilterConfig) SetStringFilter(name string) error {
	if err := c.checkName(name); err != nil {
		return err
	}
	c.stringFilter = name
	return nil
}

// SetEFF sets /EFF by name, same rules as SetStreamFilter. When unset,
// embedded files fall back to the stream filter (spec §3 EFF resolution).
func (c *CryptFilterConfig) SetEFF(name string) error {
	if err := c.checkName(name); err != nil {
		return err
	}
	c.effFilter = name
	return nil
}

func (c *CryptFilterConfig) checkName(name string) error {
	if name == IdentityCryptFilterName {
		return nil
	}
	if _, ok := c.filters[name]; !ok {
		return NewPdfWriteError("crypt filter default refers to unregistered name %q", name)
	}
	return nil
}

// StreamFilter resolves the filter that should be used for stream bodies.
func (c *CryptFilterConfig) StreamFilter() (crypt.Filter, error) {
	return c.resolve(c.streamFilter)
}

// StringFilter resolves the filter that should be used for string bodies.
func (c *CryptFilterConfig) StringFilter() (crypt.Filter, error) {
	return c.resolve(c.stringFilter)
}

// EFFilter resolves the filter that should be used for embedded file
// streams, falling back to the stream filter when /EFF was never set.
func (c *CryptFilterConfig) EFFilter() (crypt.Filter, error) {
	name := c.effFilter
	if name == "" {
		name = c.streamFilter
	}
	return c.resolve(name)
}

// Resolve looks a named filter up directly, bypassing the /StmF/StrF/EFF
// indirection -- used by pubkey handlers whose /CF entries are addressed by
// /Recipients rather than by one of the three default slots (spec §4.2,
// SubFilter s5).
func (c *CryptFilterConfig) Resolve(name string) (crypt.Filter, error) {
	return c.resolve(name)
}

func (c *CryptFilterConfig) resolve(name string) (crypt.Filter, error) {
	if name == "" {
		return crypt.NewIdentity(), nil
	}
	if name == IdentityCryptFilterName {
		return crypt.NewIdentity(), nil
	}
	f, ok := c.filters[name]
	if !ok {
		return nil, NewPdfStreamError("crypt filter %q not found in configuration", name)
	}
	return f, nil
}

// Names returns the registered crypt filter names, for serializing /CF.
func (c *CryptFilterConfig) Names() []string {
	names := make([]string, 0, len(c.filters))
	for name := range c.filters {
		names = append(names, name)
	}
	return names
}
