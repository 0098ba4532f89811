/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unidoc/pdfcrypt/security/crypt"
)

func TestHandlerRegistryDefaultsRegistered(t *testing.T) {
	names := DefaultRegistry.FilterNames()
	require.Contains(t, names, "Standard")
	require.Contains(t, names, "Adobe.PPKLite")
}

func TestHandlerRegistryCustomCryptFilterDoesNotLeak(t *testing.T) {
	r := NewHandlerRegistry()
	require.NoError(t, r.Register("Standard", buildStandardHandler, ""))
	require.NoError(t, r.Register("CustomStandard", buildStandardHandler, "Standard"))

	require.NoError(t, r.RegisterCryptFilter("CustomStandard", "CustomCFM", func(d Dict) (crypt.Filter, error) {
		return crypt.NewFilter(crypt.FilterDict{CFM: "V2", Length: 16})
	}))

	_, ok, err := r.BuildCryptFilter("CustomStandard", "CustomCFM", nil)
	require.NoError(t, err)
	require.True(t, ok)

	// The base "Standard" registration must not see the custom CFM that was
	// only registered on the derived "CustomStandard" kind.
	_, ok, err = r.BuildCryptFilter("Standard", "CustomCFM", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandlerRegistryInheritsSnapshotNotReference(t *testing.T) {
	r := NewHandlerRegistry()
	require.NoError(t, r.Register("Standard", buildStandardHandler, ""))
	require.NoError(t, r.Register("CustomStandard", buildStandardHandler, "Standard"))

	// Registering a new CFM on "Standard" *after* "CustomStandard" already
	// copied its table must not retroactively appear on the derived kind.
	require.NoError(t, r.RegisterCryptFilter("Standard", "LateAdd", func(d Dict) (crypt.Filter, error) {
		return crypt.NewIdentity(), nil
	}))

	_, ok, err := r.BuildCryptFilter("CustomStandard", "LateAdd", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandlerRegistryUnknownFilter(t *testing.T) {
	r := NewHandlerRegistry()
	_, err := r.Build("Nope", nil)
	require.Error(t, err)
}
