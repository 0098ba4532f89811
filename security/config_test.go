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

func TestCryptFilterConfigEmptyIsLegal(t *testing.T) {
	cfg := NewCryptFilterConfig()
	f, err := cfg.StreamFilter()
	require.NoError(t, err)
	require.Equal(t, crypt.NewIdentity(), f)
}

func TestCryptFilterConfigDefaultMustReferenceRegisteredName(t *testing.T) {
	cfg := NewCryptFilterConfig()
	require.Error(t, cfg.SetStreamFilter("DoesNotExist"))
}

func TestCryptFilterConfigIdentityAlwaysResolves(t *testing.T) {
	cfg := NewCryptFilterConfig()
	require.NoError(t, cfg.SetStreamFilter(IdentityCryptFilterName))
	f, err := cfg.StreamFilter()
	require.NoError(t, err)
	require.Equal(t, crypt.NewIdentity(), f)
}

func TestCryptFilterConfigIndependentDefaults(t *testing.T) {
	f1, err := crypt.NewFilter(crypt.FilterDict{CFM: "AESV2"})
	require.NoError(t, err)
	f2, err := crypt.NewFilter(crypt.FilterDict{CFM: "V2", Length: 16})
	require.NoError(t, err)

	cfg := NewCryptFilterConfig()
	require.NoError(t, cfg.AddFilter("CF1", f1))
	require.NoError(t, cfg.AddFilter("CF2", f2))
	require.NoError(t, cfg.SetStreamFilter("CF1"))
	require.NoError(t, cfg.SetStringFilter("CF2"))

	sf, err := cfg.StreamFilter()
	require.NoError(t, err)
	require.Equal(t, "AESV2", sf.Name())

	strf, err := cfg.StringFilter()
	require.NoError(t, err)
	require.Equal(t, "V2", strf.Name())
}

func TestCryptFilterConfigEFFFallsBackToStream(t *testing.T) {
	f1, err := crypt.NewFilter(crypt.FilterDict{CFM: "AESV3"})
	require.NoError(t, err)

	cfg := NewSingleCryptFilterConfig("StdCF", f1)
	eff, err := cfg.EFFilter()
	require.NoError(t, err)
	require.Equal(t, "AESV3", eff.Name())
}

func TestCryptFilterConfigCannotShadowIdentity(t *testing.T) {
	cfg := NewCryptFilterConfig()
	err := cfg.AddFilter(IdentityCryptFilterName, crypt.NewIdentity())
	require.Error(t, err)
}
