/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStandardSecurityHandlerR4RoundTrip(t *testing.T) {
	h := NewStandardSecurityHandler(VersionRC4OrAES128, RevisionRC4OrAES128, clampP32(-44), true, nil)
	require.NoError(t, h.GenerateForPasswords([]byte("owner"), []byte("user"), []byte("0123456789ABCDEF")))

	d, err := h.AsPDFObject()
	require.NoError(t, err)
	require.Equal(t, "Standard", d["Filter"])
	require.Equal(t, int64(4), d["V"])
	require.Equal(t, int64(4), d["R"])

	built, err := DefaultRegistry.Build("Standard", d)
	require.NoError(t, err)
	h2 := built.(*StandardSecurityHandler)

	res, err := h2.Authenticate(PasswordCredential{Password: []byte("user"), ID0: []byte("0123456789ABCDEF")})
	require.NoError(t, err)
	require.Equal(t, AuthStatusUser, res.Status)
	require.NotNil(t, res.Permissions)
	require.Equal(t, clampP32(-44), *res.Permissions)
	require.False(t, h2.AuthFailed())

	res, err = h2.Authenticate(PasswordCredential{Password: []byte("wrong")})
	require.NoError(t, err)
	require.Equal(t, AuthStatusFailed, res.Status)
	require.True(t, h2.AuthFailed())
	require.Nil(t, h2.FileKey())
}

// TestStandardSecurityHandlerR4LengthMismatch exercises the /Length
// validation buildStandardHandler applies via SecurityHandlerVersion's
// CheckKeyLength -- only the Standard handler's /Encrypt-dictionary parse
// path hits this, not the in-memory GenerateForPasswords path.
func TestStandardSecurityHandlerR4LengthMismatch(t *testing.T) {
	h := NewStandardSecurityHandler(VersionRC4OrAES128, RevisionRC4OrAES128, clampP32(-44), true, nil)
	require.NoError(t, h.GenerateForPasswords([]byte("owner"), []byte("user"), []byte("0123456789ABCDEF")))

	d, err := h.AsPDFObject()
	require.NoError(t, err)
	d["Length"] = int64(33 * 8) // not representable as a single RC4/AES-128 key length

	_, err = DefaultRegistry.Build("Standard", d)
	require.Error(t, err)
}

func TestStandardSecurityHandlerR6RoundTrip(t *testing.T) {
	h := NewStandardSecurityHandler(VersionAES256, RevisionAES256, clampP32(-4), true, nil)
	require.NoError(t, h.GenerateForPasswords([]byte("owner"), []byte("user"), nil))

	d, err := h.AsPDFObject()
	require.NoError(t, err)
	require.Equal(t, int64(5), d["V"])
	require.Equal(t, int64(6), d["R"])
	require.NotEmpty(t, d["OE"])
	require.NotEmpty(t, d["UE"])
	require.NotEmpty(t, d["Perms"])

	built, err := DefaultRegistry.Build("Standard", d)
	require.NoError(t, err)
	h2 := built.(*StandardSecurityHandler)

	res, err := h2.Authenticate(PasswordCredential{Password: []byte("owner")})
	require.NoError(t, err)
	require.Equal(t, AuthStatusOwner, res.Status)
}

func TestStandardSecurityHandlerExtractCredential(t *testing.T) {
	h := NewStandardSecurityHandler(VersionRC4OrAES128, RevisionRC4OrAES128, clampP32(-44), true, nil)
	_, ok := h.ExtractCredential()
	require.False(t, ok)

	require.NoError(t, h.GenerateForPasswords([]byte("owner"), []byte("user"), []byte("0123456789ABCDEF")))
	cred, ok := h.ExtractCredential()
	require.True(t, ok)
	pc := cred.(PasswordCredential)
	require.Equal(t, []byte("owner"), pc.Password)
}
