/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unidoc/pdfcrypt/security/crypt"
)

func TestPubkeyFilterDeriveSharedKeyDeterministic(t *testing.T) {
	base, err := crypt.NewFilter(crypt.FilterDict{CFM: "AESV3"})
	require.NoError(t, err)

	var seed [16]byte
	copy(seed[:], []byte("0123456789ABCDEF"))
	perms := []Permissions{clampP32(-44), clampP32(-4)}

	f1 := newPubkeyFilter(base, StandardCryptFilterName, true, true)
	k1 := f1.deriveSharedKey(seed, perms, true)

	base2, err := crypt.NewFilter(crypt.FilterDict{CFM: "AESV3"})
	require.NoError(t, err)
	f2 := newPubkeyFilter(base2, StandardCryptFilterName, true, true)
	k2 := f2.deriveSharedKey(seed, perms, true)

	require.Equal(t, k1, k2)
	require.Len(t, k1, 32)
	require.Equal(t, k1, f1.SharedKey())
	require.True(t, f1.Authenticated())
}

func TestPubkeyFilterDeriveSharedKeyVariesWithMetadataFlag(t *testing.T) {
	base, err := crypt.NewFilter(crypt.FilterDict{CFM: "AESV2"})
	require.NoError(t, err)

	var seed [16]byte
	copy(seed[:], []byte("0123456789ABCDEF"))
	perms := []Permissions{clampP32(-44)}

	f := newPubkeyFilter(base, StandardCryptFilterName, true, true)
	kTrue := f.deriveSharedKey(seed, perms, true)
	kFalse := f.deriveSharedKey(seed, perms, false)
	require.NotEqual(t, kTrue, kFalse)
	require.Len(t, kTrue, 16)
}

func TestPubkeyFilterCustomFilterLocksUntilAuthenticated(t *testing.T) {
	base, err := crypt.NewFilter(crypt.FilterDict{CFM: "V2", Length: 16})
	require.NoError(t, err)

	f := newPubkeyFilter(base, "Custom", false, true)
	_, err = f.EncryptBytes([]byte("hello"), make([]byte, 16))
	require.Error(t, err, "non-default filter must stay locked before Authenticate")

	cert, key := genCertForCMS(t)
	require.NoError(t, f.AddRecipients([]*x509.Certificate{cert}, PermPrinting))

	_, err = f.Authenticate(EnvelopeCredential{Certificate: cert, PrivateKey: key})
	require.NoError(t, err)
	require.True(t, f.Authenticated())

	require.Error(t, f.AddRecipients([]*x509.Certificate{cert}, PermPrinting),
		"a non-default filter only accepts one AddRecipients call")
}
