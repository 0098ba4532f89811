/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, keyUsage x509.KeyUsage) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "recipient"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     keyUsage,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestBuildFromCertsRejectsMissingKeyUsage(t *testing.T) {
	cert, _ := selfSignedCert(t, x509.KeyUsageDigitalSignature)
	_, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version: VersionAES256,
		Perms:   clampP32(-44),
	})
	require.Error(t, err)
}

func TestBuildFromCertsIgnoreKeyUsageOverride(t *testing.T) {
	cert, _ := selfSignedCert(t, x509.KeyUsageDigitalSignature)
	h, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version:        VersionAES256,
		Perms:          clampP32(-44),
		IgnoreKeyUsage: true,
	})
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestPubKeyHandlerAuthenticateRoundTrip(t *testing.T) {
	cert, key := selfSignedCert(t, x509.KeyUsageKeyEncipherment)
	h, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version:         VersionAES256,
		Perms:           clampP32(-44),
		EncryptMetadata: true,
	})
	require.NoError(t, err)

	res, err := h.Authenticate(EnvelopeCredential{Certificate: cert, PrivateKey: key})
	require.NoError(t, err)
	require.Equal(t, AuthStatusUser, res.Status)
	require.NotNil(t, res.Permissions)
	require.Equal(t, clampP32(-44), *res.Permissions)
	require.NotNil(t, h.FileKey())
	require.Len(t, h.FileKey(), 32)
}

func TestPubKeyHandlerWrongRecipientFails(t *testing.T) {
	cert, _ := selfSignedCert(t, x509.KeyUsageKeyEncipherment)
	otherCert, otherKey := selfSignedCert(t, x509.KeyUsageKeyEncipherment)

	h, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version: VersionAES256,
		Perms:   clampP32(-44),
	})
	require.NoError(t, err)

	res, err := h.Authenticate(EnvelopeCredential{Certificate: otherCert, PrivateKey: otherKey})
	require.NoError(t, err)
	require.Equal(t, AuthStatusFailed, res.Status)
	require.Nil(t, h.FileKey())
}

func TestPubKeyHandlerRejectsDeprecatedS3(t *testing.T) {
	cert, _ := selfSignedCert(t, x509.KeyUsageKeyEncipherment)
	_, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version:   VersionAES256,
		SubFilter: SubFilterS3,
	})
	require.Error(t, err)
}

func TestPubKeyHandlerAsPDFObjectS5(t *testing.T) {
	cert, _ := selfSignedCert(t, x509.KeyUsageKeyEncipherment)
	h, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version:   VersionAES256,
		SubFilter: SubFilterS5,
		Perms:     clampP32(-4),
	})
	require.NoError(t, err)

	d, err := h.AsPDFObject()
	require.NoError(t, err)
	require.Equal(t, "Adobe.PPKLite", d["Filter"])
	require.Equal(t, string(SubFilterS5), d["SubFilter"])
	require.Contains(t, d, "CF")
}

// Mirrors test_custom_pubkey_crypt_filter: a document with two S5 crypt
// filters, one default (auto-authenticated with the handler) and one
// independently keyed "Custom" filter that stays locked until its own
// Authenticate call, even for the same recipient.
func TestPubKeyHandlerCustomFilterStaysLockedUntilAuthenticated(t *testing.T) {
	cert, key := selfSignedCert(t, x509.KeyUsageKeyEncipherment)

	h, err := BuildFromCerts([]*x509.Certificate{cert}, BuildFromCertsOptions{
		Version:         VersionAES256,
		SubFilter:       SubFilterS5,
		Perms:           clampP32(-44),
		EncryptMetadata: true,
	})
	require.NoError(t, err)
	require.NoError(t, h.AddCryptFilter("Custom", []*x509.Certificate{cert}, VersionRC4OrAES128, clampP32(-4)))

	// A second AddRecipients on the non-default filter must fail.
	custom, err := h.CryptFilterConfig().Resolve("Custom")
	require.NoError(t, err)
	customPF, ok := custom.(*pubkeyFilter)
	require.True(t, ok)
	require.Error(t, customPF.AddRecipients([]*x509.Certificate{cert}, clampP32(-4)))

	cred := EnvelopeCredential{Certificate: cert, PrivateKey: key}
	res, err := h.Authenticate(cred)
	require.NoError(t, err)
	require.Equal(t, AuthStatusUser, res.Status)

	// The default filter is usable immediately...
	defaultFilter, err := h.CryptFilterConfig().Resolve(StandardCryptFilterName)
	require.NoError(t, err)
	okey, err := defaultFilter.MakeKey(0, 0, h.FileKey())
	require.NoError(t, err)
	_, err = defaultFilter.EncryptBytes([]byte("hello world, 16!"), okey)
	require.NoError(t, err)

	// ...but the custom filter is still locked.
	_, err = customPF.EncryptBytes([]byte("hello world, 16!"), make([]byte, 16))
	require.Error(t, err)
	require.False(t, customPF.Authenticated())

	// Explicit authentication unlocks it.
	authRes, err := customPF.Authenticate(cred)
	require.NoError(t, err)
	require.Equal(t, AuthStatusUser, authRes.Status)
	require.True(t, customPF.Authenticated())

	okey2, err := customPF.MakeKey(0, 0, customPF.SharedKey())
	require.NoError(t, err)
	_, err = customPF.EncryptBytes([]byte("hello world, 16!"), okey2)
	require.NoError(t, err)
}
