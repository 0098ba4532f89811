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

func genCertForCMS(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "cms-test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestEnvelopeRoundTrip(t *testing.T) {
	cert, key := genCertForCMS(t)
	var payload recipientPayload
	copy(payload.Seed[:], []byte("0123456789ABCDEF"))
	payload.Perms = clampP32(-44)

	der, err := buildEnvelope(payload, []*x509.Certificate{cert})
	require.NoError(t, err)

	got, err := openEnvelope(der, cert, key)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestBuildEnvelopeRequiresRecipients(t *testing.T) {
	var payload recipientPayload
	_, err := buildEnvelope(payload, nil)
	require.Error(t, err)
}

func TestParseRecipientPayloadLength(t *testing.T) {
	_, err := parseRecipientPayload([]byte{1, 2, 3})
	require.Error(t, err)
}
