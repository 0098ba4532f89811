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

func TestSerialiseRoundTripPassword(t *testing.T) {
	cred := PasswordCredential{Password: []byte("hunter2"), ID0: []byte("abcdefgh")}
	s, err := Serialise(cred)
	require.NoError(t, err)
	require.Equal(t, "pwd", s.Type)

	got, err := s.Deserialise()
	require.NoError(t, err)
	require.Equal(t, cred, got)
}

func TestSerialiseRoundTripEnvelope(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	cred := EnvelopeCredential{Certificate: cert, PrivateKey: key}
	s, err := Serialise(cred)
	require.NoError(t, err)
	require.Equal(t, "envelope", s.Type)

	got, err := s.Deserialise()
	require.NoError(t, err)
	gotEnv := got.(EnvelopeCredential)
	require.Equal(t, cert.Raw, gotEnv.Certificate.Raw)
	require.Equal(t, key.D, gotEnv.PrivateKey.D)
}

func TestDeserialiseCorruptedPassword(t *testing.T) {
	s := SerialisedCredential{Type: "pwd", Data: []byte{0, 0, 0, 99}}
	_, err := s.Deserialise()
	require.EqualError(t, err, "Failed to deserialise password")
}

func TestDeserialiseCorruptedEnvelope(t *testing.T) {
	s := SerialisedCredential{Type: "envelope", Data: []byte{0, 0, 0, 99}}
	_, err := s.Deserialise()
	require.EqualError(t, err, "Failed to decode serialised pubkey credential")
}

func TestDeserialiseUnknownType(t *testing.T) {
	s := SerialisedCredential{Type: "foobar"}
	_, err := s.Deserialise()
	require.EqualError(t, err, `credential type "foobar" not known`)
}

func TestDeserialisePkcs11Reserved(t *testing.T) {
	s := SerialisedCredential{Type: "pkcs11"}
	_, err := s.Deserialise()
	require.Error(t, err)
	var nie *NotImplementedError
	require.ErrorAs(t, err, &nie)
}
