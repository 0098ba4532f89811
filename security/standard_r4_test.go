/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStdHandlerR4(t *testing.T) {
	id0 := []byte("0123456789ABCDEF")

	cases := []struct {
		name string
		r    int
	}{
		{"R2", 2},
		{"R3", 3},
		{"R4", 4},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			sh := stdHandlerR4{}
			d := &StdEncryptDict{
				R:               c.r,
				P:               Permissions(-44),
				EncryptMetadata: true,
				ID0:             id0,
				KeyLengthBytes:  16,
			}

			ekey, err := sh.GenerateParams(d, []byte("ownersecret"), []byte("usersecret"))
			require.NoError(t, err)
			require.NotEmpty(t, ekey)

			t.Run("owner auth grants PermOwner", func(t *testing.T) {
				key, perm, err := sh.Authenticate(d, []byte("ownersecret"))
				require.NoError(t, err)
				require.Equal(t, ekey, key)
				require.Equal(t, PermOwner, perm)
			})

			t.Run("user auth grants stored P", func(t *testing.T) {
				key, perm, err := sh.Authenticate(d, []byte("usersecret"))
				require.NoError(t, err)
				require.Equal(t, ekey, key)
				require.Equal(t, d.P, perm)
			})

			t.Run("wrong password fails without error", func(t *testing.T) {
				key, _, err := sh.Authenticate(d, []byte("thispasswordiswrong"))
				require.NoError(t, err)
				require.Nil(t, key)
			})
		})
	}
}

// TestStdHandlerR4_MetadataFlag exercises the !EncryptMetadata contribution
// to Algorithm 2: flipping the flag without regenerating the parameters
// must break authentication, since it changes the hashed input.
func TestStdHandlerR4_MetadataFlag(t *testing.T) {
	sh := stdHandlerR4{}
	d := &StdEncryptDict{
		R:               4,
		P:               Permissions(-44),
		EncryptMetadata: false,
		ID0:             []byte("0123456789ABCDEF"),
		KeyLengthBytes:  16,
	}
	_, err := sh.GenerateParams(d, []byte("owner"), []byte("user"))
	require.NoError(t, err)

	key, _, err := sh.Authenticate(d, []byte("user"))
	require.NoError(t, err)
	require.NotNil(t, key)

	d.EncryptMetadata = true
	key, _, err = sh.Authenticate(d, []byte("user"))
	require.NoError(t, err)
	require.Nil(t, key)
}
