/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func BenchmarkHashR6(b *testing.B) {
	// The hash runs a variable number of rounds, so a deterministic random
	// source keeps benchmark results comparable across runs.
	r := rand.New(rand.NewSource(1234567))
	const n = 20
	pass := make([]byte, n)
	r.Read(pass)
	data := make([]byte, n+8+48)
	r.Read(data)
	user := make([]byte, 48)
	r.Read(user)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = hashR6(data, pass, user)
	}
}

func TestStdHandlerR6RoundTrip(t *testing.T) {
	cases := []struct {
		Name      string
		EncMeta   bool
		UserPass  string
		OwnerPass string
	}{
		{
			Name: "simple", EncMeta: true,
			UserPass: "user", OwnerPass: "owner",
		},
		{
			Name: "utf8", EncMeta: false,
			UserPass: "æøå-u", OwnerPass: "æøå-o",
		},
		{
			Name: "long", EncMeta: true,
			UserPass:  strings.Repeat("user", 80),
			OwnerPass: strings.Repeat("owner", 80),
		},
	}

	const perms = Permissions(0x12345678)

	for _, r := range []int{5, 6} {
		r := r
		t.Run(fmt.Sprintf("R=%d", r), func(t *testing.T) {
			for _, c := range cases {
				c := c
				t.Run(c.Name, func(t *testing.T) {
					sh := stdHandlerR6{}
					d := &StdEncryptDict{
						R: r, P: perms,
						EncryptMetadata: c.EncMeta,
					}

					fkey, err := sh.GenerateParams(d, []byte(c.OwnerPass), []byte(c.UserPass))
					if err != nil {
						t.Fatal("GenerateParams:", err)
					}

					// /Perms and /EncryptMetadata cross-checking is part of
					// recoverFileKey for R=6.

					key, uperm, err := sh.recoverFileKey(d, []byte(c.UserPass))
					if err != nil || uperm != perms {
						t.Error("authenticating user password:", err)
					} else if !bytes.Equal(fkey, key) {
						t.Error("wrong file key recovered via user password")
					}

					key, uperm, err = sh.recoverFileKey(d, []byte(c.OwnerPass))
					if err != nil || uperm != PermOwner {
						t.Error("authenticating owner password:", err, uperm)
					} else if !bytes.Equal(fkey, key) {
						t.Error("wrong file key recovered via owner password")
					}

					// Rewriting /P after the fact must not let the user
					// password grant owner permissions.
					d.P = PermOwner

					key, uperm, err = sh.recoverFileKey(d, []byte(c.UserPass))
					if r == 5 {
						// R=5 never wrote a /Perms block, so there is
						// nothing to cross-check against.
						if err != nil || uperm != PermOwner {
							t.Error("authenticating user password:", err)
						}
					} else if err == nil || uperm == PermOwner {
						t.Error("tampering with /P was not detected under R=6")
					}
				})
			}
		})
	}
}
