/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import "github.com/unidoc/pdfcrypt/security/crypt"

// AuthEvent is an event type that triggers authentication for a crypt filter.
// It is a re-export of crypt.AuthEvent so callers of this package never need
// to import the crypt subpackage just to name the constant.
type AuthEvent = crypt.AuthEvent

const (
	// EventDocOpen is an event triggered when opening the document.
	EventDocOpen = crypt.EventDocOpen
	// EventEFOpen is an event triggered when accessing an embedded file.
	EventEFOpen = crypt.EventEFOpen
)

// AuthStatus is the result of authenticating a credential against a handler.
type AuthStatus int

const (
	// AuthStatusFailed indicates the supplied credential did not validate.
	AuthStatusFailed AuthStatus = iota
	// AuthStatusUser indicates the credential validated as the user password
	// (or, for pubkey handlers, as a matching recipient).
	AuthStatusUser
	// AuthStatusOwner indicates the credential validated as the owner password.
	AuthStatusOwner
)

// String implements fmt.Stringer.
func (s AuthStatus) String() string {
	switch s {
	case AuthStatusUser:
		return "USER"
	case AuthStatusOwner:
		return "OWNER"
	default:
		return "FAILED"
	}
}

// AuthResult is returned by Handler.Authenticate. Permissions is only
// meaningful when Status == AuthStatusUser; owner authentication grants all
// permissions, which is represented by a nil *Permissions here rather than a
// concrete value, matching the "null means all permissions" rule in §3.
type AuthResult struct {
	Status      AuthStatus
	Permissions *Permissions
}
