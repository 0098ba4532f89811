/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

// Dict is a minimal, self-contained stand-in for the serialized form of an
// /Encrypt or /CF dictionary. Values are restricted to the shapes a PDF
// dictionary can actually hold: int64, bool, []byte (PDF string), string
// (PDF name), []interface{} (PDF array) and Dict (nested dictionary). The
// generic PDF object model this would normally round-trip through is an
// external collaborator this core does not implement (§1); a reader/writer
// is expected to translate between its own object graph and this shape at
// the call boundary (§6.1).
type Dict map[string]interface{}

// Handler is the policy object a Standard or PublicKey security handler
// implements. It owns the file-wide key, authenticates credentials, and
// builds/parses the /Encrypt dictionary (§6.2).
type Handler interface {
	// Authenticate tries a credential against the handler. A failed
	// authentication is reported via AuthResult.Status, not an error (§4.3
	// state machine, §7 propagation). StandardSecurityHandler also sets an
	// auth-failed latch, under which its FileKey returns nil until a later
	// Authenticate call succeeds. PublicKeySecurityHandler has no such
	// latch: after a failed call it keeps the file key and unlocked filters
	// of any earlier successful call. The filters in CryptFilterConfig do
	// not consult the handler's authentication state.
	Authenticate(cred Credential) (AuthResult, error)

	// ExtractCredential returns the credential that was used to
	// authenticate (or that the handler was built with), if it can be
	// re-serialized. Pubkey handlers built from a recipient list alone
	// (no private key on hand) return ok == false.
	ExtractCredential() (cred Credential, ok bool)

	// AsPDFObject serializes the handler's state into an /Encrypt
	// dictionary.
	AsPDFObject() (Dict, error)

	// CryptFilterConfig returns the handler's crypt-filter configuration.
	CryptFilterConfig() *CryptFilterConfig
}
