/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package security

import "fmt"

// PdfReadError reports a malformed /Encrypt dictionary, an unknown
// subfilter, a missing required entry, a key-length mismatch, a corrupted
// serialised credential, a credential of the wrong type for the handler in
// use, or an unsupported cipher encountered while reading.
type PdfReadError struct {
	msg   string
	cause error
}

func (e *PdfReadError) Error() string { return e.msg }

// Unwrap exposes the wrapped cause, if any, so callers can use errors.As to
// recover e.g. a CipherNotAllowed from underneath the generic read error it
// is reported as (spec §7's propagation rule).
func (e *PdfReadError) Unwrap() error { return e.cause }

// NewPdfReadError builds a PdfReadError with a formatted message.
func NewPdfReadError(format string, args ...interface{}) error {
	return &PdfReadError{msg: fmt.Sprintf(format, args...)}
}

// NewPdfReadErrorWrap builds a PdfReadError carrying cause as its Unwrap
// target, for sites that need errors.As to see past the generic read error
// down to a more specific one (e.g. CipherNotAllowed).
func NewPdfReadErrorWrap(cause error, format string, args ...interface{}) error {
	return &PdfReadError{msg: fmt.Sprintf(format, args...), cause: cause}
}

// PdfWriteError reports a key-encipherment constraint violated at build
// time, or an attempt to write without first authenticating.
type PdfWriteError struct{ msg string }

func (e *PdfWriteError) Error() string { return e.msg }

// NewPdfWriteError builds a PdfWriteError with a formatted message.
func NewPdfWriteError(format string, args ...interface{}) error {
	return &PdfWriteError{msg: fmt.Sprintf(format, args...)}
}

// PdfStreamError reports a crypt-filter name referenced by a stream that is
// not present in the crypt-filter configuration.
type PdfStreamError struct{ msg string }

func (e *PdfStreamError) Error() string { return e.msg }

// NewPdfStreamError builds a PdfStreamError with a formatted message.
func NewPdfStreamError(format string, args ...interface{}) error {
	return &PdfStreamError{msg: fmt.Sprintf(format, args...)}
}

// PdfError reports a programmer-error-shaped condition: attempting to
// serialize the identity filter, or attempting to set per-filter recipients
// a second time.
type PdfError struct{ msg string }

func (e *PdfError) Error() string { return e.msg }

// NewPdfError builds a PdfError with a formatted message.
func NewPdfError(format string, args ...interface{}) error {
	return &PdfError{msg: fmt.Sprintf(format, args...)}
}

// NotImplementedError reports an unknown /CFM method encountered while
// constructing a crypt filter.
type NotImplementedError struct{ msg string }

func (e *NotImplementedError) Error() string { return e.msg }

// NewNotImplementedError builds a NotImplementedError with a formatted message.
func NewNotImplementedError(format string, args ...interface{}) error {
	return &NotImplementedError{msg: fmt.Sprintf(format, args...)}
}

// CryptoFormatError reports a primitive-level failure inside this package:
// a key-wrap input of the wrong length, a /Perms block that does not match
// /P or /EncryptMetadata, or a failing RC4/AES/random source. Bad CBC
// padding and short ciphertexts in the crypt subpackage's filters are
// returned as plain errors, not as CryptoFormatError.
type CryptoFormatError struct{ msg string }

func (e *CryptoFormatError) Error() string { return e.msg }

// NewCryptoFormatError builds a CryptoFormatError with a formatted message.
func NewCryptoFormatError(format string, args ...interface{}) error {
	return &CryptoFormatError{msg: fmt.Sprintf(format, args...)}
}

// CipherNotAllowed reports that a pubkey envelope declared a content-cipher
// this package does not support decrypting (anything other than RC4,
// AES-CBC or AES-GCM). It is always wrapped in a PdfReadError at the call
// site, per spec §7's propagation rule, but kept as its own type so tests
// can assert on the specific cause with errors.As.
type CipherNotAllowed struct{ Cipher string }

func (e *CipherNotAllowed) Error() string {
	return fmt.Sprintf("cipher not allowed: %s", e.Cipher)
}
