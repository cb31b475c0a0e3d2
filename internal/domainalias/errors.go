package domainalias

import "errors"

var (
	// ErrStaleManifest is returned by LoadManifest when the offered manifest
	// is older than the one already loaded.
	ErrStaleManifest = errors.New("domainalias: manifest version is older than the loaded one")

	// ErrBadSignature is returned when a signed manifest does not verify
	// against the configured public key.
	ErrBadSignature = errors.New("domainalias: manifest signature verification failed")

	// ErrInvalidPublicKey is returned when a public key is not 32 bytes.
	ErrInvalidPublicKey = errors.New("domainalias: public key must be 32 bytes")
)
