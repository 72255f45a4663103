// Package docsign verifies ed25519 signatures over document hashes. Signer
// addresses double as public keys: an AccountID is the base58 form of the
// signer's 32-byte ed25519 public key.
package docsign

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"impact-bond-engine/internal/domain"
)

var (
	// ErrBadSignature is reported when a signature fails verification.
	ErrBadSignature = errors.New("docsign: signature verification failed")

	// ErrBadKey is reported when the signer's address does not decode to a
	// point on the curve.
	ErrBadKey = errors.New("docsign: signer address is not a valid public key")
)

// Verify checks an ed25519 signature by the given account over a document
// hash.
func Verify(signer domain.AccountID, hash domain.Hash, sig []byte) error {
	key, err := signer.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	if !onCurve(key) {
		return ErrBadKey
	}
	if len(sig) != ed25519.SignatureSize {
		return ErrBadSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(key), hash[:], sig) {
		return ErrBadSignature
	}
	return nil
}

// onCurve reports whether the 32 bytes decode to a point on edwards25519.
// ed25519.Verify rejects these anyway, but checking up front separates
// "bad key" from "bad signature" in errors.
func onCurve(key []byte) bool {
	if len(key) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}
