// Package keychain delegates identity proof and transaction signing to a
// locally installed keychain. Private keys never pass through this package.
package keychain

import (
	"context"
	"errors"
)

var (
	ErrExtensionUnavailable = errors.New("keychain is not installed or not reachable")
	ErrSignatureRejected    = errors.New("keychain rejected the sign request")
	ErrBroadcastRejected    = errors.New("keychain rejected the broadcast")
)

const (
	LoginMessage   = "BitBnB wants to sign you in using Hive Keychain."
	UploadDisplay  = "BitBnB Document Upload"
	AuthorityLevel = "Posting"
)

// Confirmation is what the keychain reports after accepting a broadcast. It
// says nothing about how deep the transaction is in the chain.
type Confirmation struct {
	TxID string
}

// Signer is the capability the rest of the client needs from a keychain
type Signer interface {
	// Authenticate proves the identity of the user and returns the account name
	Authenticate(ctx context.Context) (string, error)
	// SubmitRecord signs and broadcasts a custom-data operation tagged with
	// recordKind, carrying payload serialized as JSON
	SubmitRecord(ctx context.Context, username, recordKind string, payload any) (*Confirmation, error)
}
