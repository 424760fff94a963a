// Package token issues the bearer credentials used by the onboarding
// flow: time-limited confirmation tokens carried in invite links and
// non-expiring edit tokens granting write access to one vendor record.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultConfirmationTTL is the policy window for confirmation links.
const DefaultConfirmationTTL = 7 * 24 * time.Hour

const tokenBytes = 32

// Credential is an opaque bearer secret. It wraps the raw value so that
// hashing-at-rest or rotation can change the representation without
// touching the confirmation engine's contract.
type Credential string

func (c Credential) String() string { return string(c) }

// Matches compares the credential against a presented bearer value.
func (c Credential) Matches(presented string) bool {
	return string(c) != "" && string(c) == presented
}

type Issuer struct {
	ConfirmationTTL time.Duration
	Clock           func() time.Time
}

func NewIssuer(ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	return &Issuer{ConfirmationTTL: ttl, Clock: time.Now}
}

// IssueConfirmation returns a fresh confirmation token and its expiry.
// Persistence is the caller's responsibility.
func (i *Issuer) IssueConfirmation() (string, time.Time, error) {
	cred, err := generate()
	if err != nil {
		return "", time.Time{}, err
	}
	return cred.String(), i.now().Add(i.ttl()).UTC(), nil
}

// IssueEdit returns a vendor edit token. No expiry and no rotation in the
// current design.
func (i *Issuer) IssueEdit() (string, error) {
	cred, err := generate()
	if err != nil {
		return "", err
	}
	return cred.String(), nil
}

func (i *Issuer) now() time.Time {
	if i == nil || i.Clock == nil {
		return time.Now()
	}
	return i.Clock()
}

func (i *Issuer) ttl() time.Duration {
	if i == nil || i.ConfirmationTTL <= 0 {
		return DefaultConfirmationTTL
	}
	return i.ConfirmationTTL
}

func generate() (Credential, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return Credential(hex.EncodeToString(buf)), nil
}
