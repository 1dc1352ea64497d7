// Package totpx wraps pquerna/otp with the policy this service uses for MFA:
// 6-digit SHA1 codes over 30-second steps, with a configurable skew window to
// tolerate authenticator clock drift.
package totpx

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time-step in seconds.
	Period = 30

	// DefaultSkew accepts codes from the adjacent time-step on either side.
	DefaultSkew = 1
)

// Provider generates MFA secrets and verifies time-based one-time codes.
// It holds no mutable state and is safe for concurrent use.
type Provider struct {
	issuer string
	skew   uint
}

// New returns a Provider labelling provisioning URIs with issuer.
func New(issuer string, skew uint) Provider {
	return Provider{issuer: issuer, skew: skew}
}

// Issuer returns the configured issuer label.
func (p Provider) Issuer() string { return p.issuer }

// GenerateSecret creates a fresh random base32 secret for account and returns
// it together with its otpauth:// provisioning URI. The secret is handed to
// the caller exactly once at enrollment time.
func (p Provider) GenerateSecret(account string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: account,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("totpx: generate key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// ProvisioningURI renders the standard otpauth:// URI for an existing secret.
// Deterministic given the same inputs, suitable for QR-code rendering.
func (p Provider) ProvisioningURI(secret, account string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", p.issuer)
	v.Set("period", fmt.Sprintf("%d", Period))
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")

	label := url.PathEscape(p.issuer + ":" + account)
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code is valid for secret at the current time.
func (p Provider) Verify(secret, code string) bool {
	return p.VerifyAt(secret, code, time.Now())
}

// VerifyAt reports whether code is valid for secret at the given time,
// accepting the skew window on either side. An empty or missing secret or
// code verifies false; length mismatches verify false. The underlying
// library compares codes in constant time.
func (p Provider) VerifyAt(secret, code string, at time.Time) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      p.skewOrDefault(),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (p Provider) skewOrDefault() uint {
	if p.skew == 0 {
		return DefaultSkew
	}
	return p.skew
}
