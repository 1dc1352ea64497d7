package domain

// TokenPair is what a successful login returns: a short-lived access token
// and, when requested, a longer-lived refresh token. Both are self-contained
// signed tokens; there is no server-side session record behind them.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"` // always "bearer"
	ExpiresIn    int64  `json:"expires_in"` // seconds until access token expiry
}

// MFAEnrollment is returned exactly once at enrollment time. The secret is
// not retrievable again afterwards.
type MFAEnrollment struct {
	Secret  string // base32 TOTP secret
	URI     string // otpauth:// provisioning URI for QR rendering
	Issuer  string
	Account string
}
