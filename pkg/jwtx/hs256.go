package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors. Callers branch on these with errors.Is; the HTTP layer
// maps them all to the same 401 so the distinction never leaks to clients.
var (
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrSignatureInvalid = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrNotYetValid      = errors.New("jwtx: token not yet valid")
	ErrIssuer           = errors.New("jwtx: issuer mismatch")
	ErrTokenUse         = errors.New("jwtx: wrong token use")
)

const minSecretBytes = 32

// Issuer mints and validates HS256-signed session tokens with a single
// server-held symmetric key. Exactly one algorithm is accepted on
// verification - a token claiming any other alg (including "none") fails
// with ErrSignatureInvalid, closing the algorithm-confusion hole.
type Issuer struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewIssuer builds an Issuer. The secret must carry at least 256 bits; HS256
// with a short secret is brute-forceable offline.
func NewIssuer(secret []byte, issuer string) (*Issuer, error) {
	if len(secret) < minSecretBytes {
		return nil, errors.New("jwtx: signing secret must be at least 32 bytes")
	}
	return &Issuer{
		secret: secret,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		),
	}, nil
}

// Issue mints a signed access token for the subject with the given ttl.
func (i *Issuer) Issue(subject, email, role string, ttl time.Duration, now time.Time) (string, error) {
	return i.sign(NewClaims(subject, email, role, TokenUseAccess, ttl, i.issuer, now))
}

// IssueRefresh mints a longer-lived token marked token_use=refresh. It is
// still stateless: there is no rotation record and no revocation list, the
// deliberate tradeoff being staleness-for-scalability.
func (i *Issuer) IssueRefresh(subject, email, role string, ttl time.Duration, now time.Time) (string, error) {
	return i.sign(NewClaims(subject, email, role, TokenUseRefresh, ttl, i.issuer, now))
}

func (i *Issuer) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Verify validates signature, expiry, issuer, and token_use=access, returning
// the decoded claims on success.
func (i *Issuer) Verify(token string) (Claims, error) {
	return i.verify(token, TokenUseAccess)
}

// VerifyRefresh is Verify for tokens minted by IssueRefresh.
func (i *Issuer) VerifyRefresh(token string) (Claims, error) {
	return i.verify(token, TokenUseRefresh)
}

func (i *Issuer) verify(token, use string) (Claims, error) {
	parsed, err := i.parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(i.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateUse(use); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// mapParseError folds golang-jwt's error tree into our closed taxonomy.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	default:
		return ErrMalformed
	}
}
