package auth

import "github.com/golang-jwt/jwt/v5"

// Scope names what a token may do.
type Scope string

const (
	// ScopeSync allows calling the mirror write endpoints.
	ScopeSync Scope = "sync"
)

// Issuer is stamped into every token this service signs.
const Issuer = "tanitrust"

// Claims is the JWT body of a sync token.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Principal is the verified caller extracted from a token.
type Principal struct {
	Subject string
	Scope   Scope
}
