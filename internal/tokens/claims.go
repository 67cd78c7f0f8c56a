package tokens

import "github.com/golang-jwt/jwt/v5"

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessClaims carries the identity of the account the token was issued to.
// Subject is the account id.
type AccessClaims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the account id (Subject) and a unique token id.
type RefreshClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Identity is the set of account fields embedded into an access token.
type Identity struct {
	ID       string
	Username string
	Email    string
	FullName string
}
