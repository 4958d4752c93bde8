package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by an identity token.
// It embeds the standard claims required for validity checks plus the custom
// fields identifying the authenticated user.
type Payload struct {
	// StandardClaims embeds Exp (Expiration), Iat (Issued At), and Iss (Issuer),
	// which drive token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the numeric identifier of the authenticated user.
	UserID int64 `json:"user_id"`

	// Username is the display name associated with the account.
	Username string `json:"username"`
}
