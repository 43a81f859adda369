package models

import "time"

// TokenSet is the credential bundle issued by the authorization server.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Valid reports whether the set carries an access token. Expiry is not
// consulted; an expired token surfaces as an upstream rejection.
func (t TokenSet) Valid() bool {
	return t.AccessToken != ""
}
