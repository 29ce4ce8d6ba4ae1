package types

// Tokens is the pair handed to a client after login, registration or refresh.
// AccessTokenExpiresIn is the access token lifetime in milliseconds.
type Tokens struct {
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresIn int64
}
