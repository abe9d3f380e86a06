// file: model/token.go

package model

// TokenPair is returned by signup, signin and refresh. It is never persisted;
// only a hash of RefreshToken is stored on the user.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
