// file: model/request.go

package model

// AuthRequest is the payload for both local signup and signin.
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
