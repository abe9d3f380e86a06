package handler

import (
	"context"
	"errors"
	"net/http"

	"go-auth-api/common"
	"go-auth-api/model"
	"go-auth-api/service"
)

// IAuthService is the part of the auth service the handlers call.
type IAuthService interface {
	Signup(ctx context.Context, email, password string) (*model.TokenPair, error)
	Signin(ctx context.Context, email, password string) (*model.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID, refreshToken string) (*model.TokenPair, error)
}

type AuthHandler struct {
	Service IAuthService
}

func NewAuthHandler(s IAuthService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Signup godoc
// @Summary      Register with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.AuthRequest  true  "Credentials"
// @Success      201          {object}  model.TokenPair
// @Failure      400          {object}  common.AppError
// @Failure      409          {object}  common.AppError
// @Router       /auth/local/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.AuthRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	pair, err := h.Service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}

	common.WriteJSON(w, http.StatusCreated, pair)
	return nil
}

// Signin godoc
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.AuthRequest  true  "Credentials"
// @Success      200          {object}  model.TokenPair
// @Failure      400          {object}  common.AppError
// @Failure      403          {object}  common.AppError
// @Router       /auth/local/signin [post]
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.AuthRequest
	if appErr := common.ValidateAndDecode(w, r, &req); appErr != nil {
		return appErr
	}

	pair, err := h.Service.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}

	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// Logout godoc
// @Summary      Revoke the current refresh token
// @Tags         auth
// @Security     BearerAuth
// @Success      200
// @Failure      401  {object}  common.AppError
// @Router       /auth/logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return unauthenticated(errors.New("access claims missing from context"))
	}

	if err := h.Service.Logout(r.Context(), claims.Subject); err != nil {
		return authError(err)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

// Refresh godoc
// @Summary      Exchange a refresh token for a new token pair
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  model.TokenPair
// @Failure      401  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Router       /auth/refresh [get]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	claims, ok := RefreshClaimsFromContext(r.Context())
	if !ok {
		return unauthenticated(errors.New("refresh claims missing from context"))
	}

	pair, err := h.Service.Refresh(r.Context(), claims.Subject, claims.RefreshToken)
	if err != nil {
		return authError(err)
	}

	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

func authError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrDuplicateAccount):
		return common.NewAppError(http.StatusConflict, "Account already exists", nil)
	case errors.Is(err, service.ErrAccessDenied):
		return common.NewAppError(http.StatusForbidden, "Access denied", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return common.NewAppError(http.StatusServiceUnavailable, "Request was not completed in time", err)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}
