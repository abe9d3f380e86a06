package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (*model.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenPair), args.Error(1)
}

func (m *mockAuthService) Signin(ctx context.Context, email, password string) (*model.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenPair), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthService) Refresh(ctx context.Context, userID, refreshToken string) (*model.TokenPair, error) {
	args := m.Called(ctx, userID, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenPair), args.Error(1)
}

func serve(h func(http.ResponseWriter, *http.Request) *common.AppError, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h).ServeHTTP(rr, req)
	return rr
}

func decodePair(t *testing.T, rr *httptest.ResponseRecorder) model.TokenPair {
	t.Helper()
	var pair model.TokenPair
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pair))
	return pair
}

func TestAuthHandler_Signup(t *testing.T) {
	tests := map[string]struct {
		body       string
		setup      func(s *mockAuthService)
		wantStatus int
	}{
		"created": {
			body: `{"email":"a@x.com","password":"p1"}`,
			setup: func(s *mockAuthService) {
				s.On("Signup", mock.Anything, "a@x.com", "p1").
					Return(&model.TokenPair{AccessToken: "at", RefreshToken: "rt"}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		"duplicate": {
			body: `{"email":"a@x.com","password":"p1"}`,
			setup: func(s *mockAuthService) {
				s.On("Signup", mock.Anything, "a@x.com", "p1").Return(nil, service.ErrDuplicateAccount).Once()
			},
			wantStatus: http.StatusConflict,
		},
		"invalid email": {
			body:       `{"email":"not-an-email","password":"p1"}`,
			wantStatus: http.StatusBadRequest,
		},
		"missing password": {
			body:       `{"email":"a@x.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		"store failure": {
			body: `{"email":"a@x.com","password":"p1"}`,
			setup: func(s *mockAuthService) {
				s.On("Signup", mock.Anything, "a@x.com", "p1").Return(nil, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc := new(mockAuthService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/auth/local/signup", strings.NewReader(tt.body))
			rr := serve(h.Signup, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			svc.AssertExpectations(t)
			if tt.wantStatus == http.StatusCreated {
				pair := decodePair(t, rr)
				assert.Equal(t, "at", pair.AccessToken)
				assert.Equal(t, "rt", pair.RefreshToken)
			}
		})
	}
}

func TestAuthHandler_Signin(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)

	svc.On("Signin", mock.Anything, "a@x.com", "p1").
		Return(&model.TokenPair{AccessToken: "at", RefreshToken: "rt"}, nil).Once()
	svc.On("Signin", mock.Anything, "a@x.com", "wrong").Return(nil, service.ErrAccessDenied).Once()
	svc.On("Signin", mock.Anything, "a@x.com", "corrupt").Return(nil, service.ErrHashFormat).Once()

	rr := serve(h.Signin, httptest.NewRequest(http.MethodPost, "/auth/local/signin", strings.NewReader(`{"email":"a@x.com","password":"p1"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "rt", decodePair(t, rr).RefreshToken)

	rr = serve(h.Signin, httptest.NewRequest(http.MethodPost, "/auth/local/signin", strings.NewReader(`{"email":"a@x.com","password":"wrong"}`)))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"code":403,"message":"Access denied"}`, rr.Body.String())

	rr = serve(h.Signin, httptest.NewRequest(http.MethodPost, "/auth/local/signin", strings.NewReader(`{"email":"a@x.com","password":"corrupt"}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hash")

	svc.AssertExpectations(t)
}

func TestAuthHandler_LogoutUsesSubjectFromClaims(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)
	svc.On("Logout", mock.Anything, "u-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req = req.WithContext(context.WithValue(req.Context(), claimsKey, &model.TokenClaims{Subject: "u-1"}))
	rr := serve(h.Logout, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	svc.AssertExpectations(t)
}

func TestAuthHandler_WithoutClaims(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)

	rr := serve(h.Logout, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(h.Refresh, httptest.NewRequest(http.MethodGet, "/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Refresh(t *testing.T) {
	svc := new(mockAuthService)
	h := NewAuthHandler(svc)
	svc.On("Refresh", mock.Anything, "u-1", "raw-rt").
		Return(&model.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}, nil).Once()
	svc.On("Refresh", mock.Anything, "u-1", "stale-rt").Return(nil, service.ErrAccessDenied).Once()

	withClaims := func(raw string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
		claims := &model.RefreshClaims{TokenClaims: model.TokenClaims{Subject: "u-1"}, RefreshToken: raw}
		return req.WithContext(context.WithValue(req.Context(), refreshClaimsKey, claims))
	}

	rr := serve(h.Refresh, withClaims("raw-rt"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "at2", decodePair(t, rr).AccessToken)

	rr = serve(h.Refresh, withClaims("stale-rt"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	svc.AssertExpectations(t)
}

func TestAuthError_Deadline(t *testing.T) {
	appErr := authError(context.DeadlineExceeded)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	})

	TimeoutMiddleware(time.Second)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)

	TimeoutMiddleware(0)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, hasDeadline)
}
