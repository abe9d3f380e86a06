package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestValidateAndDecode(t *testing.T) {
	tests := map[string]struct {
		body    string
		wantErr bool
	}{
		"valid":                  {body: `{"email":"a@x.com","password":"p1"}`},
		"malformed json":         {body: `{"email":`, wantErr: true},
		"missing email":          {body: `{"password":"p1"}`, wantErr: true},
		"invalid email":          {body: `{"email":"nope","password":"p1"}`, wantErr: true},
		"empty password":         {body: `{"email":"a@x.com","password":""}`, wantErr: true},
		"unknown fields ignored": {body: `{"email":"a@x.com","password":"p1","name":"x","role":"admin"}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var payload credentials
			appErr := ValidateAndDecode(rr, req, &payload)

			if tt.wantErr {
				require.NotNil(t, appErr)
				assert.Equal(t, http.StatusBadRequest, appErr.Code)
				return
			}
			require.Nil(t, appErr)
			assert.Equal(t, "a@x.com", payload.Email)
		})
	}
}

func TestAppError_Send(t *testing.T) {
	rr := httptest.NewRecorder()

	NewAppError(http.StatusConflict, "Account already exists", nil).Send(rr)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusConflict), body["code"])
	assert.Equal(t, "Account already exists", body["message"])
	assert.NotContains(t, body, "Err")
}
