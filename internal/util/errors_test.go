package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{InvalidState("rejected", "approved"), http.StatusBadRequest},
		{InvalidTransition("not_started", "in_progress"), http.StatusBadRequest},
		{ForbiddenErr("no"), http.StatusForbidden},
		{NotFoundErr("missing"), http.StatusNotFound},
		{Internal(errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.HTTPStatus(), tt.err.Message)
	}
}

func TestAsAppError(t *testing.T) {
	ae := Validation("bad input")
	assert.Equal(t, ae, AsAppError(ae))

	// 包装过的业务错误也能提取
	wrapped := errors.Join(errors.New("context"), ae)
	assert.Equal(t, KindValidation, AsAppError(wrapped).Kind)

	// 裸错误一律视为内部错误，不向外暴露细节
	plain := AsAppError(errors.New("sql syntax"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "内部服务错误", plain.Message)
}

func TestInternalHidesDetail(t *testing.T) {
	cause := errors.New("dial tcp refused")
	ae := Internal(cause)
	assert.ErrorIs(t, ae, cause)
	assert.Equal(t, "内部服务错误", ae.Message)
}
