package apierror

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "bad_request", err: BadRequest("bad"), wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST", wantMsg: "bad"},
		{name: "unauthorized_default", err: Unauthorized(""), wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED", wantMsg: "Login key required"},
		{name: "forbidden_default", err: Forbidden(""), wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN", wantMsg: "Invalid login key"},
		{name: "not_found_default", err: NotFound(""), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND", wantMsg: "Not found"},
		{name: "conflict", err: Conflict("taken"), wantStatus: http.StatusConflict, wantCode: "CONFLICT", wantMsg: "taken"},
		{name: "internal_default", err: InternalError(""), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR", wantMsg: "Something went wrong, try again later"},
		{name: "unavailable_default", err: ServiceUnavailable(""), wantStatus: http.StatusServiceUnavailable, wantCode: "SERVICE_UNAVAILABLE", wantMsg: "Economy service unavailable"},
		{name: "custom_code", err: NotFound("Item not found.").WithCode("ITEM_NOT_FOUND"), wantStatus: http.StatusNotFound, wantCode: "ITEM_NOT_FOUND", wantMsg: "Item not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestToJSON(t *testing.T) {
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string       `json:"code"`
			Message string       `json:"message"`
			Details []FieldError `json:"details"`
		} `json:"error"`
	}

	err := ValidationError("invalid request", FieldError{Field: "item", Message: "is required"})
	require.NoError(t, json.Unmarshal(err.ToJSON(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, "item", body.Error.Details[0].Field)

	plain := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(BadRequest("x").ToJSON(), &plain))
	assert.NotContains(t, plain["error"], "details")
}
