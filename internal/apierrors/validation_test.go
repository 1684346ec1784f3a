package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	return c, rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestValidationErrorFieldMessages(t *testing.T) {
	type signupRequest struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required,min=3"`
	}
	err := validator.New().Struct(signupRequest{Email: "not-an-email", Name: "ab"})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	c, rec := testContext()
	ValidationError(c, err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != "INVALID_INPUT" {
		t.Errorf("expected code INVALID_INPUT, got %q", resp.Code)
	}
	if !strings.Contains(resp.Error, "Email must be a valid email address") {
		t.Errorf("missing email message in %q", resp.Error)
	}
	if !strings.Contains(resp.Error, "Name must be at least 3 characters") {
		t.Errorf("missing min-length message in %q", resp.Error)
	}
}

func TestValidationErrorOneOf(t *testing.T) {
	type transitionRequest struct {
		Status string `validate:"required,oneof=active ended archived"`
	}
	err := validator.New().Struct(transitionRequest{Status: "paused"})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	c, rec := testContext()
	ValidationError(c, err)

	resp := decodeError(t, rec)
	if !strings.Contains(resp.Error, "Status must be one of: active ended archived") {
		t.Errorf("unexpected oneof message %q", resp.Error)
	}
}

func TestValidationErrorMalformedBody(t *testing.T) {
	c, rec := testContext()
	ValidationError(c, errors.New("unexpected EOF"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error != "Invalid request body" || resp.Code != "INVALID_INPUT" {
		t.Errorf("unexpected response %+v", resp)
	}
}
