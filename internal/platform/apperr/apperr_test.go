package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("bad %s", "date"), http.StatusBadRequest},
		{"not found", NotFound("dose not found"), http.StatusNotFound},
		{"inventory", InsufficientInventory("lot empty"), http.StatusUnprocessableEntity},
		{"conflict", Conflict("duplicate"), http.StatusConflict},
		{"wrapped conflict", fmt.Errorf("create dose: %w", Conflict("duplicate cycle")), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("%s: HTTPStatus() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestKindMessage(t *testing.T) {
	err := Validation("frequency_days must be >= 1, got %d", 0)
	if err.Error() != "frequency_days must be >= 1, got 0" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected error to be ErrValidation")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("validation error must not match ErrNotFound")
	}
}

func TestToHTTP_HidesInternalErrors(t *testing.T) {
	he := ToHTTP(errors.New("connection reset by peer"))
	if he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", he.Code)
	}
	if he.Message != "internal server error" {
		t.Errorf("expected generic message, got %v", he.Message)
	}
	if he.Internal == nil {
		t.Error("expected internal error to be retained")
	}

	he = ToHTTP(NotFound("treatment not found"))
	if he.Code != http.StatusNotFound || he.Message != "treatment not found" {
		t.Errorf("unexpected http error: %d %v", he.Code, he.Message)
	}
}
