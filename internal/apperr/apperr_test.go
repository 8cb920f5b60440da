package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *Error
		status int
	}{
		{name: "invalid input", err: InvalidInput("bad"), status: http.StatusBadRequest},
		{name: "no offer", err: NoOfferConfigured(), status: http.StatusBadRequest},
		{name: "no leads", err: NoLeadsUploaded(), status: http.StatusBadRequest},
		{name: "no results", err: NoResultsAvailable(), status: http.StatusNotFound},
		{name: "internal", err: Internal("boom", errors.New("x")), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.HTTPStatus(); got != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, got)
			}
		})
	}
}

func TestIsFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("run scoring: %w", NoLeadsUploaded())

	if !Is(err, KindNoLeadsUploaded) {
		t.Fatalf("expected wrapped error to match kind")
	}
	if Is(err, KindNoOfferConfigured) {
		t.Fatalf("unexpected kind match")
	}
	if Is(nil, KindUnknown) {
		t.Fatalf("nil error must not match any kind")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected unknown kind for plain errors")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindInvalidInput, "parse csv", errors.New("bare quote")).WithOp("upload")

	if got := err.Error(); got != "upload: parse csv: bare quote" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("expected unwrap to expose the underlying error")
	}
}
