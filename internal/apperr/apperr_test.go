package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusByClass(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{TooLarge("big"), http.StatusRequestEntityTooLarge},
		{UnsupportedKind("nope"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{Generation(errors.New("disk full")), http.StatusInternalServerError},
		{Store(errors.New("locked")), http.StatusInternalServerError},
		{MalformedBody(errors.New("eof")), http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		if tt.err.Status != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Class, tt.err.Status, tt.want)
		}
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := NotFound("qr code not found")
	wrapped := fmt.Errorf("lookup: %w", base)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected classified error")
	}
	if got != base {
		t.Errorf("got %v, want %v", got, base)
	}
	if !Is(wrapped, ClassNotFound) {
		t.Error("Is(ClassNotFound) = false")
	}
	if Is(errors.New("plain"), ClassNotFound) {
		t.Error("plain error should not be classified")
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("sqlite: database is locked")
	err := Store(cause)

	if !err.Internal() {
		t.Error("store error should be internal")
	}
	if err.Message == cause.Error() {
		t.Error("client message must not carry the cause")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
}
