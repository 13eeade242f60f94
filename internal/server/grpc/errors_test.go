package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/joaopapereira/crates.io/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"canceled", fmt.Errorf("query: %w", context.Canceled), codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"token", common.ErrInvalidToken, codes.Unauthenticated},
		{"not found", fmt.Errorf("%w: crate `x` does not exist", common.ErrorNotFound), codes.NotFound},
		{"forbidden", common.Forbidden("only owners have permission to modify owners"), codes.PermissionDenied},
		{"too large", common.HumanKind(common.ErrUploadTooLarge, "JSON metadata blob too large"), codes.ResourceExhausted},
		{"validation", common.Human("cannot remove yourself as an owner"), codes.InvalidArgument},
		{"index", common.ErrIndexUnavailable, codes.Unavailable},
		{"other", errors.New("disk on fire"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toStatus(tt.err)
			if status.Code(got) != tt.want {
				t.Fatalf("code = %v, want %v", status.Code(got), tt.want)
			}
		})
	}

	if toStatus(nil) != nil {
		t.Fatal("nil error must map to nil")
	}
}

func TestToStatus_KeepsValidationMessage(t *testing.T) {
	err := toStatus(common.Human("`%s` is already an owner", "bob"))
	if msg := status.Convert(err).Message(); msg != "`bob` is already an owner" {
		t.Fatalf("message = %q", msg)
	}
}
