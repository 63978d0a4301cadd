package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := New(CodeSessionStatusConflict, "session is not active")
	wrapped := fmt.Errorf("transition session: %w", base)

	if !errors.Is(wrapped, New(CodeSessionStatusConflict, "other message")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(wrapped, New(CodeNotFound, "record not found")) {
		t.Fatal("expected mismatched codes to not match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeNotFound, "load session", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if GetCode(err) != CodeNotFound {
		t.Fatalf("code = %q, want %q", GetCode(err), CodeNotFound)
	}
}

func TestGetCodeUnknownForPlainErrors(t *testing.T) {
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Fatal("expected unknown code for plain error")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeSessionEmptyID, codes.InvalidArgument},
		{CodeSessionStatusConflict, codes.FailedPrecondition},
		{CodeConfigInvalidDuration, codes.FailedPrecondition},
		{CodeNotFound, codes.NotFound},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range tests {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("GRPCCode(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestHandleErrorFormatsLocalizedMessage(t *testing.T) {
	err := WithMetadata(CodeSessionStatusConflict, "session is not active", map[string]string{
		"Expected": "ACTIVE",
	})

	grpcErr := HandleError(err, "")
	st, ok := status.FromError(grpcErr)
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}
	if st.Message() != "session is not active" {
		t.Fatalf("status message = %q", st.Message())
	}
}

func TestHandleErrorUnknown(t *testing.T) {
	st, ok := status.FromError(HandleError(errors.New("boom"), "en-US"))
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.Internal {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.Internal)
	}
}
