package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "run command", "tool failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped base error to survive")
	}
	for _, fragment := range []string{"transcribe", "run command", "tool failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error message %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "download", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrExternalTool, "transcribe", "", "", nil), true},
		{services.Wrap(services.ErrVerification, "insights", "", "", nil), true},
		{services.Wrap(services.ErrNetwork, "download", "", "", nil), true},
		{services.Wrap(services.ErrInvalidSelection, "", "", "bad token", nil), false},
		{services.ErrBusy, false},
		{services.ErrLedgerCorrupt, false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
