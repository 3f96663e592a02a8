package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidManifest, "missing [package] table")
	if err.Code != ErrCodeInvalidManifest {
		t.Errorf("Code = %v", err.Code)
	}
	if err.Error() != "INVALID_MANIFEST: missing [package] table" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNewFormatting(t *testing.T) {
	err := New(ErrCodePackageNotFound, "crate %s@%s not found", "serde", "1.0")
	if err.Message != "crate serde@1.0 not found" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "fetch license")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match the cause with errors.Is")
	}
	if err.Error() != "NETWORK_ERROR: fetch license: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeInvalidLockfile, "bad lockfile")

	if !Is(err, ErrCodeInvalidLockfile) {
		t.Error("Is should match the code")
	}
	if Is(err, ErrCodeNetwork) {
		t.Error("Is should not match a different code")
	}
	if Is(fmt.Errorf("plain"), ErrCodeNetwork) {
		t.Error("Is should not match plain errors")
	}

	// Matching through a wrap chain.
	wrapped := fmt.Errorf("outer: %w", err)
	if !Is(wrapped, ErrCodeInvalidLockfile) {
		t.Error("Is should unwrap")
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(New(ErrCodeTimeout, "slow")) != ErrCodeTimeout {
		t.Error("GetCode should extract the code")
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("GetCode should return empty for plain errors")
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidInput, "manifest is required")
	if UserMessage(err) != "manifest is required" {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
	if UserMessage(fmt.Errorf("plain")) != "plain" {
		t.Errorf("UserMessage plain = %q", UserMessage(fmt.Errorf("plain")))
	}
}

func TestRateLimitedError(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 30}
	if err.Error() != "rate limited: retry after 30 seconds" {
		t.Errorf("Error() = %q", err.Error())
	}
	if (&RateLimitedError{}).Error() != "rate limited" {
		t.Error("zero RetryAfter should omit the suffix")
	}
	if err.Code() != ErrCodeRateLimited {
		t.Errorf("Code() = %v", err.Code())
	}
}
