package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	valid := []string{"serde", "tokio-util", "my_crate", "a"}
	for _, name := range valid {
		if err := ValidatePackageName(name); err != nil {
			t.Errorf("ValidatePackageName(%q) = %v", name, err)
		}
	}

	invalid := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("a", 257)},
		{"control char", "bad\x01name"},
		{"traversal", "../etc/passwd"},
		{"double slash", "a//b"},
		{"backslash", `a\b`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !Is(err, ErrCodeInvalidPackage) {
				t.Errorf("code = %v", GetCode(err))
			}
		})
	}
}

func TestValidateCrateName(t *testing.T) {
	if err := ValidateCrateName("serde_json"); err != nil {
		t.Errorf("valid crate name rejected: %v", err)
	}
	for _, name := range []string{"1starts-with-digit", "has space", "has.dot", "-leading-dash"} {
		if err := ValidateCrateName(name); err == nil {
			t.Errorf("ValidateCrateName(%q) should fail", name)
		}
	}
}

func TestValidateManifestPath(t *testing.T) {
	if err := ValidateManifestPath("Cargo.toml"); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}
	if err := ValidateManifestPath(""); err == nil {
		t.Error("empty path should fail")
	}
	if err := ValidateManifestPath("bad\x00path"); err == nil {
		t.Error("null byte should fail")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://crates.io/api/v1"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	if err := ValidateURL("http://localhost:8080"); err != nil {
		t.Errorf("http URL rejected: %v", err)
	}
	for _, url := range []string{"", "ftp://example.com", "file:///etc/passwd"} {
		if err := ValidateURL(url); err == nil {
			t.Errorf("ValidateURL(%q) should fail", url)
		}
	}
}
