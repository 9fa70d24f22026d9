package provider

import "testing"

func TestNormalizeIsIdempotent(t *testing.T) {
	cases := []string{
		"", "/", "a", "/a", "a/b", "/a/b/", "//a//b", "/a/./b/../c", "a/../../b",
	}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize(%q) = %q, not idempotent: Normalize(%q) = %q", c, once, once, twice)
		}
	}
}

func TestNormalizeAddsLeadingSlash(t *testing.T) {
	if got := Normalize("a/b"); got != "/a/b" {
		t.Errorf("Normalize(%q) = %q, want /a/b", "a/b", got)
	}
}

func TestNormalizeStripsTrailingSlash(t *testing.T) {
	if got := Normalize("/a/b/"); got != "/a/b" {
		t.Errorf("Normalize(%q) = %q, want /a/b", "/a/b/", got)
	}
}
