package sideeffect

import "testing"

func TestValidateRefAcceptsSafeNames(t *testing.T) {
	cases := []string{"main", "feature/foo", "release-1.2.3", "a_b.c"}
	for _, c := range cases {
		if err := validateRef("branch", c); err != nil {
			t.Fatalf("expected %q to be valid, got %v", c, err)
		}
	}
}

func TestValidateRefRejectsUnsafeNames(t *testing.T) {
	cases := []string{"", "-x", "a..b", "HEAD@{1}", "a~1", "bad name", "bad;rm -rf"}
	for _, c := range cases {
		if err := validateRef("branch", c); err == nil {
			t.Fatalf("expected %q to be rejected", c)
		}
	}
}
