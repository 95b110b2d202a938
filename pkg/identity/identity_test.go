package identity_test

import (
	"testing"

	"github.com/verivote/verivote/pkg/identity"
)

func TestNormalizeVoterID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "101", "101"},
		{"leading and trailing space", "  101  ", "101"},
		{"tab and newline", "\t101\n", "101"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
		{"non-numeric preserved", "voter-x", "voter-x"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := identity.NormalizeVoterID(tc.in); got != tc.want {
				t.Fatalf("NormalizeVoterID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNumericVoterID(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		n, err := identity.NumericVoterID("101")
		if err != nil {
			t.Fatalf("NumericVoterID: unexpected error: %v", err)
		}
		if n != 101 {
			t.Fatalf("NumericVoterID = %d, want 101", n)
		}
	})

	t.Run("whitespace is trimmed first", func(t *testing.T) {
		t.Parallel()
		n, err := identity.NumericVoterID(" 42 ")
		if err != nil {
			t.Fatalf("NumericVoterID: unexpected error: %v", err)
		}
		if n != 42 {
			t.Fatalf("NumericVoterID = %d, want 42", n)
		}
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		t.Parallel()
		for _, in := range []string{"", "abc", "12.5", "-1"} {
			if _, err := identity.NumericVoterID(in); err == nil {
				t.Fatalf("NumericVoterID(%q): expected an error", in)
			}
		}
	})
}
