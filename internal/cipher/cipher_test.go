package cipher

import (
	"fmt"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	keys := []string{"000000", "123456", "999999", "040596", "710293"}
	for _, key := range keys {
		for shift := 0; shift <= 9; shift++ {
			t.Run(fmt.Sprintf("%s+%d", key, shift), func(t *testing.T) {
				enc, err := Encode(key, shift)
				if err != nil {
					t.Fatalf("Encode: %v", err)
				}
				if len(enc) != len(key) {
					t.Fatalf("length changed: %q -> %q", key, enc)
				}
				dec, err := Decode(enc, shift)
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if dec != key {
					t.Fatalf("round trip failed: %q -> %q -> %q", key, enc, dec)
				}
			})
		}
	}
}

func TestEncodeKnownValues(t *testing.T) {
	cases := []struct {
		in    string
		shift int
		want  string
	}{
		{"123456", 0, "123456"},
		{"123456", 1, "234567"},
		{"999999", 3, "222222"},
		{"000000", 9, "999999"},
	}
	for _, tc := range cases {
		got, err := Encode(tc.in, tc.shift)
		if err != nil {
			t.Fatalf("Encode(%q,%d): %v", tc.in, tc.shift, err)
		}
		if got != tc.want {
			t.Fatalf("Encode(%q,%d) = %q, want %q", tc.in, tc.shift, got, tc.want)
		}
	}
}

func TestEncodeRejectsNonDigits(t *testing.T) {
	if _, err := Encode("12a456", 3); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
	if _, err := Decode("SIG-42", 1); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
}

func TestShiftRange(t *testing.T) {
	if _, err := Encode("123456", 10); err == nil {
		t.Fatal("expected error for out-of-range shift")
	}
}
