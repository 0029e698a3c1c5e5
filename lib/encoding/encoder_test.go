package encoding

import (
	"errors"
	"strings"
	"testing"
)

type testParams struct {
	ID   int64  `msgpack:"id"`
	Name string `msgpack:"name"`
	Flag bool   `msgpack:"flag"`
}

func TestNewEncoder(t *testing.T) {
	// Any key length works; short keys are stretched.
	if _, err := NewEncoder([]byte("short")); err != nil {
		t.Fatalf("NewEncoder with short key failed: %v", err)
	}
	if _, err := NewEncoder([]byte("this-is-a-32-byte-key-for-aes!!!")); err != nil {
		t.Fatalf("NewEncoder with 32-byte key failed: %v", err)
	}
	if _, err := NewEncoder([]byte("a-key-that-is-noticeably-longer-than-thirty-two-bytes")); err != nil {
		t.Fatalf("NewEncoder with long key failed: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	tests := []struct {
		name      string
		sensitive bool
		in        testParams
	}{
		{"signed", false, testParams{ID: 12345, Name: "site-tree", Flag: true}},
		{"encrypted", true, testParams{ID: 67890, Name: "users", Flag: false}},
		{"zero value", false, testParams{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := enc.Encode(tt.in, tt.sensitive)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if token == "" {
				t.Fatal("Encode returned an empty token")
			}
			if got := strings.Contains(token, "."); got == tt.sensitive {
				t.Errorf("token %q has separator = %v, want %v", token, got, !tt.sensitive)
			}

			var out testParams
			if err := enc.Decode(token, tt.sensitive, &out); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if out != tt.in {
				t.Errorf("Decode() = %+v, want %+v", out, tt.in)
			}
		})
	}
}

func TestMapParams(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	in := map[string]string{"node": "42", "mode": "edit"}
	token, err := enc.Encode(in, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out map[string]string
	if err := enc.Decode(token, false, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out["node"] != "42" || out["mode"] != "edit" || len(out) != 2 {
		t.Errorf("Decode() = %v, want %v", out, in)
	}
}

func TestSignatureVerificationFailure(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	a, _ := enc.Encode(testParams{ID: 1}, false)
	b, _ := enc.Encode(testParams{ID: 2}, false)

	// Body of a with the signature of b.
	bodyA, _, _ := strings.Cut(a, ".")
	_, sigB, _ := strings.Cut(b, ".")

	var out testParams
	err := enc.Decode(bodyA+"."+sigB, false, &out)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode() error = %v, want %v", err, ErrSignatureInvalid)
	}
}

func TestDecryptionFailure(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	other, _ := NewEncoder([]byte("other-key"))

	token, err := enc.Encode(testParams{ID: 123}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out testParams
	if err := other.Decode(token, true, &out); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Decode() error = %v, want %v", err, ErrDecryptFailed)
	}
	if err := enc.Decode("c2hvcnQ", true, &out); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Decode(short) error = %v, want %v", err, ErrInvalidFormat)
	}
}

func TestInvalidFormat(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	tests := []struct {
		name  string
		token string
	}{
		{"missing separator", "invalidbase64withoutseparator"},
		{"bad body", "!!!.AAAA"},
		{"bad signature", "AAAA.!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out testParams
			err := enc.Decode(tt.token, false, &out)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.token, err, ErrInvalidFormat)
			}
		})
	}
}

func TestDifferentKeysCannotDecode(t *testing.T) {
	enc1, _ := NewEncoder([]byte("key-one"))
	enc2, _ := NewEncoder([]byte("key-two"))

	token, err := enc1.Encode(testParams{ID: 123, Name: "test"}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out testParams
	if err := enc2.Decode(token, false, &out); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode() error = %v, want %v", err, ErrSignatureInvalid)
	}
}
