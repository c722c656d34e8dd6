package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := DeriveKey("passphrase", salt)
	k2 := DeriveKey("passphrase", salt)
	if len(k1) != keySize {
		t.Fatalf("key length = %d, want %d", len(k1), keySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same inputs produced different keys")
	}
	if bytes.Equal(k1, DeriveKey("other", salt)) {
		t.Error("different passphrases produced the same key")
	}
}

func TestSealOpen(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"sqlite header", []byte("SQLite format 3\x00 and some pages")},
		{"empty", []byte{}},
		{"binary", bytes.Repeat([]byte{0, 1, 2, 255}, 1024)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Seal(tt.plaintext, "correct horse")
			if err != nil {
				t.Fatalf("seal: %v", err)
			}
			if !bytes.HasPrefix(sealed, magic) {
				t.Error("sealed output missing magic prefix")
			}
			got, err := Open(sealed, "correct horse")
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(tt.plaintext))
			}
		})
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, _ := Seal([]byte("same"), "pw")
	b, _ := Seal([]byte("same"), "pw")
	if bytes.Equal(a, b) {
		t.Error("two seals of the same input are identical")
	}
}

func TestOpenFailures(t *testing.T) {
	sealed, err := Seal([]byte("pantry data"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff

	badSalt := append([]byte(nil), sealed...)
	badSalt[len(magic)] ^= 0xff

	tests := []struct {
		name   string
		data   []byte
		pass   string
		target error
	}{
		{"wrong passphrase", sealed, "wrong", ErrWrongPassword},
		{"tampered ciphertext", tampered, "right", ErrWrongPassword},
		{"tampered salt", badSalt, "right", ErrWrongPassword},
		{"too short", sealed[:10], "right", ErrNotSnapshot},
		{"plain sqlite file", []byte("SQLite format 3\x00...................................."), "right", ErrNotSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.data, tt.pass)
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}
