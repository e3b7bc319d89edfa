package auth

import (
	"strings"
	"testing"
)

func TestSessionCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewSessionCodec("test-secret")

	sessionID := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	encoded, err := codec.Encode(sessionID)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if encoded == sessionID {
		t.Error("encoded value should not equal plain session ID")
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded != sessionID {
		t.Errorf("decoded = %q, want %q", decoded, sessionID)
	}
}

func TestSessionCodec_Decode_TamperedValueFails(t *testing.T) {
	codec := NewSessionCodec("test-secret")

	encoded, err := codec.Encode("session-id")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	// 末尾に追記して署名を破壊する
	tampered := encoded + "AA"
	if _, err := codec.Decode(tampered); err == nil {
		t.Error("expected error for tampered value")
	}
}

func TestSessionCodec_Decode_GarbageFails(t *testing.T) {
	codec := NewSessionCodec("test-secret")

	if _, err := codec.Decode("not-a-valid-cookie-value"); err == nil {
		t.Error("expected error for garbage value")
	}
}

func TestSessionCodec_DifferentSecretsCannotDecode(t *testing.T) {
	codecA := NewSessionCodec("secret-a")
	codecB := NewSessionCodec("secret-b")

	encoded, err := codecA.Encode("session-id")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	if _, err := codecB.Decode(encoded); err == nil {
		t.Error("expected decode with different secret to fail")
	}
}

func TestSessionCodec_EncodeProducesCookieSafeValue(t *testing.T) {
	codec := NewSessionCodec("test-secret")

	encoded, err := codec.Encode("session-id")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	for _, c := range []string{";", ",", " ", "\n"} {
		if strings.Contains(encoded, c) {
			t.Errorf("encoded value contains cookie-unsafe character %q", c)
		}
	}
}
