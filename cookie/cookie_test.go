package cookie

import (
	"net"
	"testing"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatal(err)
	}
	serverMAC := mac("00:11:22:33:44:55")
	peerMAC := mac("02:00:00:00:00:01")

	tok, err := Generate(secret, serverMAC, peerMAC)
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != Length {
		t.Fatalf("got token length %d, want %d", len(tok), Length)
	}

	if err := Verify(secret, serverMAC, peerMAC, tok); err != nil {
		t.Fatalf("Verify of a freshly generated token failed: %v", err)
	}
}

func TestVerifyRejectsWrongPeer(t *testing.T) {
	secret, _ := NewSecret()
	serverMAC := mac("00:11:22:33:44:55")
	peerMAC := mac("02:00:00:00:00:01")
	otherMAC := mac("02:00:00:00:00:02")

	tok, _ := Generate(secret, serverMAC, peerMAC)

	if err := Verify(secret, serverMAC, otherMAC, tok); err == nil {
		t.Fatal("expected Verify to reject a cookie replayed from a different MAC")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	secret, _ := NewSecret()
	serverMAC := mac("00:11:22:33:44:55")
	peerMAC := mac("02:00:00:00:00:01")

	tok, _ := Generate(secret, serverMAC, peerMAC)
	tok[0] ^= 0xff

	if err := Verify(secret, serverMAC, peerMAC, tok); err == nil {
		t.Fatal("expected Verify to reject a tampered token")
	}
}

func TestVerifyRejectsWrongLength(t *testing.T) {
	secret, _ := NewSecret()
	serverMAC := mac("00:11:22:33:44:55")
	peerMAC := mac("02:00:00:00:00:01")

	if err := Verify(secret, serverMAC, peerMAC, make([]byte, 16)); err == nil {
		t.Fatal("expected Verify to reject a short token")
	}
}

func TestVerifyRejectsDifferentSecret(t *testing.T) {
	secret1, _ := NewSecret()
	secret2, _ := NewSecret()
	serverMAC := mac("00:11:22:33:44:55")
	peerMAC := mac("02:00:00:00:00:01")

	tok, _ := Generate(secret1, serverMAC, peerMAC)

	if err := Verify(secret2, serverMAC, peerMAC, tok); err == nil {
		t.Fatal("expected Verify to reject a cookie from a rebinded/different secret")
	}
}

func TestRandomCollisionBound(t *testing.T) {
	secret, _ := NewSecret()
	serverMAC := mac("00:11:22:33:44:55")
	peerMAC := mac("02:00:00:00:00:01")
	other := mac("02:00:00:00:00:02")

	for i := 0; i < 1000; i++ {
		tok, err := Generate(secret, serverMAC, peerMAC)
		if err != nil {
			t.Fatal(err)
		}
		if err := Verify(secret, serverMAC, other, tok); err == nil {
			t.Fatalf("iteration %d: cookie for one MAC verified for another", i)
		}
	}
}
