// Package cookie implements the AC-Cookie anti-spoofing token: a
// stateless, MAC-bound handle the server hands out in PADO and
// demands back unchanged in PADR. The contract is integrity binding,
// not confidentiality, so the token is a keyed HMAC-SHA256 over the
// server and peer MAC addresses plus a random nonce, at a fixed
// 24-byte wire size.
package cookie

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net"
)

// Length is the wire size of an AC-Cookie tag: a 16-byte MAC
// concatenated with an 8-byte nonce.
const Length = 24

const (
	macLen   = 16
	nonceLen = 8
)

// ErrBadCookie is returned by Verify for any cookie that fails
// length, MAC, or binding checks.
var ErrBadCookie = errors.New("cookie: bad cookie")

// Secret is per-server keying material: a random value generated once
// at server startup and held for the server's lifetime.
type Secret [32]byte

// NewSecret generates fresh, uniformly random keying material.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, err
	}
	return s, nil
}

// Generate produces a fresh 24-byte AC-Cookie for peer, bound to
// serverMAC under secret.
func Generate(secret Secret, serverMAC, peerMAC net.HardwareAddr) ([]byte, error) {
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	mac := computeMAC(secret, serverMAC, peerMAC, nonce[:])

	out := make([]byte, 0, Length)
	out = append(out, mac...)
	out = append(out, nonce[:]...)
	return out, nil
}

// Verify checks that token was issued by Generate for (secret,
// serverMAC, peerMAC). It recomputes the MAC from the token's own
// nonce, so verification requires no server-side state beyond the
// secret.
func Verify(secret Secret, serverMAC, peerMAC net.HardwareAddr, token []byte) error {
	if len(token) != Length {
		return ErrBadCookie
	}
	gotMAC := token[:macLen]
	nonce := token[macLen:]

	wantMAC := computeMAC(secret, serverMAC, peerMAC, nonce)
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return ErrBadCookie
	}
	return nil
}

func computeMAC(secret Secret, serverMAC, peerMAC net.HardwareAddr, nonce []byte) []byte {
	h := hmac.New(sha256.New, secret[:])
	h.Write(serverMAC)
	h.Write(peerMAC)
	h.Write(nonce)
	return h.Sum(nil)[:macLen]
}
