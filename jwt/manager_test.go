package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"
)

func newEdManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	m, err := NewManager(Config{
		AccessTTL:     ttl,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "authcore",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newEdManager(t, 15*time.Minute)

	token, err := m.Issue("user-1", "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Role != "member" {
		t.Fatalf("role = %q", claims.Role)
	}
	if claims.Issuer != "authcore" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m := newEdManager(t, time.Nanosecond)

	token, err := m.Issue("user-1", "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expired token should fail to parse")
	}
}

func TestParseWrongKey(t *testing.T) {
	a := newEdManager(t, 15*time.Minute)
	b := newEdManager(t, 15*time.Minute)

	token, err := a.Issue("user-1", "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := b.Parse(token); err == nil {
		t.Fatal("token signed with another key should fail")
	}
}

func TestParseTamperedToken(t *testing.T) {
	m := newEdManager(t, 15*time.Minute)

	token, err := m.Issue("user-1", "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	if _, err := m.Parse(strings.Join(parts, ".")); err == nil {
		t.Fatal("tampered payload should fail signature verification")
	}
}

func TestIssueEmptyUserID(t *testing.T) {
	m := newEdManager(t, 15*time.Minute)

	if _, err := m.Issue("", "member"); err == nil {
		t.Fatal("empty user id should be rejected")
	}
}

func TestVerifyOnlyManager(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
	})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	verifier, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PublicKey:     priv.Public().(ed25519.PublicKey),
	})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	token, err := signer.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Parse(token); err != nil {
		t.Fatalf("verify-only parse: %v", err)
	}

	if _, err := verifier.Issue("user-1", "admin"); err == nil {
		t.Fatal("verify-only manager must not sign")
	}
}

func TestRS256RoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	m, err := NewManager(Config{
		AccessTTL:  15 * time.Minute,
		PrivateKey: privPEM,
		Issuer:     "authcore",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue("user-1", "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "member" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestNewManagerValidation(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)

	if _, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv}); err == nil {
		t.Fatal("zero TTL should be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: "hs256", PrivateKey: priv}); err == nil {
		t.Fatal("symmetric method should be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("no key material should be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("junk")}); err == nil {
		t.Fatal("malformed key should be rejected")
	}
}
