package token

import (
	"context"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tenantcore/internal/secrets"
)

func testCodec() *Codec {
	return NewCodec("tenantcore", "tenantcore-api", "jwt_signing",
		secrets.Static{"jwt_signing": []byte("test-secret-0123456789abcdef")})
}

func TestSignAndVerify(t *testing.T) {
	c := testCodec()
	ctx := context.Background()

	raw, claims, err := c.Sign(ctx, TypeAccess, "jti-1", "user-1", "a@x.com", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if raw == "" || claims.JTI() != "jti-1" {
		t.Fatalf("unexpected sign result: %q %+v", raw, claims)
	}

	got, ok, err := c.Verify(ctx, raw)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
	if got.Subject != "user-1" || got.Email != "a@x.com" || got.Type != TypeAccess {
		t.Fatalf("claims mismatch: %+v", got)
	}
}

func TestVerifyExpiredIsSoft(t *testing.T) {
	c := testCodec()
	ctx := context.Background()

	raw, _, err := c.Sign(ctx, TypeAccess, "jti-exp", "user-1", "", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Verify(ctx, raw)
	if err != nil {
		t.Fatalf("expired token must be soft negative, got hard error: %v", err)
	}
	if ok || got != nil {
		t.Fatalf("expired token must not verify: ok=%v claims=%+v", ok, got)
	}
}

func TestVerifyWrongIssuerIsSoft(t *testing.T) {
	src := secrets.Static{"jwt_signing": []byte("test-secret-0123456789abcdef")}
	other := NewCodec("someone-else", "tenantcore-api", "jwt_signing", src)
	c := testCodec()
	ctx := context.Background()

	raw, _, err := other.Sign(ctx, TypeAccess, "jti-iss", "user-1", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := c.Verify(ctx, raw)
	if err != nil {
		t.Fatalf("issuer mismatch must be soft, got: %v", err)
	}
	if ok {
		t.Fatal("issuer mismatch must not verify")
	}
}

func TestVerifyMalformedIsHard(t *testing.T) {
	c := testCodec()
	ctx := context.Background()

	for _, raw := range []string{"", "garbage", "a.b", "x.y.z"} {
		_, ok, err := c.Verify(ctx, raw)
		if ok {
			t.Fatalf("malformed %q must not verify", raw)
		}
		if err == nil {
			t.Fatalf("malformed %q must be a hard error", raw)
		}
	}
}

func TestVerifyTamperedSignatureIsHard(t *testing.T) {
	c := testCodec()
	ctx := context.Background()

	raw, _, err := c.Sign(ctx, TypeAccess, "jti-t", "user-1", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(raw, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

	_, ok, err := c.Verify(ctx, tampered)
	if ok {
		t.Fatal("tampered token must not verify")
	}
	if err == nil {
		t.Fatal("tampered signature must be a hard error")
	}
}

func TestVerifySecretResolutionFailureIsHard(t *testing.T) {
	good := testCodec()
	ctx := context.Background()

	raw, _, err := good.Sign(ctx, TypeAccess, "jti-s", "user-1", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	broken := NewCodec("tenantcore", "tenantcore-api", "missing", secrets.Static{})
	_, ok, err := broken.Verify(ctx, raw)
	if ok {
		t.Fatal("must not verify without secret")
	}
	if err == nil {
		t.Fatal("secret resolution failure must be a hard error")
	}
}

func TestSignSecretResolutionFailure(t *testing.T) {
	broken := NewCodec("tenantcore", "tenantcore-api", "missing", secrets.Static{})
	if _, _, err := broken.Sign(context.Background(), TypeAccess, "j", "u", "", time.Minute); err == nil {
		t.Fatal("expected hard error when the secret cannot be resolved")
	}
}

func TestVerifyRejectsAlgorithmConfusion(t *testing.T) {
	c := testCodec()
	ctx := context.Background()

	// Token "none" con claims plausibles: debe ser rechazo duro.
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, jwtv5.MapClaims{
		"iss": "tenantcore", "aud": "tenantcore-api", "sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(), "type": TypeAccess,
	})
	raw, err := tk.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := c.Verify(ctx, raw)
	if ok {
		t.Fatal("alg=none must not verify")
	}
	if err == nil {
		t.Fatal("alg=none must be a hard error")
	}
}
