package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func buildToken(t *testing.T, issuer string, nbf, exp time.Time) jwt.Token {
	t.Helper()
	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{"aud"}).
		Subject("client").
		IssuedAt(nbf).
		NotBefore(nbf).
		Expiration(exp).
		Claim(claimCompany, "6a0f8d5e-2c4b-4c55-9d1f-7e3a9b2c1d00").
		Claim(claimRole, "company").
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return token
}

func TestTokenValidatorValidateSuccess(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", ClockSkew: time.Second, Algorithm: jwa.HS256}
	if err := validator.Validate(buildToken(t, "issuer", now, now.Add(time.Minute)), jwa.HS256, now); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTokenValidatorIssuerMismatch(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	if err := validator.Validate(buildToken(t, "other", now, now.Add(time.Minute)), jwa.HS256, now); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestTokenValidatorExpiry(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	token := buildToken(t, "issuer", now.Add(-2*time.Hour), now.Add(-time.Minute))
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected expiration error")
	}
}

func TestTokenValidatorRequiresCompanyClaim(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		Subject("client").
		Expiration(now.Add(time.Minute)).
		Claim(claimRole, "company").
		Build()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected missing company claim error")
	}
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	if err := validator.Validate(buildToken(t, "issuer", now, now.Add(time.Minute)), jwa.RS256, now); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}
