package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
)

const defaultAccessTTL = time.Hour

var errInvalidClient = common.NewAppError("INVALID_CLIENT", "invalid client credentials", http.StatusUnauthorized, nil)

type clientQueries interface {
	GetAPIClientByClientID(ctx context.Context, clientID string) (db.APIClient, error)
	TouchAPIClient(ctx context.Context, id uuid.UUID) error
}

// Service issues and verifies API client access tokens.
type Service struct {
	queries   clientQueries
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
}

// Config configures the auth service.
type Config struct {
	Queries        clientQueries
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// TokenResult is returned by a successful client credentials exchange.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        Role      `json:"role"`
	CompanyID   string    `json:"company_id"`
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-invoice"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "invoice-api"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		queries:   cfg.Queries,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// HashSecret hashes a client secret for storage in api_clients.secret_hash.
func HashSecret(secret string) (string, error) {
	return argon2id.CreateHash(secret, argon2id.DefaultParams)
}

// IssueToken exchanges client credentials for an access token.
func (s *Service) IssueToken(ctx context.Context, clientID, clientSecret string) (TokenResult, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return TokenResult{}, errInvalidClient
	}
	client, err := s.queries.GetAPIClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenResult{}, errInvalidClient
		}
		return TokenResult{}, fmt.Errorf("load api client: %w", err)
	}
	if !client.Active {
		return TokenResult{}, errInvalidClient
	}
	ok, err := argon2id.ComparePasswordAndHash(clientSecret, client.SecretHash)
	if err != nil || !ok {
		return TokenResult{}, errInvalidClient
	}
	role := Role(client.Role)
	if !role.Valid() {
		return TokenResult{}, errInvalidClient
	}

	principal := Principal{ClientID: client.ClientID, CompanyID: client.CompanyID.String(), Role: role}
	token, expiresAt, err := s.signAccessToken(principal)
	if err != nil {
		return TokenResult{}, fmt.Errorf("sign access token: %w", err)
	}
	if err := s.queries.TouchAPIClient(ctx, client.ID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("client_id", client.ClientID).Msg("touch api client")
	}
	return TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Role:        role,
		CompanyID:   principal.CompanyID,
	}, nil
}

// ParseAccessToken validates an access token and returns its principal.
func (s *Service) ParseAccessToken(token string) (Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}

	p := Principal{ClientID: parsed.Subject()}
	if v, ok := parsed.Get(claimCompany); ok {
		p.CompanyID, _ = v.(string)
	}
	if v, ok := parsed.Get(claimRole); ok {
		role, _ := v.(string)
		p.Role = Role(role)
	}
	if p.ClientID == "" || !p.Role.Valid() {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, nil)
	}
	if _, err := uuid.Parse(p.CompanyID); err != nil {
		return Principal{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return p, nil
}

func (s *Service) signAccessToken(p Principal) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(p.ClientID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(claimCompany, p.CompanyID).
		Claim(claimRole, string(p.Role)).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}
