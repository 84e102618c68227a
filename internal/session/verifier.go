package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tutorchat/internal/model"
)

var (
	ErrDisabled     = errors.New("auth provider is not configured")
	ErrInvalidToken = errors.New("invalid or expired access token")
)

type VerifierOptions struct {
	ProjectURL string
	AnonKey    string
	JWTSecret  string
	HTTPClient *http.Client
}

// Verifier turns a Supabase access token into an AuthSession. With a JWT
// secret the token is checked locally; otherwise the project's user
// endpoint is asked.
type Verifier struct {
	projectURL string
	anonKey    string
	jwtSecret  []byte
	httpClient *http.Client
}

func NewVerifier(opts VerifierOptions) *Verifier {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		projectURL: strings.TrimRight(strings.TrimSpace(opts.ProjectURL), "/"),
		anonKey:    strings.TrimSpace(opts.AnonKey),
		jwtSecret:  []byte(strings.TrimSpace(opts.JWTSecret)),
		httpClient: client,
	}
}

// Enabled reports whether both the project URL and anon key are set.
func (v *Verifier) Enabled() bool {
	return v != nil && v.projectURL != "" && v.anonKey != ""
}

type supabaseClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (v *Verifier) Verify(ctx context.Context, accessToken string) (model.AuthSession, error) {
	if !v.Enabled() {
		return model.AuthSession{}, ErrDisabled
	}
	accessToken = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(accessToken), "Bearer "))
	if accessToken == "" {
		return model.AuthSession{}, ErrInvalidToken
	}
	if len(v.jwtSecret) > 0 {
		return v.verifyLocal(accessToken)
	}
	return v.verifyRemote(ctx, accessToken)
}

func (v *Verifier) verifyLocal(accessToken string) (model.AuthSession, error) {
	claims := &supabaseClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		return v.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return model.AuthSession{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.AuthSession{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	s := model.AuthSession{Identity: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func (v *Verifier) verifyRemote(ctx context.Context, accessToken string) (model.AuthSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.projectURL+"/auth/v1/user", nil)
	if err != nil {
		return model.AuthSession{}, fmt.Errorf("build auth user request failed: %w", err)
	}
	req.Header.Set("apikey", v.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return model.AuthSession{}, fmt.Errorf("auth user request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.AuthSession{}, fmt.Errorf("read auth user response failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.AuthSession{}, ErrInvalidToken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.AuthSession{}, fmt.Errorf("auth user request returned %d", resp.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return model.AuthSession{}, fmt.Errorf("parse auth user response failed: %w", err)
	}
	if user.ID == "" {
		return model.AuthSession{}, fmt.Errorf("%w: user has no id", ErrInvalidToken)
	}
	return model.AuthSession{Identity: user.ID, Email: user.Email}, nil
}
