package services

import (
	"context"
	"errors"
	"testing"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/ports"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, ports.RegisterRequest{Email: " Ada@Example.com ", Password: "secret1", Name: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "ada@example.com" || resp.Token == "" || resp.RefreshToken == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 7*24*3600 {
		t.Errorf("token type %q expires %d", resp.TokenType, resp.ExpiresIn)
	}

	if _, err := env.auth.Register(ctx, ports.RegisterRequest{Email: "ADA@example.com", Password: "secret2", Name: "Other"}); !errors.Is(err, entities.ErrConflict) {
		t.Errorf("duplicate register err = %v, want conflict", err)
	}

	login, err := env.auth.Login(ctx, ports.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := env.auth.CurrentUser(ctx, login.Token)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != resp.User.ID {
		t.Errorf("current user = %s, want %s", user.ID, resp.User.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.auth.Register(ctx, ports.RegisterRequest{Email: "ada@example.com", Password: "secret1", Name: "Ada"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := env.auth.Login(ctx, ports.LoginRequest{Email: "ada@example.com", Password: "nope"})
	_, unknownEmail := env.auth.Login(ctx, ports.LoginRequest{Email: "who@example.com", Password: "secret1"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, entities.ErrUnauthenticated) {
			t.Errorf("err = %v, want unauthenticated", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.Register(context.Background(), ports.RegisterRequest{Email: "not-an-email", Password: "secret1", Name: "Ada"})
	if !errors.Is(err, entities.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.auth.Register(ctx, ports.RegisterRequest{Email: "ada@example.com", Password: "secret1", Name: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rotated, err := env.auth.RefreshToken(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == resp.RefreshToken {
		t.Error("refresh token should rotate")
	}

	if _, err := env.auth.RefreshToken(ctx, resp.RefreshToken); !errors.Is(err, entities.ErrUnauthenticated) {
		t.Errorf("reuse err = %v, want unauthenticated", err)
	}

	if err := env.auth.Logout(ctx, resp.User.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.auth.RefreshToken(ctx, rotated.RefreshToken); !errors.Is(err, entities.ErrUnauthenticated) {
		t.Errorf("refresh after logout err = %v, want unauthenticated", err)
	}
}

func TestCurrentUserRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "eyJhbGciOiJIUzI1NiJ9.e30.invalid"} {
		if _, err := env.auth.CurrentUser(ctx, token); !errors.Is(err, entities.ErrUnauthenticated) {
			t.Errorf("token %q: err = %v, want unauthenticated", token, err)
		}
	}
}
