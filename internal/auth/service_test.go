// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/angelamos/nestfund/internal/core"
)

// fakeHolders serves a single registered holder by email.
type fakeHolders struct {
	holder HolderInfo
}

func (f *fakeHolders) GetByEmail(
	ctx context.Context,
	email string,
) (*HolderInfo, error) {
	if email != f.holder.Email {
		return nil, fmt.Errorf("get holder: %w", core.ErrNotFound)
	}
	h := f.holder
	return &h, nil
}

func (f *fakeHolders) GetByID(
	ctx context.Context,
	id string,
) (*HolderInfo, error) {
	if id != f.holder.ID {
		return nil, fmt.Errorf("get holder: %w", core.ErrNotFound)
	}
	h := f.holder
	return &h, nil
}

func (f *fakeHolders) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*HolderInfo, error) {
	return nil, fmt.Errorf("create holder: %w", core.ErrDuplicateKey)
}

func (f *fakeHolders) IncrementTokenVersion(
	ctx context.Context,
	holderID string,
) error {
	return nil
}

func (f *fakeHolders) UpdatePassword(
	ctx context.Context,
	holderID, passwordHash string,
) error {
	return nil
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	hash, err := core.HashPassword("right-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	svc := NewService(nil, nil, &fakeHolders{
		holder: HolderInfo{
			ID:           "holder-1",
			Email:        "holder@example.com",
			PasswordHash: hash,
		},
	}, nil)

	ctx := context.Background()

	// Unknown email and wrong password collapse into one error so the
	// response cannot be used to enumerate accounts.
	_, err = svc.Login(ctx, LoginRequest{
		Email:    "nobody@example.com",
		Password: "right-password",
	}, "", "")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("Login() unknown email = %v, want ErrInvalidCredentials", err)
	}

	_, err = svc.Login(ctx, LoginRequest{
		Email:    "holder@example.com",
		Password: "wrong-password",
	}, "", "")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("Login() wrong password = %v, want ErrInvalidCredentials", err)
	}
}
