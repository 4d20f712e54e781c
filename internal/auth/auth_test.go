package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

type fakeUserStore struct {
	users  map[string]User
	hashes map[string][]byte
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]User{}, hashes: map[string][]byte{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, email string, hash []byte) (User, error) {
	if _, ok := f.users[email]; ok {
		return User{}, ErrUserExists
	}
	f.nextID++
	u := User{ID: "u" + strconv.Itoa(f.nextID), Email: email}
	f.users[email] = u
	f.hashes[email] = hash
	return u, nil
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (User, []byte, error) {
	u, ok := f.users[email]
	if !ok {
		return User{}, nil, errors.New("no such user")
	}
	return u, f.hashes[email], nil
}

func (f *fakeUserStore) UserByID(_ context.Context, id string) (User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, errors.New("no such user")
}

const testSecret = "0123456789abcdef0123456789abcdef"

func TestRegisterLoginParse(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), []byte(testSecret), time.Hour)

	created, err := svc.Register(ctx, "  User@Example.COM ", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Email != "user@example.com" {
		t.Fatalf("email not normalized: %q", created.Email)
	}

	token, logged, err := svc.Login(ctx, "user@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != created.ID {
		t.Fatalf("identity mismatch: %q != %q", logged.ID, created.ID)
	}

	parsed, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed != created {
		t.Fatalf("token carries %+v, want %+v", parsed, created)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), []byte(testSecret), time.Hour)

	if _, err := svc.Register(ctx, "not-an-email", "hunter22"); err == nil {
		t.Fatal("expected error for invalid email")
	}
	if _, err := svc.Register(ctx, "a@b.com", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
	if _, err := svc.Register(ctx, "a@b.com", "hunter22"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "A@B.com", "hunter22"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), []byte(testSecret), time.Hour)
	if _, err := svc.Register(ctx, "a@b.com", "hunter22"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "nobody@b.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@b.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserStore(), []byte(testSecret), time.Hour)
	if _, err := svc.Register(ctx, "a@b.com", "hunter22"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(ctx, "a@b.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.ParseToken(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: got %v", err)
	}
	if _, err := svc.ParseToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: got %v", err)
	}

	other := NewService(newFakeUserStore(), []byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	if _, err := other.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	if _, err := NewService(store, []byte(testSecret), time.Hour).Register(ctx, "a@b.com", "hunter22"); err != nil {
		t.Fatalf("register: %v", err)
	}

	svc := &Service{users: store, secret: []byte(testSecret), tokenTTL: -time.Minute}
	token, _, err := svc.Login(ctx, "a@b.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v", err)
	}
}
