package authsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"bookex/model"
	authrepo "bookex/repository/auth"
	"bookex/util/apperr"
	"bookex/util/hash"
	jwtutil "bookex/util/jwt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type mockRepo struct {
	byEmailFn       func(ctx context.Context, email string) (*model.User, error)
	createFn        func(ctx context.Context, u *model.User) error
	createProfileFn func(ctx context.Context, userID int64, role model.Role) error
}

var _ authrepo.Repo = (*mockRepo)(nil)

func (m *mockRepo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, nil
	}
	return m.byEmailFn(ctx, email)
}

func (m *mockRepo) Create(ctx context.Context, tx *sql.Tx, u *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

func (m *mockRepo) CreateProfile(ctx context.Context, tx *sql.Tx, userID int64, role model.Role) error {
	if m.createProfileFn == nil {
		return nil
	}
	return m.createProfileFn(ctx, userID, role)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	h, err := hash.HashPassword(plain)
	require.NoError(t, err)
	return h
}

const secret = "test-secret"

// --- tests ---

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	var profileRole model.Role
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			u.ID = 42
			return nil
		},
		createProfileFn: func(ctx context.Context, userID int64, role model.Role) error {
			require.Equal(t, int64(42), userID)
			profileRole = role
			return nil
		},
	}
	svc := New(fakeTx{}, m, secret, 24)

	req := model.RegisterReq{
		FirstName: "Halim",
		LastName:  "Iskandar",
		Email:     "USER@Example.COM",
		Username:  "halim",
		Password:  "supersecret",
	}

	u, tok, err := svc.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, int64(42), u.ID)
	require.Equal(t, "user@example.com", u.Email)
	require.Equal(t, model.RoleRegular, u.Role)
	require.Equal(t, model.RoleRegular, profileRole)
	require.True(t, hash.Check(u.PasswordHash, "supersecret"))

	claims, err := jwtutil.ParseAuth("Bearer "+tok, secret)
	require.NoError(t, err)
	id, err := jwtutil.Subject(claims)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, "Regular", claims["role"])
}

func TestRegister_WriterRole(t *testing.T) {
	var profileRole model.Role
	m := &mockRepo{
		createProfileFn: func(ctx context.Context, userID int64, role model.Role) error {
			profileRole = role
			return nil
		},
	}
	_, _, err := New(fakeTx{}, m, secret, 24).Register(context.Background(), model.RegisterReq{
		Email: "w@example.com", Username: "writer", Password: "123456", Role: "Writer",
	})
	require.NoError(t, err)
	require.Equal(t, model.RoleWriter, profileRole)
}

func TestRegister_BadInput(t *testing.T) {
	svc := New(fakeTx{}, &mockRepo{}, secret, 24)

	for _, req := range []model.RegisterReq{
		{Email: " ", Username: "user", Password: "123456"},
		{Email: "a@b.c", Username: "u", Password: "123456"},
		{Email: "a@b.c", Username: "user", Password: "123"},
		{Email: "a@b.c", Username: "user", Password: "123456", Role: "Admin"},
	} {
		_, _, err := svc.Register(context.Background(), req)
		require.Equal(t, apperr.BadInput, apperr.CodeOf(err), "%+v", req)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 9, Email: email}, nil
		},
	}
	_, _, err := New(fakeTx{}, m, secret, 24).Register(context.Background(), model.RegisterReq{
		Email: "taken@example.com", Username: "halim", Password: "123456",
	})
	require.Equal(t, apperr.Conflict, apperr.CodeOf(err))
	require.Equal(t, "email_taken", apperr.ReasonOf(err))
}

func TestRegister_UniqueViolationMapped(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return fmt.Errorf("insert: %w", &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "users_username_key",
			})
		},
	}
	_, _, err := New(fakeTx{}, m, secret, 24).Register(context.Background(), model.RegisterReq{
		Email: "ok@example.com", Username: "dupe", Password: "123456",
	})
	require.Equal(t, "username_taken", apperr.ReasonOf(err))
}

func TestRegister_CreateError(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			return errors.New("db down")
		},
	}
	_, _, err := New(fakeTx{}, m, secret, 24).Register(context.Background(), model.RegisterReq{
		Email: "ok@example.com", Username: "ok_user", Password: "123456",
	})
	require.Error(t, err)
	require.Equal(t, apperr.Code(""), apperr.CodeOf(err))
}

func TestLogin_Success(t *testing.T) {
	pw := "supersecret"
	hashed := mustHash(t, pw)

	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           7,
				Email:        "user@example.com",
				Username:     "halim",
				PasswordHash: hashed,
				Role:         model.RolePublisher,
			}, nil
		},
	}
	u, tok, err := New(fakeTx{}, m, secret, 24).Login(context.Background(), model.LoginReq{
		Email:    "User@Example.com",
		Password: pw,
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)

	claims, err := jwtutil.ParseAuth(tok, secret)
	require.NoError(t, err)
	require.Equal(t, "Publisher", claims["role"])
}

func TestLogin_BadInput(t *testing.T) {
	_, _, err := New(fakeTx{}, &mockRepo{}, secret, 24).Login(context.Background(), model.LoginReq{Email: " "})
	require.Equal(t, apperr.BadInput, apperr.CodeOf(err))
}

func TestLogin_UserNotFound(t *testing.T) {
	_, _, err := New(fakeTx{}, &mockRepo{}, secret, 24).Login(context.Background(), model.LoginReq{
		Email:    "missing@example.com",
		Password: "whatever",
	})
	require.Equal(t, apperr.Unauthenticated, apperr.CodeOf(err))
}

func TestLogin_WrongPassword(t *testing.T) {
	hashed := mustHash(t, "correct-password")
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 101, PasswordHash: hashed}, nil
		},
	}
	_, _, err := New(fakeTx{}, m, secret, 24).Login(context.Background(), model.LoginReq{
		Email:    "user@example.com",
		Password: "wrong-password",
	})
	require.Equal(t, "invalid_credentials", apperr.ReasonOf(err))
}
