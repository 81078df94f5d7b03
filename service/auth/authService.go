package authsvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"

	"bookex/model"
	authrepo "bookex/repository/auth"
	"bookex/util/apperr"
	"bookex/util/database"
	"bookex/util/hash"
	jwtutil "bookex/util/jwt"

	"github.com/jackc/pgx/v5/pgconn"
)

func errEmailTaken() error {
	return apperr.New(apperr.Conflict, "email_taken", "email already registered")
}

func errUsernameTaken() error {
	return apperr.New(apperr.Conflict, "username_taken", "username already taken")
}

func errInvalidCreds() error {
	return apperr.New(apperr.Unauthenticated, "invalid_credentials", "invalid credentials")
}

func errBadInput(msg string) error {
	return apperr.New(apperr.BadInput, "bad_input", msg)
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
}

type service struct {
	tx       database.Transactor
	ur       authrepo.Repo
	secret   string
	ttlHours int
}

func New(tx database.Transactor, ur authrepo.Repo, secret string, ttlHours int) Service {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &service{tx: tx, ur: ur, secret: secret, ttlHours: ttlHours}
}

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if !strings.Contains(email, "@") || len(username) < 3 || len(req.Password) < 6 {
		return nil, "", errBadInput("email, username (3+) and password (6+) are required")
	}
	role := model.RoleRegular
	if req.Role != "" {
		r, ok := model.ParseRole(req.Role)
		if !ok {
			return nil, "", errBadInput("unknown role")
		}
		role = r
	}

	existing, err := s.ur.ByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", errEmailTaken()
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.ur.Create(ctx, tx, u); err != nil {
			return err
		}
		return s.ur.CreateProfile(ctx, tx, u.ID, role)
	})
	if err != nil {
		if derr := mapDuplicateErr(err); derr != nil {
			return nil, "", derr
		}
		return nil, "", err
	}

	token, err := jwtutil.Issue(s.secret, u.ID, string(role), s.ttlHours)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func mapDuplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		cn := strings.ToLower(pgErr.ConstraintName)
		msg := strings.ToLower(pgErr.Message)

		if strings.Contains(cn, "users_email") || strings.Contains(msg, "email") {
			return errEmailTaken()
		}
		if strings.Contains(cn, "users_username") || strings.Contains(msg, "username") {
			return errUsernameTaken()
		}
		return errBadInput("duplicate value")
	}
	return nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", errBadInput("email and password are required")
	}

	u, err := s.ur.ByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil || !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", errInvalidCreds()
	}
	token, err := jwtutil.Issue(s.secret, u.ID, string(u.Role), s.ttlHours)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
