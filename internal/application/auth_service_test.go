package application

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/memory"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

func newTestLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, &buf
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	logger, _ := newTestLogger()
	return NewAuthService(memory.NewUserRepository(), helpers.NewJWTManager("test-secret", time.Hour), logger, 6)
}

func TestRegisterLoginValidate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t)

	uid, err := s.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	res, err := s.Login(ctx, "ann@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(time.Now()))
	assert.Equal(t, uid, res.User.ID)
	assert.Equal(t, "Ann", res.User.Name)

	id, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)
}

func TestRegister_DuplicateEmailAnyCasing(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t)

	_, err := s.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	_, err = s.Register(ctx, "Ann Again", "ANN@X.Com", "another1")
	assert.ErrorIs(t, err, ErrConflict)

	// The first account still logs in with its original password.
	_, err = s.Login(ctx, "ann@x.com", "secret1")
	assert.NoError(t, err)
	_, err = s.Login(ctx, "ann@x.com", "another1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t)

	cases := []struct {
		name, email, password, field string
	}{
		{"", "a@x.com", "secret1", "name"},
		{"   ", "a@x.com", "secret1", "name"},
		{"A", "", "secret1", "email"},
		{"A", "not-an-email", "secret1", "email"},
		{"A", "a@x.com", "short", "password"},
		{"A", "a@x.com", strings.Repeat("p", 73), "password"},
	}
	for _, tc := range cases {
		_, err := s.Register(ctx, tc.name, tc.email, tc.password)
		require.ErrorIs(t, err, ErrValidation)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, tc.field, ve.Field)
	}
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t)
	_, err := s.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	_, errUnknown := s.Login(ctx, "bob@x.com", "secret1")
	_, errWrong := s.Login(ctx, "ann@x.com", "wrong-pass")

	assert.ErrorIs(t, errUnknown, ErrUnauthenticated)
	assert.ErrorIs(t, errWrong, ErrUnauthenticated)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t)
	_, err := s.Register(ctx, "Ann", "Ann@X.com", "secret1")
	require.NoError(t, err)

	_, err = s.Login(ctx, "ann@x.COM", "secret1")
	assert.NoError(t, err)
}

func TestValidateToken_Rejections(t *testing.T) {
	s := newAuthService(t)

	expired := helpers.NewJWTManager("test-secret", -time.Minute)
	tok, _, err := expired.Generate("u1")
	require.NoError(t, err)
	_, err = s.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other := helpers.NewJWTManager("other-secret", time.Hour)
	tok, _, err = other.Generate("u1")
	require.NoError(t, err)
	_, err = s.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	for _, bad := range []string{"", "garbage", "a.b.c"} {
		_, err = s.ValidateToken(bad)
		assert.ErrorIs(t, err, ErrUnauthenticated, bad)
	}
}

func TestRegister_NeverStoresPlaintext(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	logger, _ := newTestLogger()
	s := NewAuthService(users, helpers.NewJWTManager("k", time.Hour), logger, 6)

	_, err := s.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	u, err := users.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, helpers.CompareHashAndPassword(u.PasswordHash, "secret1"))
}

type brokenUsers struct{ err error }

func (b brokenUsers) Create(context.Context, *entity.User) error { return b.err }
func (b brokenUsers) GetByID(context.Context, string) (*entity.User, error) {
	return nil, b.err
}
func (b brokenUsers) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, b.err
}

func TestAuth_StoreFailureIsServerErrorAndLogged(t *testing.T) {
	logger, buf := newTestLogger()
	s := NewAuthService(brokenUsers{err: errors.New("connection reset")}, helpers.NewJWTManager("k", time.Hour), logger, 6)
	ctx := helpers.WithRequestID(context.Background(), "req-1")

	_, err := s.Register(ctx, "Ann", "ann@x.com", "secret1")
	assert.ErrorIs(t, err, ErrServer)
	assert.NotContains(t, err.Error(), "connection reset")

	_, err = s.Login(ctx, "ann@x.com", "secret1")
	assert.ErrorIs(t, err, ErrServer)

	out := buf.String()
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, `"operation":"login"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.NotContains(t, out, "secret1")
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t)
	uid, err := s.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	p, err := s.Me(ctx, Identity{UserID: uid})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", p.Email)

	_, err = s.Me(ctx, Identity{UserID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}
