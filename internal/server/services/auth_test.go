package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server/auth"
	"github.com/dmitrijs2005/leftoverchef/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc      *AuthService
	rm       *fakeRepoManager
	lockouts *memLockout
	tokens   *auth.TokenService
	mock     sqlmock.Sqlmock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	lo := newMemLockout()
	tokens := auth.NewTokenService("k", time.Hour)
	cfg := &config.Config{LockoutMaxAttempts: 3, LockoutWindow: time.Minute}

	svc := NewAuthService(db, rm, tokens, lo, cfg, logging.Nop{})
	svc.hasher = plainHasher{}
	return &authFixture{svc: svc, rm: rm, lockouts: lo, tokens: tokens, mock: mock}
}

func (f *authFixture) register(t *testing.T, name, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return res
}

func TestRegister_TokenResolvesToUser(t *testing.T) {
	f := newAuthFixture(t)

	res := f.register(t, "  Ann  ", " A@X.com ", "secret1")

	assert.Equal(t, "Ann", res.User.Name)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.NotEmpty(t, res.User.ID)

	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.ID)
	assert.Equal(t, "a@x.com", id.Email)

	stored, err := f.rm.u.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", string(stored.PasswordHash))
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ann", "a@x.com", "secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Bob", Email: "A@X.COM", Password: "secret2"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	assert.Equal(t, 1, f.rm.u.count())
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []RegisterInput{
		{Name: "A", Email: "a@x.com", Password: "secret1"},
		{Name: "   ", Email: "a@x.com", Password: "secret1"},
		{Name: string(make([]byte, 51)), Email: "a@x.com", Password: "secret1"},
		{Name: "Ann", Email: "not-an-email", Password: "secret1"},
		{Name: "Ann", Email: "", Password: "secret1"},
		{Name: "Ann", Email: "a@x.com", Password: "12345"},
	}
	for _, in := range cases {
		_, err := f.svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, common.ErrValidation, "%+v", in)
	}
	assert.Equal(t, 0, f.rm.u.count())
}

func TestRegister_ValidationMessage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "a@x.com", Password: "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters long")
}

func TestRegister_LookupError(t *testing.T) {
	f := newAuthFixture(t)
	f.rm.u.getErr = errBoom

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, errBoom)
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "Ann", "a@x.com", "secret1")

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "A@x.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)

	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.ID)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ann", "a@x.com", "secret1")

	_, errPass := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "nope"})
	_, errUser := f.svc.Login(context.Background(), LoginInput{Email: "b@x.com", Password: "secret1"})

	assert.ErrorIs(t, errPass, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errUser, common.ErrInvalidCredentials)
	assert.Equal(t, errPass.Error(), errUser.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin_Lockout(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ann", "a@x.com", "secret1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "bad"})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)

	// the window passes
	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	st, _ := f.lockouts.Get(ctx, "a@x.com")
	assert.Zero(t, st.FailedCount)
}

func TestLogin_LockoutStoreDownDoesNotBlock(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ann", "a@x.com", "secret1")
	f.lockouts.err = errors.New("redis down")

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "bad"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestGetByID(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "Ann", "a@x.com", "secret1")

	u, err := f.svc.GetByID(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)

	_, err = f.svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func strp(s string) *string { return &s }

func TestUpdateProfile_NoFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), "u", ProfileInput{})
	assert.ErrorIs(t, err, common.ErrNoFieldsProvided)
}

func TestUpdateProfile_Invalid(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), "u", ProfileInput{Name: strp("x")})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.UpdateProfile(context.Background(), "u", ProfileInput{Email: strp("nope")})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateProfile_Success(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "Ann", "a@x.com", "secret1")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	u, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, ProfileInput{Name: strp(" Annie "), Email: strp("NEW@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "Annie", u.Name)
	assert.Equal(t, "new@x.com", u.Email)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateProfile_SameEmailIsNotTaken(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "Ann", "a@x.com", "secret1")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	u, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, ProfileInput{Email: strp("a@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "Ann", "a@x.com", "secret1")
	f.register(t, "Bob", "b@x.com", "secret2")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, ProfileInput{Email: strp("B@x.com")})
	assert.ErrorIs(t, err, common.ErrEmailTaken)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.UpdateProfile(context.Background(), "ghost", ProfileInput{Name: strp("Ghost")})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "Ann", "a@x.com", "secret1")
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, reg.User.ID, PasswordInput{CurrentPassword: "wrong", NewPassword: "secret2"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	err = f.svc.ChangePassword(ctx, reg.User.ID, PasswordInput{CurrentPassword: "secret1", NewPassword: "123"})
	assert.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, f.svc.ChangePassword(ctx, reg.User.ID, PasswordInput{CurrentPassword: "secret1", NewPassword: "secret2"}))

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret2"})
	assert.NoError(t, err)
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.hasher = auth.NewBcryptHasher()

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "a@x.com", Password: strings.Repeat("p", 73)})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "Password cannot exceed 72 bytes")
	assert.Equal(t, 0, f.rm.u.count())

	// 72 bytes is still fine; multi-byte runes count by bytes
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: "a@x.com", Password: strings.Repeat("p", 72)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = f.svc.Register(context.Background(), RegisterInput{Name: "Bob", Email: "b@x.com", Password: strings.Repeat("ж", 37)})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestChangePassword_NewPasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.hasher = auth.NewBcryptHasher()
	reg := f.register(t, "Ann", "a@x.com", "secret1")

	err := f.svc.ChangePassword(context.Background(), reg.User.ID, PasswordInput{CurrentPassword: "secret1", NewPassword: strings.Repeat("p", 73)})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "New password cannot exceed 72 bytes")
}

type countingHasher struct {
	plainHasher
	compares int
}

func (h *countingHasher) Compare(hash []byte, password string) bool {
	h.compares++
	return h.plainHasher.Compare(hash, password)
}

func TestLogin_UnknownEmailStillComparesHash(t *testing.T) {
	f := newAuthFixture(t)
	h := &countingHasher{}
	f.svc.hasher = h
	f.register(t, "Ann", "a@x.com", "secret1")

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Equal(t, 1, h.compares)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "nope"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Equal(t, 2, h.compares)
}
