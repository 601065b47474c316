package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/utils"
)

type fakeLookup struct {
	users map[string]*models.User
	err   error
	calls int
}

func (f *fakeLookup) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[username], nil
}

func newLookup(users ...*models.User) *fakeLookup {
	l := &fakeLookup{users: map[string]*models.User{}}
	for _, u := range users {
		l.users[u.Username] = u
	}
	return l
}

func TestRegistration(t *testing.T) {
	lookup := newLookup(&models.User{ID: 1, Username: "taken"})

	tests := []struct {
		name     string
		username string
		password string
		want     []string
	}{
		{"valid", "alice1", "abcdef", []string{}},
		{"trimmed", "  alice1 ", "abc", []string{}},
		{"blank both", "   ", "", []string{MsgUsernameRequired, MsgPasswordRequired}},
		{"too short", "ab", "abc", []string{MsgUsernameTooShort}},
		{"too long", "abcdefghijk", "abc", []string{MsgUsernameTooLong}},
		{"max length", "abcdefghij", "abc", []string{}},
		{"charset", "al ice", "abc", []string{MsgUsernameCharset}},
		{"short and charset", "a!", "abc", []string{MsgUsernameTooShort, MsgUsernameCharset}},
		{"non-ascii", "ålice", "abc", []string{MsgUsernameCharset}},
		{"taken", "taken", "abc", []string{MsgUsernameTaken}},
		{"short password", "alice1", "ab", []string{MsgPasswordTooShort}},
		{"everything", "a_", "x", []string{MsgUsernameTooShort, MsgUsernameCharset, MsgPasswordTooShort}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs, err := Registration(context.Background(), lookup, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestRegistration_ReturnsTrimmedUsername(t *testing.T) {
	name, _, err := Registration(context.Background(), newLookup(), " bob ", "abc")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)
}

func TestRegistration_BlankUsernameSkipsLookup(t *testing.T) {
	lookup := newLookup()
	_, _, err := Registration(context.Background(), lookup, "", "abc")
	require.NoError(t, err)
	assert.Zero(t, lookup.calls)
}

func TestRegistration_LookupFailure(t *testing.T) {
	boom := errors.New("db down")
	_, _, err := Registration(context.Background(), &fakeLookup{err: boom}, "alice1", "abc")
	assert.ErrorIs(t, err, boom)
}

func TestLogin(t *testing.T) {
	hasher := utils.NewPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("abcdef")
	require.NoError(t, err)
	alice := &models.User{ID: 3, Username: "alice1", PasswordHash: hash}
	lookup := newLookup(alice)

	user, errs, err := Login(context.Background(), lookup, hasher, " alice1 ", "abcdef")
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.NotNil(t, user)
	assert.Equal(t, alice.ID, user.ID)

	failures := []struct {
		name, username, password string
	}{
		{"blank username", "  ", "abcdef"},
		{"blank password", "alice1", ""},
		{"unknown user", "nobody", "abcdef"},
		{"wrong password", "alice1", "abcdeg"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			user, errs, err := Login(context.Background(), lookup, hasher, tt.username, tt.password)
			require.NoError(t, err)
			assert.Nil(t, user)
			assert.Equal(t, []string{MsgInvalidLogin}, errs)
		})
	}
}

func TestLogin_LookupFailure(t *testing.T) {
	boom := errors.New("db down")
	_, _, err := Login(context.Background(), &fakeLookup{err: boom}, utils.NewPasswordHasher(bcrypt.MinCost), "alice1", "abc")
	assert.ErrorIs(t, err, boom)
}

func TestPost(t *testing.T) {
	title, body, errs := Post(" Hello ", "<script>x</script>Body")
	assert.Equal(t, "Hello", title)
	assert.Equal(t, "Body", body)
	assert.Empty(t, errs)

	_, _, errs = Post("", "")
	assert.Equal(t, []string{MsgTitleRequired, MsgBodyRequired}, errs)

	_, _, errs = Post("<b></b>", "body")
	assert.Equal(t, []string{MsgTitleRequired}, errs)

	_, _, errs = Post("title", "<script>only script</script>")
	assert.Equal(t, []string{MsgBodyRequired}, errs)
}
