// Package validation checks form input and returns user-facing messages in a fixed order.
package validation

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/utils"
)

const (
	MsgUsernameRequired = "Username is required"
	MsgUsernameTooShort = "Username must be at least 3 characters"
	MsgUsernameTooLong  = "Username must be at most 10 characters"
	MsgUsernameCharset  = "Username must only contain letters and numbers"
	MsgUsernameTaken    = "That username is already taken"
	MsgPasswordRequired = "Password is required"
	MsgPasswordTooShort = "Password must be at least 3 characters"
	MsgInvalidLogin     = "Invalid Credentials"
	MsgTitleRequired    = "You must provide a title"
	MsgBodyRequired     = "You must provide a body"

	usernameMin = 3
	usernameMax = 10
	passwordMin = 3
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// UserLookup finds a user by name, returning nil, nil when there is none.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Registration validates a sign-up form. It returns the trimmed username and every
// violated rule; err is only set when the lookup itself fails.
func Registration(ctx context.Context, lookup UserLookup, username, password string) (string, []string, error) {
	username = strings.TrimSpace(username)
	errs := make([]string, 0)

	if username == "" {
		errs = append(errs, MsgUsernameRequired)
	} else {
		n := utf8.RuneCountInString(username)
		if n < usernameMin {
			errs = append(errs, MsgUsernameTooShort)
		}
		if n > usernameMax {
			errs = append(errs, MsgUsernameTooLong)
		}
		if !usernamePattern.MatchString(username) {
			errs = append(errs, MsgUsernameCharset)
		}
		existing, err := lookup.FindByUsername(ctx, username)
		if err != nil {
			return username, errs, err
		}
		if existing != nil {
			errs = append(errs, MsgUsernameTaken)
		}
	}

	if password == "" {
		errs = append(errs, MsgPasswordRequired)
	} else if utf8.RuneCountInString(password) < passwordMin {
		errs = append(errs, MsgPasswordTooShort)
	}

	return username, errs, nil
}

// Login checks credentials. Every failure yields the same single message so the
// response never tells which part was wrong.
func Login(ctx context.Context, lookup UserLookup, hasher *utils.PasswordHasher, username, password string) (*models.User, []string, error) {
	invalid := []string{MsgInvalidLogin}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid, nil
	}

	user, err := lookup.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !hasher.Verify(password, user.PasswordHash) {
		return nil, invalid, nil
	}
	return user, nil, nil
}

// Post strips markup from title and body, trims them, and reports empty fields.
func Post(title, body string) (string, string, []string) {
	title = utils.StripHTML(title)
	body = utils.StripHTML(body)

	errs := make([]string, 0)
	if title == "" {
		errs = append(errs, MsgTitleRequired)
	}
	if body == "" {
		errs = append(errs, MsgBodyRequired)
	}
	return title, body, errs
}
