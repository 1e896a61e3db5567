package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	maxNameLen   = 100
	maxQueryLen  = 100
	maxAvatarLen = 2048
)

func ValidateRegister(name, email, password, avatarURL string) ValidationErrors {
	errs := make(ValidationErrors)

	validateName(name, errs)
	validateEmail(email, errs)
	validatePassword(password, errs)
	validateAvatar(avatarURL, errs)

	return errs
}

// ValidateProfile checks a partial profile update. Nil fields are left
// unchanged; an empty avatar clears it.
func ValidateProfile(name, avatarURL *string) ValidationErrors {
	errs := make(ValidationErrors)

	if name == nil && avatarURL == nil {
		errs.Add("body", "Nothing to update")
		return errs
	}
	if name != nil {
		validateName(*name, errs)
	}
	if avatarURL != nil {
		validateAvatar(*avatarURL, errs)
	}

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateSearch(query string) ValidationErrors {
	errs := make(ValidationErrors)

	query = strings.TrimSpace(query)
	if query == "" {
		errs.Add("q", "Search query is required")
	} else if utf8.RuneCountInString(query) > maxQueryLen {
		errs.Add("q", "Search query is too long")
	}

	return errs
}

func validateName(name string, errs ValidationErrors) {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs.Add("name", "Name is required")
	case n < 2:
		errs.Add("name", "Name must be at least 2 characters")
	case n > maxNameLen:
		errs.Add("name", "Name is too long")
	}
}

// validateAvatar accepts an empty value: the avatar is optional.
func validateAvatar(avatarURL string, errs ValidationErrors) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		return
	}
	if len(avatarURL) > maxAvatarLen {
		errs.Add("avatarUrl", "Avatar URL is too long")
	} else if u, err := url.Parse(avatarURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("avatarUrl", "Avatar URL must be an http or https URL")
	}
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
