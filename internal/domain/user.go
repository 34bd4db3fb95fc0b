package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// User validation errors
var (
	ErrEmptyUserID      = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrEmptyEmail       = fmt.Errorf("%w: email cannot be empty", ErrValidation)
	ErrEmptyUsername    = fmt.Errorf("%w: username cannot be empty", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least 8 characters long", ErrValidation)
	ErrPasswordTooLong  = fmt.Errorf("%w: password must be at most 72 characters long", ErrValidation)
	ErrPasswordTooWeak  = fmt.Errorf(
		"%w: password must contain at least one letter and one number",
		ErrValidation,
	)
	ErrEmptyPassword = fmt.Errorf("%w: password cannot be empty", ErrValidation)
)

const (
	// MinPasswordLength is the shortest accepted plaintext password.
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
)

// User represents a registered account. Credentials and tokens never leave
// the service in JSON; PublicProfile is what other users see.
type User struct {
	ID                  uuid.UUID `json:"id"`
	Email               string    `json:"email"`
	Username            string    `json:"username"`
	Name                string    `json:"name"`
	Password            string    `json:"-"` // Plaintext, only set while creating or changing a password
	HashedPassword      string    `json:"-"`
	ProfileImage        string    `json:"profile_image,omitempty"`
	ProfileImageDefault string    `json:"profile_image_default"`
	GoogleID            string    `json:"-"`
	GoogleAccessToken   string    `json:"-"`
	FacebookID          string    `json:"-"`
	FacebookAccessToken string    `json:"-"`
	ResetPasswordToken  string    `json:"-"`
	Tokens              []string  `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PublicProfile is the view of a user returned by profile lookups.
type PublicProfile struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a new User with a username derived from email.
// The password is kept in plaintext; the store hashes it before persisting.
func NewUser(email, name, password string) (*User, error) {
	now := time.Now().UTC()
	email = NormalizeEmail(email)
	user := &User{
		ID:                  uuid.New(),
		Email:               email,
		Username:            UsernameFromEmail(email),
		Name:                strings.TrimSpace(name),
		Password:            password,
		ProfileImageDefault: DefaultProfileImage(email),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// NewExternalUser creates a user signing in through an OAuth provider. The
// caller links the provider identity before the user is validated on save.
func NewExternalUser(email, name, imageURL string) *User {
	now := time.Now().UTC()
	email = NormalizeEmail(email)
	return &User{
		ID:                  uuid.New(),
		Email:               email,
		Username:            UsernameFromEmail(email),
		Name:                strings.TrimSpace(name),
		ProfileImage:        imageURL,
		ProfileImageDefault: DefaultProfileImage(email),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyUserID)
	}

	if u.Email == "" {
		return NewValidationError("email", "cannot be empty", ErrEmptyEmail)
	}
	if !ValidEmail(u.Email) {
		return NewValidationError("email", "invalid email format", ErrInvalidEmail)
	}

	if u.Username == "" {
		return NewValidationError("username", "cannot be empty", ErrEmptyUsername)
	}

	if u.Password != "" {
		if err := ValidatePassword(u.Password); err != nil {
			return NewValidationError("password", strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "), err)
		}
	} else if u.HashedPassword == "" && !u.HasExternalIdentity() {
		// Only OAuth accounts may exist without a local password.
		return NewValidationError("password", "cannot be empty", ErrEmptyPassword)
	}

	return nil
}

// HasExternalIdentity reports whether the user is linked to an OAuth provider.
func (u *User) HasExternalIdentity() bool {
	return u.GoogleID != "" || u.FacebookID != ""
}

// HasToken reports whether token is in the user's active token list.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// Avatar returns the uploaded profile image, or the generated default.
func (u *User) Avatar() string {
	if u.ProfileImage != "" {
		return u.ProfileImage
	}
	return u.ProfileImageDefault
}

// Profile returns the public view of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.Avatar(),
		CreatedAt:    u.CreatedAt,
	}
}

// ValidatePassword checks length and that the password mixes letters and digits.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrPasswordTooWeak
	}
	return nil
}

// ValidEmail reports whether email is a bare address with a dotted domain.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	domainPart := email[at+1:]
	dot := strings.Index(domainPart, ".")
	return dot > 0 && dot < len(domainPart)-1
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FallbackUsername is used when an email's local part has no usable characters.
const FallbackUsername = "user"

// UsernameFromEmail derives a username from the local part of an email,
// keeping only lowercase letters, digits, dots, dashes and underscores.
func UsernameFromEmail(email string) string {
	local := NormalizeEmail(email)
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}

	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return FallbackUsername
	}
	return b.String()
}

// DefaultProfileImage returns a generated avatar URL for email.
func DefaultProfileImage(email string) string {
	return "https://www.gravatar.com/avatar/" + gravatarHash(email) + "?s=200&d=identicon"
}

func gravatarHash(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email))) //nolint:gosec // gravatar addresses images by md5
	return hex.EncodeToString(sum[:])
}
