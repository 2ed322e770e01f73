package paedu

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UsernamePattern constrains usernames to a letter followed by letters,
// digits, underscores or dots.
var UsernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

// Account roles, informational next to the permission bitmask.
const (
	RoleUser    = 0
	RoleStudent = 1
	RoleParent  = 2
	RoleTeacher = 3
)

// DefaultRole resolves the informational role assigned at registration from
// the permission bitmask. Administrators keep the plain user role.
func DefaultRole(perms Permission) int {
	switch {
	case perms.IsAdmin():
		return RoleUser
	case perms.Has(PermTeacher):
		return RoleTeacher
	case perms.Has(PermParent):
		return RoleParent
	case perms.Has(PermStudent):
		return RoleStudent
	default:
		return RoleUser
	}
}

// Address holds the postal address columns embedded in the users table.
type Address struct {
	Street     string `bun:"street" json:"street,omitempty"`
	City       string `bun:"city" json:"city,omitempty"`
	PostalCode string `bun:"postal_code" json:"postal_code,omitempty"`
	State      string `bun:"state" json:"state,omitempty"`
	Country    string `bun:"country" json:"country,omitempty"`
}

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Confirmed      bool       `bun:"confirmed" json:"confirmed"`
	Permissions    Permission `bun:"permissions,notnull" json:"permissions,omitempty"`
	Role           int        `bun:"role" json:"role,omitempty"`
	AvatarHash     string     `bun:"avatar_hash" json:"avatar_hash,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	Company        string     `bun:"company" json:"company,omitempty"`
	Address        Address    `bun:"embed:address_" json:"address,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Can reports whether the account bitmask contains every bit of perm.
func (u *User) Can(perm Permission) bool {
	return u.Permissions.Has(perm)
}

// IsAdmin reports whether the account carries the full admin bitmask.
func (u *User) IsAdmin() bool {
	return u.Permissions.IsAdmin()
}

// IsStudent reports whether the account role is student.
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsParent reports whether the account role is parent.
func (u *User) IsParent() bool {
	return u.Role == RoleParent
}

// IsTeacher reports whether the account role is teacher.
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Gravatar builds the avatar URL for the account email.
func (u *User) Gravatar(size int) string {
	hash := u.AvatarHash
	if hash == "" {
		hash = EmailHash(u.Email)
	}
	return fmt.Sprintf("https://secure.gravatar.com/avatar/%s?s=%d&d=identicon&r=g", hash, size)
}

// EmailHash is the md5 digest gravatar expects, computed over the
// lowercased address.
func EmailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// ValidUsername reports whether name satisfies the username pattern.
func ValidUsername(name string) bool {
	return name != "" && len(name) <= 64 && UsernamePattern.MatchString(name)
}
