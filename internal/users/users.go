// Package users is the user directory: registration, credential checks and
// the lookups order creation needs for address resolution.
package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/store"
	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", store.ErrNotFound)
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError lists every problem found in a registration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid user: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Messages() []string { return e.Errors }

const (
	hashIterations = 100_000
	saltBytes      = 32
	keyBytes       = 32
	minPassword    = 8
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Directory reads and writes user records.
type Directory struct {
	store store.Store
	now   func() time.Time
}

func New(st store.Store) *Directory {
	return &Directory{store: st, now: time.Now}
}

func (d *Directory) GetByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := d.store.Get(ctx, store.Users, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return decodeUser(doc)
}

// GetByEmail returns the first user registered with email.
func (d *Directory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := d.store.FindByAttribute(ctx, store.Users, "email", strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUser(docs[0])
}

func (d *Directory) List(ctx context.Context) ([]models.User, error) {
	docs, err := d.store.List(ctx, store.Users)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

// Registration is the input of Register.
type Registration struct {
	Email       string
	Name        string
	Password    string
	PhoneNumber string
	Address     *models.Address
}

// Register validates the input, rejects duplicate emails and stores the
// user with a salted pbkdf2 hash. The email check and the insert are two
// store calls; two concurrent registrations of one email can both pass.
func (d *Directory) Register(ctx context.Context, in Registration) (*models.User, error) {
	// 1. --- Validate ---
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	var problems []string
	if in.Email == "" {
		problems = append(problems, "'email' is required")
	} else if !emailRe.MatchString(in.Email) {
		problems = append(problems, "Invalid email format")
	}
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "'name' is required")
	}
	if len(in.Password) < minPassword {
		problems = append(problems, "Password must be at least 8 characters long")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Errors: problems}
	}

	// 2. --- Unique email ---
	if _, err := d.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	// 3. --- Hash ---
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	// 4. --- Save ---
	u := models.User{
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hashPassword(in.Password, salt),
		Salt:         base64.StdEncoding.EncodeToString(salt),
		Address:      in.Address,
		PhoneNumber:  in.PhoneNumber,
		CreatedAt:    d.now().UTC(),
	}
	doc, err := store.Encode(u)
	if err != nil {
		return nil, err
	}
	delete(doc, "user_id")
	saved, err := d.store.Create(ctx, store.Users, doc)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return decodeUser(saved)
}

// Authenticate returns the user when email and password match. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := d.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(u, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SetAddress attaches (or replaces) the user's stored address.
func (d *Directory) SetAddress(ctx context.Context, userID string, addr models.Address) (*models.User, error) {
	doc, err := d.store.Update(ctx, store.Users, userID, store.Document{"address": addr})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set address for %s: %w", userID, err)
	}
	return decodeUser(doc)
}

// VerifyPassword recomputes the hash with the stored salt.
func VerifyPassword(u *models.User, password string) bool {
	if u.PasswordHash == "" || u.Salt == "" {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(u.Salt)
	if err != nil {
		return false
	}
	got := hashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(u.PasswordHash)) == 1
}

func hashPassword(password string, salt []byte) string {
	key := pbkdf2.Key([]byte(password), salt, hashIterations, keyBytes, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

func decodeUser(doc store.Document) (*models.User, error) {
	var u models.User
	if err := store.Decode(doc, &u); err != nil {
		return nil, fmt.Errorf("user record: %w", err)
	}
	return &u, nil
}
