// Package validate checks form payloads against an embedded CUE schema
// before they are sent. The server stays authoritative; these checks only
// save a round trip on obviously bad input.
package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/storefront/internal/domain"
)

//go:embed schema.cue
var schemaSource string

// FieldError reports one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is every rejected field of one form, sorted by field name.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// Field returns the message for field, or "".
func (e FieldErrors) Field(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

var messages = map[string]string{
	"email":           "Please enter a valid email address",
	"password":        "Password must be at least 6 characters",
	"confirmPassword": "Passwords do not match",
	"newPassword":     "Password must be at least 6 characters",
	"currentPassword": "Current password is required",
	"name":            "Name is required",
	"address":         "Address is required",
	"description":     "Description is required",
	"title":           "Title is required",
	"reviewer":        "Reviewer is required",
	"rating":          "Rating must be between 1 and 5",
	"role":            "Role must be one of user, storeOwner, admin",
	"status":          "Status must be one of PENDING, APPROVED, REJECTED",
	"token":           "Reset token is required",
}

// The login form only requires a password to be present.
var overrides = map[string]map[string]string{
	"#Login": {"password": "Password is required"},
}

// A field that mirrors another is only reported when the other is valid.
var mirrors = map[string]string{
	"confirmPassword": "password",
}

var (
	once    sync.Once
	schema  cue.Value
	loadErr error
)

func compiled() (cue.Value, error) {
	once.Do(func() {
		ctx := cuecontext.New()
		schema = ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		loadErr = schema.Err()
	})
	return schema, loadErr
}

// Login checks the sign-in form.
func Login(p domain.LoginPayload) error {
	return check("#Login", p)
}

// Register checks the sign-up form, including the repeated password.
func Register(p domain.RegisterPayload, confirmPassword string) error {
	return check("#Register", struct {
		domain.RegisterPayload
		ConfirmPassword string `json:"confirmPassword"`
	}{p, confirmPassword})
}

func ChangePassword(p domain.ChangePasswordPayload) error {
	return check("#ChangePassword", p)
}

// ResetPassword checks the new password and the token, which the payload
// keeps out of its JSON body.
func ResetPassword(p domain.ResetPasswordPayload) error {
	return check("#ResetPassword", struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{p.Token, p.NewPassword})
}

func ResetRequest(p domain.ResetPasswordRequestPayload) error {
	return check("#ResetRequest", p)
}

// CreateStore checks a new listing. Email is optional but must look like
// an address when given.
func CreateStore(p domain.CreateStorePayload) error {
	return check("#CreateStore", p)
}

// ReviewPayload checks a review before create or update.
func ReviewPayload(p domain.ReviewPayload) error {
	return check("#Review", p)
}

// Status checks a moderation status value.
func Status(status string) error {
	return check("#StatusChange", domain.StatusPayload{Status: domain.StoreStatus(status)})
}

// check unifies the JSON form of v with the named definition. JSON is a
// subset of CUE, so numbers keep their int kind.
func check(def string, v any) error {
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("validate: schema: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("validate: encode %s: %w", def, err)
	}
	value := s.Context().CompileBytes(data)
	if err := value.Err(); err != nil {
		return fmt.Errorf("validate: decode %s: %w", def, err)
	}

	unified := s.LookupPath(cue.ParsePath(def)).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fieldErrors(def, err)
	}
	return nil
}

func fieldErrors(def string, err error) FieldErrors {
	seen := map[string]bool{}
	var out FieldErrors
	for _, e := range cueerrors.Errors(err) {
		field := fieldOf(e.Path())
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, FieldError{Field: field, Message: messageFor(def, field, e)})
	}
	if len(out) == 0 {
		return FieldErrors{{Field: "form", Message: err.Error()}}
	}
	kept := out[:0]
	for _, fe := range out {
		if src, ok := mirrors[fe.Field]; ok && seen[src] {
			continue
		}
		kept = append(kept, fe)
	}
	out = kept
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fieldOf returns the last regular label of an error path.
func fieldOf(path []string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if !strings.HasPrefix(path[i], "#") {
			return path[i]
		}
	}
	return ""
}

func messageFor(def, field string, e cueerrors.Error) string {
	if m, ok := overrides[def][field]; ok {
		return m
	}
	if m, ok := messages[field]; ok {
		return m
	}
	return e.Error()
}
