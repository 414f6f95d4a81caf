// Package validation checks and normalises login and registration payloads.
//
// Each rule set is a list of fields, and each field a chain of checks run in
// order. A field reports at most the first failing check of its chain, while
// every field of the set is always checked.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"user-api/internal/config"
)

const (
	FieldName     = "Name"
	FieldUsername = "Username"
	FieldPassword = "Password"
)

const (
	strongPasswordTag = "strongpassword"
	passwordBytesTag  = "passwordbytes"
)

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

var passwordTooLongMessage = fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes)

// Errors maps a field name to its constraint violations.
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Credentials is an accepted login payload.
type Credentials struct {
	Username string
	Password string
	Name     string
}

// Registration is an accepted registration payload.
type Registration struct {
	Name     string
	Username string
	Password string
}

type check struct {
	tag     string
	message string
}

type fieldRule struct {
	name   string
	checks []check
}

// PasswordPolicy describes what the login rules accept as a strong password.
type PasswordPolicy struct {
	MinLength     int
	RequireLower  bool
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Allows reports whether password satisfies the policy.
func (p PasswordPolicy) Allows(password string) bool {
	if utf8.RuneCountInString(password) < p.MinLength {
		return false
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			symbol = true
		}
	}

	return (!p.RequireLower || lower) &&
		(!p.RequireUpper || upper) &&
		(!p.RequireDigit || digit) &&
		(!p.RequireSymbol || symbol)
}

// Rules holds the login and registration rule sets. It is safe for concurrent use.
type Rules struct {
	validate *validator.Validate
	login    []fieldRule
	register []fieldRule
}

// NewRules builds both rule sets from cfg.
func NewRules(cfg config.Validation) (*Rules, error) {
	policy := PasswordPolicy{
		MinLength:     cfg.Login.PasswordMinLength,
		RequireLower:  cfg.Login.RequireLower,
		RequireUpper:  cfg.Login.RequireUpper,
		RequireDigit:  cfg.Login.RequireDigit,
		RequireSymbol: cfg.Login.RequireSymbol,
	}

	v := validator.New()
	err := v.RegisterValidation(strongPasswordTag, func(fl validator.FieldLevel) bool {
		return policy.Allows(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register %s validation: %w", strongPasswordTag, err)
	}
	// validator's max= counts runes; bcrypt's limit is in bytes
	err = v.RegisterValidation(passwordBytesTag, func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	if err != nil {
		return nil, fmt.Errorf("register %s validation: %w", passwordBytesTag, err)
	}
	bytesCheck := check{passwordBytesTag, passwordTooLongMessage}

	passwordCheck := check{strongPasswordTag, "Please enter strong Password"}
	if !cfg.Login.StrongPassword {
		// only presence is checked; the stored hash decides the rest
		passwordCheck = check{"required", "Please enter Password"}
	}
	login := []fieldRule{
		{name: FieldUsername, checks: []check{{"required", "Please enter Username"}}},
		{name: FieldPassword, checks: []check{passwordCheck, bytesCheck}},
	}
	if cfg.Login.RequireName {
		login = append(login, fieldRule{name: FieldName, checks: []check{{"required", "Please enter the Name"}}})
	}

	usernameMin := cfg.Register.UsernameMinLength
	passwordMin := cfg.Register.PasswordMinLength
	register := []fieldRule{
		{name: FieldName, checks: []check{{"required", "Name is required"}}},
		{name: FieldUsername, checks: []check{
			{"required", "Username is required"},
			{fmt.Sprintf("min=%d", usernameMin), fmt.Sprintf("Username must be at least %d characters", usernameMin)},
		}},
		{name: FieldPassword, checks: []check{
			{"required", "Password is required"},
			{fmt.Sprintf("min=%d", passwordMin), fmt.Sprintf("Password must be at least %d characters", passwordMin)},
			bytesCheck,
		}},
	}

	return &Rules{validate: v, login: login, register: register}, nil
}

// CheckPasswordLength rejects passwords too long to hash. Paths that skip the
// registration rules still need it before storing a password.
func CheckPasswordLength(password string) error {
	if len(password) <= MaxPasswordBytes {
		return nil
	}
	return Errors{FieldPassword: {passwordTooLongMessage}}
}

// ValidateLogin normalises raw and checks it against the login rules.
func (r *Rules) ValidateLogin(raw map[string]any) (Credentials, error) {
	fields := normalize(raw, FieldUsername, FieldPassword, FieldName)
	if errs := r.run(r.login, fields); errs != nil {
		return Credentials{}, errs
	}
	return Credentials{
		Username: fields[FieldUsername],
		Password: fields[FieldPassword],
		Name:     fields[FieldName],
	}, nil
}

// ValidateRegistration normalises raw and checks it against the registration rules.
func (r *Rules) ValidateRegistration(raw map[string]any) (Registration, error) {
	fields := normalize(raw, FieldName, FieldUsername, FieldPassword)
	if errs := r.run(r.register, fields); errs != nil {
		return Registration{}, errs
	}
	return Registration{
		Name:     fields[FieldName],
		Username: fields[FieldUsername],
		Password: fields[FieldPassword],
	}, nil
}

func (r *Rules) run(rules []fieldRule, fields map[string]string) Errors {
	var errs Errors
	for _, rule := range rules {
		value := fields[rule.name]
		for _, c := range rule.checks {
			if err := r.validate.Var(value, c.tag); err != nil {
				if errs == nil {
					errs = make(Errors)
				}
				errs[rule.name] = append(errs[rule.name], c.message)
				break
			}
		}
	}
	return errs
}

// normalize keeps only the named fields, trimming strings and rendering
// scalars as text. Missing fields and non-scalar values become empty.
func normalize(raw map[string]any, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		switch v := raw[name].(type) {
		case string:
			out[name] = strings.TrimSpace(v)
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			out[name] = v.String()
		case int:
			out[name] = strconv.Itoa(v)
		case bool:
			out[name] = strconv.FormatBool(v)
		default:
			out[name] = ""
		}
	}
	return out
}
