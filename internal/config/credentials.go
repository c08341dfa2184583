package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials authenticates requests to the Cloudflare API.
// Either APIToken or the AuthEmail/AuthKey pair must be set. When a token
// is present the global key fields are ignored.
type Credentials struct {
	APIToken  string `validate:"required_without=AuthKey"`
	AuthEmail string `validate:"required_without=APIToken"`
	AuthKey   string `validate:"required_without=APIToken"`
}

// Provider holds the account and zone scope of a deployment.
type Provider struct {
	AccountID string `validate:"required"`
	ZoneID    string `validate:"required"`
}

// ValidationError reports which configuration fields are missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Fields, ", "))
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Existing variables win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// CredentialsFromEnv reads credentials from the environment and validates them.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		APIToken:  os.Getenv(KeyAPIToken),
		AuthEmail: os.Getenv(KeyAuthEmail),
		AuthKey:   os.Getenv(KeyAuthKey),
	}
	if err := Validate(creds); err != nil {
		return creds, err
	}
	return creds, nil
}

// ResolveProvider fills empty fields of p from the environment and validates the result.
func ResolveProvider(p Provider) (Provider, error) {
	if p.AccountID == "" {
		p.AccountID = os.Getenv(KeyAccountID)
	}
	if p.ZoneID == "" {
		p.ZoneID = os.Getenv(KeyZoneID)
	}
	if err := Validate(p); err != nil {
		return p, err
	}
	return p, nil
}

// Validate runs struct validation and converts failures into a *ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Fields: fields}
}
