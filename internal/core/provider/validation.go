// Package provider contains pure functions for AWS credential settings.
// This is part of the Functional Core - all functions are pure with no I/O.
package provider

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Credential Validation (Pure - no I/O)
// =============================================================================

var (
	ErrAWSAccessKeyRequired = errors.New("AWS access key ID is required")
	ErrAWSSecretKeyRequired = errors.New("AWS secret access key is required")
	ErrRoleRequired         = errors.New("role is required when an account is set")
	ErrInvalidAccountID     = errors.New("AWS account ID must be 12 digits")
	ErrInvalidRoleARN       = errors.New("role ARN must start with arn:aws")
)

var accountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

// CredentialMode selects how request-signing credentials are obtained.
type CredentialMode string

const (
	// ModeDefault resolves credentials from the environment, then the shared profile.
	ModeDefault CredentialMode = "default"
	// ModeStatic uses a fixed access key pair.
	ModeStatic CredentialMode = "static"
	// ModeAssumeRole exchanges base credentials for a role in another account.
	ModeAssumeRole CredentialMode = "assume_role"
)

// CredentialSettings describes where credentials come from.
type CredentialSettings struct {
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	RoleARN         string
	Account         string
	Role            string
	SessionName     string
}

// Mode returns the credential mode implied by the settings. A role wins over
// static keys: the keys then serve as the base credentials for the exchange.
func (s CredentialSettings) Mode() CredentialMode {
	if s.RoleARN != "" || s.Account != "" {
		return ModeAssumeRole
	}
	if s.AccessKeyID != "" || s.SecretAccessKey != "" {
		return ModeStatic
	}
	return ModeDefault
}

// ValidateStaticKeys validates the access key pair.
func ValidateStaticKeys(s CredentialSettings) error {
	if s.AccessKeyID == "" {
		return ErrAWSAccessKeyRequired
	}
	if s.SecretAccessKey == "" {
		return ErrAWSSecretKeyRequired
	}
	return nil
}

// Validate checks that the settings are complete for their mode.
func Validate(s CredentialSettings) error {
	if s.AccessKeyID != "" || s.SecretAccessKey != "" {
		if err := ValidateStaticKeys(s); err != nil {
			return err
		}
	}
	if s.Mode() == ModeAssumeRole {
		if _, err := ResolveRoleARN(s); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Role ARN Derivation
// =============================================================================

// ResolveRoleARN returns the role to assume. An explicit RoleARN wins;
// otherwise Account and Role are combined. Role may already be a full ARN.
//
// Example:
//
//	ResolveRoleARN(CredentialSettings{Account: "123456789012", Role: "deployer"})
//	// returns "arn:aws:iam::123456789012:role/deployer"
func ResolveRoleARN(s CredentialSettings) (string, error) {
	if s.RoleARN != "" {
		if !strings.HasPrefix(s.RoleARN, "arn:aws") {
			return "", ErrInvalidRoleARN
		}
		return s.RoleARN, nil
	}
	if s.Account == "" {
		return "", nil
	}
	if !accountIDPattern.MatchString(s.Account) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountID, s.Account)
	}
	if s.Role == "" {
		return "", ErrRoleRequired
	}
	if strings.HasPrefix(s.Role, "arn:aws") {
		return s.Role, nil
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", s.Account, strings.TrimPrefix(s.Role, "role/")), nil
}

// =============================================================================
// Settings Merging
// =============================================================================

// Coalesce returns the first non-empty value.
func Coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Merge overlays override on base field by field; non-empty override values win.
func Merge(base, override CredentialSettings) CredentialSettings {
	return CredentialSettings{
		Profile:         Coalesce(override.Profile, base.Profile),
		AccessKeyID:     Coalesce(override.AccessKeyID, base.AccessKeyID),
		SecretAccessKey: Coalesce(override.SecretAccessKey, base.SecretAccessKey),
		SessionToken:    Coalesce(override.SessionToken, base.SessionToken),
		RoleARN:         Coalesce(override.RoleARN, base.RoleARN),
		Account:         Coalesce(override.Account, base.Account),
		Role:            Coalesce(override.Role, base.Role),
		SessionName:     Coalesce(override.SessionName, base.SessionName),
	}
}
