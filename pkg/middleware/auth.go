package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/psantana5/cmdexec/pkg/auth"
	"github.com/psantana5/cmdexec/pkg/command"
)

type contextKey string

const credentialContextKey contextKey = "credential_source"

const (
	DefaultAuthOption = "auth-token"
	DefaultAuthEnv    = "CMDEXEC_AUTH_TOKEN"
	AuthPriority      = 100
)

// Verifier is a caller-supplied authentication check. ok=false denies the
// invocation; a non-nil error denies it and is reported to the output.
type Verifier func(inv *Invocation) (ok bool, err error)

// AuthConfig configures the authentication gate
type AuthConfig struct {
	Protected      []string
	Option         string // defaults to DefaultAuthOption
	Verifier       Verifier
	CredentialFile string
	EnvVar         string // defaults to DefaultAuthEnv
	// Validator checks credentials from the option, file or environment.
	// nil accepts any non-empty credential.
	Validator auth.Validator
}

// Auth denies protected commands that cannot be authenticated. It applies
// when the command is protected or the auth option is given explicitly.
// Credential sources are tried in order: option value, verifier, credential
// file, environment variable. The first source that yields something decides.
type Auth struct {
	mu        sync.RWMutex
	protected map[string]bool
	cfg       AuthConfig
}

// NewAuth creates the authentication gate
func NewAuth(cfg AuthConfig) *Auth {
	if cfg.Option == "" {
		cfg.Option = DefaultAuthOption
	}
	if cfg.EnvVar == "" {
		cfg.EnvVar = DefaultAuthEnv
	}

	a := &Auth{protected: make(map[string]bool), cfg: cfg}
	for _, name := range cfg.Protected {
		a.protected[name] = true
	}
	return a
}

// Protect adds command names to the protected set
func (a *Auth) Protect(names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, name := range names {
		a.protected[name] = true
	}
}

// Unprotect removes command names from the protected set
func (a *Auth) Unprotect(names ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, name := range names {
		delete(a.protected, name)
	}
}

func (a *Auth) IsProtected(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.protected[name]
}

func (a *Auth) Priority() int {
	return AuthPriority
}

func (a *Auth) Applies(inv *Invocation) bool {
	return a.IsProtected(inv.Command.Name()) || inv.Input.HasOption(a.cfg.Option)
}

func (a *Auth) Handle(inv *Invocation, next Handler) (int, error) {
	source, err := a.authenticate(inv)
	if err != nil {
		inv.Output.Error(fmt.Sprintf("Authentication failed for %q: %v", inv.Command.Name(), err))
		return command.ExitPermissionDenied, nil
	}

	inv.Ctx = context.WithValue(inv.Ctx, credentialContextKey, source)
	return next(inv)
}

var errVerifierDenied = errors.New("access denied")

// authenticate returns the name of the source that authenticated inv
func (a *Auth) authenticate(inv *Invocation) (string, error) {
	if inv.Input.HasOption(a.cfg.Option) {
		return "option", a.validate(inv.Input.StringOption(a.cfg.Option))
	}

	if a.cfg.Verifier != nil {
		ok, err := a.cfg.Verifier(inv)
		if err != nil {
			return "verifier", err
		}
		if !ok {
			return "verifier", errVerifierDenied
		}
		return "verifier", nil
	}

	if a.cfg.CredentialFile != "" {
		credential, err := auth.ReadCredentialFile(a.cfg.CredentialFile)
		switch {
		case err == nil:
			return "file", a.validate(credential)
		case !errors.Is(err, os.ErrNotExist):
			return "file", err
		}
	}

	if credential := os.Getenv(a.cfg.EnvVar); credential != "" {
		return "env", a.validate(credential)
	}

	return "", auth.ErrNoCredential
}

func (a *Auth) validate(credential string) error {
	if a.cfg.Validator == nil {
		if credential == "" {
			return auth.ErrNoCredential
		}
		return nil
	}
	return a.cfg.Validator.Validate(credential)
}

// CredentialSource returns which source authenticated the invocation
// ("option", "verifier", "file" or "env"), or "" if Auth did not run
func CredentialSource(ctx context.Context) string {
	if source, ok := ctx.Value(credentialContextKey).(string); ok {
		return source
	}
	return ""
}
