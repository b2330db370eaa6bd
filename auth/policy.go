package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"io/fs"
	"unicode/utf8"

	"github.com/ArcaneChat/chatmail/config"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Constants

// ReservedLocalpart belongs to the echo bot. Its
// account is set up by the deployment and must never
// be created through a login attempt.
const ReservedLocalpart = "echo"

// Structs

// CreationGate reports a non-nil error while the
// creation of new accounts is suspended.
type CreationGate func() error

// Policy decides whether an address that has no
// account yet may be provisioned on first login.
type Policy struct {
	logger            log.Logger
	gate              CreationGate
	passwordMinLength int
	usernameMinLength int
	usernameMaxLength int
}

// Functions

// MarkerFile returns a gate that disables account
// creation while a file exists at path. An empty path
// never disables creation.
func MarkerFile(path string) CreationGate {

	return func() error {

		if path == "" {
			return nil
		}

		_, err := os.Stat(path)
		if err == nil {
			return fmt.Errorf("%w: %q exists", ErrCreationDisabled, path)
		}

		// Fail closed if we cannot tell.
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: cannot check %q: %v", ErrCreationDisabled, path, err)
		}

		return nil
	}
}

// NewPolicy takes the length limits from conf. A nil
// gate falls back to the marker file named in conf.
func NewPolicy(logger log.Logger, conf *config.Config, gate CreationGate) *Policy {

	if gate == nil {
		gate = MarkerFile(conf.NoCreateFile)
	}

	return &Policy{
		logger:            logger,
		gate:              gate,
		passwordMinLength: conf.PasswordMinLength,
		usernameMinLength: conf.UsernameMinLength,
		usernameMaxLength: conf.UsernameMaxLength,
	}
}

// Check runs all provisioning checks in order and
// returns the first violated one. Lengths count
// characters, not bytes.
func (p *Policy) Check(addr string, password string) error {

	if err := p.gate(); err != nil {
		return err
	}

	if utf8.RuneCountInString(password) < p.passwordMinLength {
		return fmt.Errorf("%w: needs at least %d characters", ErrPasswordTooShort, p.passwordMinLength)
	}

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q", ErrMalformedAddress, addr)
	}
	localpart := parts[0]

	if localpart == ReservedLocalpart {
		return fmt.Errorf("%w: %q", ErrReservedLocalpart, localpart)
	}

	n := utf8.RuneCountInString(localpart)
	if n < p.usernameMinLength || n > p.usernameMaxLength {
		return fmt.Errorf("%w: localpart %q has to be between %d and %d chars long",
			ErrUsernameLength, localpart, p.usernameMinLength, p.usernameMaxLength)
	}

	return nil
}

// MayCreate reports whether addr may be provisioned
// with password. Every refusal is logged as a warning.
func (p *Policy) MayCreate(addr string, password string) bool {

	err := p.Check(addr, password)
	if err != nil {
		level.Warn(p.logger).Log(
			"msg", "refusing to create account",
			"addr", addr,
			"reason", err,
		)
		return false
	}

	return true
}
