package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"io/fs"
	"path/filepath"

	"github.com/ArcaneChat/chatmail/config"
	"github.com/emersion/go-maildir"
)

// Constants

// PasswordFile is the name of the file inside an
// account directory holding the password hash.
const PasswordFile = "password"

// Structs

// FileStore keeps one directory per account below
// the configured mailboxes directory. The account's
// password hash lives in a file inside it and the
// directory doubles as the account's Maildir.
type FileStore struct {
	mailboxesDir string
	vmailUser    string
}

// Functions

// NewFileStore returns a file based account store
// rooted at the mailboxes directory of conf.
func NewFileStore(conf *config.Config) *FileStore {

	return &FileStore{
		mailboxesDir: conf.MailboxesDir(),
		vmailUser:    conf.VmailUser,
	}
}

// accountDir maps addr to its directory. Addresses that
// would escape the mailboxes directory are refused.
func (f *FileStore) accountDir(addr string) (string, error) {

	if err := validateAddress(addr); err != nil {
		return "", err
	}

	return filepath.Join(f.mailboxesDir, addr), nil
}

// validateAddress refuses addresses that cannot be
// used as a single path element.
func validateAddress(addr string) error {

	if addr == "" || strings.HasPrefix(addr, ".") || strings.ContainsAny(addr, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	return nil
}

func (f *FileStore) account(addr string, dir string, password string) *Account {

	return &Account{
		Addr:     addr,
		Password: password,
		Home:     dir,
		UID:      f.vmailUser,
		GID:      f.vmailUser,
	}
}

// ReadAccount returns the account whose password
// file exists or ErrAccountNotFound.
func (f *FileStore) ReadAccount(ctx context.Context, addr string) (*Account, error) {

	dir, err := f.accountDir(addr)
	if err != nil {
		return nil, err
	}

	password, err := os.ReadFile(filepath.Join(dir, PasswordFile))
	if err != nil {

		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to read password of %s: %w", addr, err)
	}

	return f.account(addr, dir, string(password)), nil
}

// CreateAccount initialises the account directory as a
// Maildir and publishes the password file with a hard
// link from a fully written temporary file. The link
// fails for every writer but the first one, also across
// processes, and readers never see a partial file.
func (f *FileStore) CreateAccount(ctx context.Context, addr string, passwordHash string) (*Account, bool, error) {

	dir, err := f.accountDir(addr)
	if err != nil {
		return nil, false, err
	}

	if err := os.MkdirAll(f.mailboxesDir, 0700); err != nil {
		return nil, false, fmt.Errorf("failed to create mailboxes directory: %w", err)
	}

	// Tolerates directories that already exist.
	if err := maildir.Dir(dir).Init(); err != nil {
		return nil, false, fmt.Errorf("failed to initialise maildir of %s: %w", addr, err)
	}

	err = f.publishPassword(dir, passwordHash)
	if errors.Is(err, ErrAccountExists) {

		// Somebody else won. Their record is the account.
		acc, err := f.ReadAccount(ctx, addr)
		if err != nil {
			return nil, false, err
		}

		return acc, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to store password of %s: %w", addr, err)
	}

	return f.account(addr, dir, passwordHash), true, nil
}

// publishPassword atomically creates the password
// file in dir or returns ErrAccountExists.
func (f *FileStore) publishPassword(dir string, passwordHash string) error {

	tmp, err := os.CreateTemp(dir, "."+PasswordFile+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(passwordHash); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	err = os.Link(tmp.Name(), filepath.Join(dir, PasswordFile))
	if errors.Is(err, fs.ErrExist) {
		return ErrAccountExists
	}

	return err
}

// ListAddresses returns the names of all account
// directories that hold a password file.
func (f *FileStore) ListAddresses(ctx context.Context) ([]string, error) {

	entries, err := os.ReadDir(f.mailboxesDir)
	if err != nil {

		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list mailboxes directory: %w", err)
	}

	addrs := make([]string, 0, len(entries))

	for _, entry := range entries {

		if !entry.IsDir() || !strings.Contains(entry.Name(), "@") {
			continue
		}

		_, err := os.Stat(filepath.Join(f.mailboxesDir, entry.Name(), PasswordFile))
		if err != nil {

			// Directory of a creation still in flight.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to inspect account %s: %w", entry.Name(), err)
		}

		addrs = append(addrs, entry.Name())
	}

	return addrs, nil
}
