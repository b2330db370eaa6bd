package utils

import (
	"fmt"
	"os"
	"strings"

	"path/filepath"

	"github.com/ArcaneChat/chatmail/config"
	"github.com/google/uuid"
)

// Constants

// TestDomain is the mail domain of every test environment.
const TestDomain = "chat.example.org"

// Structs

// TestEnv carries a configuration whose mailboxes
// root and creation marker live below a private
// directory, so tests never touch system paths.
type TestEnv struct {
	Root   string
	Config *config.Config
}

// Functions

// CreateTestEnv initializes a test environment
// below root, which is usually t.TempDir().
func CreateTestEnv(root string) *TestEnv {

	conf := config.Default()
	conf.MailDomain = TestDomain
	conf.MailboxesRoot = filepath.Join(root, "mail")
	conf.NoCreateFile = filepath.Join(root, "chatmail-nocreate")

	return &TestEnv{
		Root:   root,
		Config: conf,
	}
}

// GenCreds returns a fresh address whose localpart
// has the configured minimum length, and a password
// satisfying the minimum password length.
func (e *TestEnv) GenCreds() (string, string) {

	random := strings.ReplaceAll(uuid.NewString(), "-", "")

	n := e.Config.UsernameMinLength
	for len(random) < n {
		random += strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	addr := fmt.Sprintf("%s@%s", random[:n], e.Config.MailDomain)
	password := uuid.NewString()

	return addr, password
}

// DisableCreation places the marker file suspending
// account creation.
func (e *TestEnv) DisableCreation() error {
	return os.WriteFile(e.Config.NoCreateFile, nil, 0600)
}
