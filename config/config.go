package config

import (
	"fmt"
	"strings"

	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Constants

// Store adapters selectable via the [store] section.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Structs

// Config holds all information parsed from
// supplied config file.
type Config struct {
	MailDomain        string  `toml:"mail_domain" env:"DOVEAUTH_MAIL_DOMAIN"`
	MailboxesRoot     string  `toml:"mailboxes_root" env:"DOVEAUTH_MAILBOXES_ROOT"`
	PasswordMinLength int     `toml:"password_min_length" env:"DOVEAUTH_PASSWORD_MIN_LENGTH"`
	UsernameMinLength int     `toml:"username_min_length" env:"DOVEAUTH_USERNAME_MIN_LENGTH"`
	UsernameMaxLength int     `toml:"username_max_length" env:"DOVEAUTH_USERNAME_MAX_LENGTH"`
	PasswordScheme    string  `toml:"password_scheme" env:"DOVEAUTH_PASSWORD_SCHEME"`
	NoCreateFile      string  `toml:"nocreate_file" env:"DOVEAUTH_NOCREATE_FILE"`
	VmailUser         string  `toml:"vmail_user" env:"DOVEAUTH_VMAIL_USER"`
	Store             Store   `toml:"store"`
	Metrics           Metrics `toml:"metrics"`
}

// Store selects and configures the backend
// holding the password record of each account.
type Store struct {
	Adapter     string `toml:"adapter" env:"DOVEAUTH_STORE_ADAPTER"`
	PostgresDSN string `toml:"postgres_dsn" env:"DOVEAUTH_POSTGRES_DSN"`
}

// Metrics configures where Prometheus metrics
// are exposed. An empty address disables them.
type Metrics struct {
	PrometheusAddr string `toml:"prometheus_addr" env:"DOVEAUTH_PROMETHEUS_ADDR"`
}

// Functions

// Default returns a configuration carrying the
// values used by a stock chatmail deployment.
// MailDomain has no default and must be set.
func Default() *Config {

	return &Config{
		MailboxesRoot:     "/home/vmail/mail",
		PasswordMinLength: 9,
		UsernameMinLength: 9,
		UsernameMaxLength: 9,
		PasswordScheme:    "BLF-CRYPT",
		NoCreateFile:      "/etc/chatmail-nocreate",
		VmailUser:         "vmail",
		Store: Store{
			Adapter: StoreFile,
		},
	}
}

// LoadConfig takes in the path to the main config
// file of doveauth in TOML syntax and places the values
// from the file in the corresponding struct. Values
// from the environment take precedence over the file.
func LoadConfig(configFile string) (*Config, error) {

	conf := Default()

	// Parse values from TOML file into struct.
	_, err := toml.DecodeFile(configFile, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s' with: %v", configFile, err)
	}

	// Let .env and DOVEAUTH_* variables override.
	err = LoadEnv(conf)
	if err != nil {
		return nil, err
	}

	// Relative paths are taken relative to
	// the directory holding the config file.
	baseDir, err := filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path of config directory: %v", err)
	}

	if filepath.IsAbs(conf.MailboxesRoot) != true {
		conf.MailboxesRoot = filepath.Join(baseDir, conf.MailboxesRoot)
	}

	if conf.NoCreateFile != "" && filepath.IsAbs(conf.NoCreateFile) != true {
		conf.NoCreateFile = filepath.Join(baseDir, conf.NoCreateFile)
	}

	err = conf.Validate()
	if err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate checks the configuration for values
// the lookup and provisioning logic cannot work with.
func (c *Config) Validate() error {

	if c.MailDomain == "" {
		return fmt.Errorf("mail_domain must be set")
	}

	if strings.ContainsAny(c.MailDomain, "@/") {
		return fmt.Errorf("mail_domain '%s' must be a bare domain name", c.MailDomain)
	}

	if c.MailboxesRoot == "" {
		return fmt.Errorf("mailboxes_root must be set")
	}

	if c.UsernameMinLength < 1 || c.UsernameMaxLength < c.UsernameMinLength {
		return fmt.Errorf("invalid username length bounds [%d, %d]", c.UsernameMinLength, c.UsernameMaxLength)
	}

	if c.PasswordMinLength < 0 {
		return fmt.Errorf("password_min_length must not be negative")
	}

	if c.VmailUser == "" {
		return fmt.Errorf("vmail_user must be set")
	}

	switch c.Store.Adapter {
	case StoreFile:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store adapter '%s' requires postgres_dsn", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown store adapter '%s'", c.Store.Adapter)
	}

	return nil
}

// MailboxesDir is the directory holding one
// subdirectory per established account.
func (c *Config) MailboxesDir() string {
	return filepath.Join(c.MailboxesRoot, c.MailDomain)
}

// UserDir maps an address to its account directory.
// The address is not checked for path safety here.
func (c *Config) UserDir(addr string) string {
	return filepath.Join(c.MailboxesDir(), addr)
}

// IsLocalAddress reports whether addr belongs to
// the configured mail domain.
func (c *Config) IsLocalAddress(addr string) bool {
	return strings.HasSuffix(addr, "@"+c.MailDomain)
}
