package config

import (
	"errors"
	"fmt"

	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Variables

// EnvFile is the optional file of KEY=value lines
// read into the process environment before the
// DOVEAUTH_* variables are applied. Secrets such
// as the PostgreSQL DSN belong there.
var EnvFile = ".env"

// Functions

// LoadEnv looks for an .env file in the working
// directory, then overrides fields of conf with
// every DOVEAUTH_* variable that is set.
func LoadEnv(conf *Config) error {

	// A missing .env file is fine.
	err := godotenv.Load(EnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read in %s file with: %v", EnvFile, err)
	}

	if err := env.Parse(conf); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	return nil
}
