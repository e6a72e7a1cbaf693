// SPDX-License-Identifier: MIT

package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/domevanzy/Zattoo-EPG/internal/session"
	"github.com/domevanzy/Zattoo-EPG/internal/validate"
)

// ErrNoCredentials means neither config, environment nor file supplied a login.
var ErrNoCredentials = errors.New("no credentials configured")

type credentialsFile struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ReadCredentialsFile parses a legacy {"email": ..., "password": ...} file.
func ReadCredentialsFile(path string) (session.Credentials, error) {
	// #nosec G304 -- path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return session.Credentials{}, fmt.Errorf("parse credentials file %s: %w", path, err)
	}
	creds := session.Credentials{Email: strings.TrimSpace(f.Email), Password: f.Password}
	if err := checkCredentials(creds); err != nil {
		return session.Credentials{}, fmt.Errorf("credentials file %s: %w", path, err)
	}
	return creds, nil
}

// WriteCredentialsFile stores creds in the legacy format, readable by the owner only.
func WriteCredentialsFile(path string, creds session.Credentials) error {
	data, err := json.MarshalIndent(credentialsFile{Email: creds.Email, Password: creds.Password}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// Credentials resolves the login from cfg, falling back to the legacy file.
func (c Config) Credentials() (session.Credentials, error) {
	if c.Creds.Email != "" || c.Creds.Password != "" {
		creds := session.Credentials{Email: c.Creds.Email, Password: c.Creds.Password}
		return creds, checkCredentials(creds)
	}
	if c.Creds.File == "" {
		return session.Credentials{}, ErrNoCredentials
	}
	if _, err := os.Stat(c.Creds.File); errors.Is(err, os.ErrNotExist) {
		return session.Credentials{}, fmt.Errorf("%w (credentials file %s not found)", ErrNoCredentials, c.Creds.File)
	}
	return ReadCredentialsFile(c.Creds.File)
}

// Prompt asks for email and password on out and reads the answers from in.
// The email is asked again until it is well formed.
func Prompt(in io.Reader, out io.Writer) (session.Credentials, error) {
	r := bufio.NewReader(in)
	var creds session.Credentials
	for {
		_, _ = fmt.Fprint(out, "Zattoo email: ")
		line, err := readLine(r)
		if err != nil {
			return session.Credentials{}, err
		}
		v := validate.New()
		v.Email("email", line)
		if v.IsValid() {
			creds.Email = line
			break
		}
		_, _ = fmt.Fprintln(out, "Invalid email address, please try again.")
	}

	_, _ = fmt.Fprint(out, "Zattoo password: ")
	pw, err := readLine(r)
	if err != nil {
		return session.Credentials{}, err
	}
	if pw == "" {
		return session.Credentials{}, errors.New("password cannot be empty")
	}
	creds.Password = pw
	return creds, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func checkCredentials(c session.Credentials) error {
	v := validate.New()
	v.Email("email", c.Email)
	v.NotEmpty("password", c.Password)
	return v.Err()
}

// Redacted returns a copy of c that is safe to print.
func (c Config) Redacted() Config {
	if c.Creds.Password != "" {
		c.Creds.Password = "***"
	}
	return c
}
