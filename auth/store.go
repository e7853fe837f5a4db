package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/icos-carbon-portal/cpclient/cperr"
)

var (
	tokenPattern = regexp.MustCompile(`cpauthToken=[A-Za-z0-9_=+/]+`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// credentials is the parse result of a persisted credentials file: any line
// matching the token pattern is the cookie, any matching the email pattern
// the username, and any remaining non-empty line the password.
type credentials struct {
	token    string
	username string
	password string
}

func parseCredentialsFile(path string) (credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return credentials{}, &cperr.CredentialsError{Path: path, Err: err}
	}
	defer f.Close()

	var creds credentials
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case tokenPattern.MatchString(line):
			creds.token = tokenPattern.FindString(line)
		case emailPattern.MatchString(line):
			creds.username = line
		default:
			creds.password = line
		}
	}
	if err := scanner.Err(); err != nil {
		return credentials{}, &cperr.CredentialsError{Path: path, Err: err}
	}
	if creds.token == "" && (creds.username == "" || creds.password == "") {
		return credentials{}, &cperr.CredentialsError{Path: path}
	}
	return creds, nil
}

// FromFile builds a Session from a persisted credentials file. The token is
// tried first and validated against whoami; on failure the password account
// is tried; when neither works the parse error surfaces as a
// CredentialsError.
func FromFile(ctx context.Context, path string, cfg ClientConfig) (*Session, error) {
	creds, err := parseCredentialsFile(path)
	if err != nil {
		return nil, err
	}

	if creds.token != "" {
		s, err := FromToken(creds.token, cfg)
		if err == nil {
			if err := s.Validate(ctx); err == nil {
				s.username = creds.username
				s.password = creds.password
				return s, nil
			} else if !cperr.IsAuth(err) {
				return nil, err
			}
			cfg.Logger.Warn().Str("path", path).Msg("persisted token rejected, trying password")
		}
	}

	if creds.username != "" && creds.password != "" {
		s, err := FromPassword(creds.username, creds.password, cfg)
		if err != nil {
			return nil, err
		}
		if _, err := s.Cookie(ctx); err != nil {
			if cperr.IsAuth(err) {
				return nil, &cperr.CredentialsError{Path: path, Err: err}
			}
			return nil, err
		}
		return s, nil
	}

	return nil, &cperr.CredentialsError{Path: path}
}

// Persist writes the current credentials to path, one value per line, in the
// plain-text layout FromFile reads back.
func (s *Session) Persist(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []string
	if s.cookie != "" {
		lines = append(lines, s.cookie)
	}
	if s.username != "" {
		lines = append(lines, s.username)
	}
	if s.password != "" {
		lines = append(lines, s.password)
	}
	if len(lines) == 0 {
		return cperr.NewAuthError("missing")
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}
