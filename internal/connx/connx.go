// Package connx turns a database identity and an auth token into a
// connection string the pgx driver can consume.
//
// Auth tokens are presigned URLs and routinely contain '/', '+', '=', ':' and
// '&'. Embedded verbatim in the userinfo part of a URL they corrupt it, and the
// server reports the result as a plain authentication failure. Every byte
// outside [A-Za-z0-9] is therefore percent-encoded.
package connx

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
)

const upperhex = "0123456789ABCDEF"

// Descriptor identifies a database connection target. It is immutable once
// built and decides which token variant (admin or regular) must be requested.
type Descriptor struct {
	Host     string
	Port     int
	User     string
	Database string
	Region   string
	Admin    bool
}

// NewDescriptor builds a Descriptor. Admin is derived from the user name:
// only the built-in "admin" role connects with an admin token.
func NewDescriptor(host string, port int, user, database, region string) Descriptor {
	return Descriptor{
		Host:     host,
		Port:     port,
		User:     user,
		Database: database,
		Region:   region,
		Admin:    strings.EqualFold(user, common.AdminUser),
	}
}

// Validate checks that every part except the token can be placed into a
// connection string without escaping.
func (d Descriptor) Validate() error {
	if err := validateHost(d.Host); err != nil {
		return err
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", common.ErrorEncoding, d.Port)
	}
	if err := validateName("user", d.User); err != nil {
		return err
	}
	return validateName("database", d.Database)
}

// ConnectionString embeds token into a postgres URL for d.
func (d Descriptor) ConnectionString(token string) (string, error) {
	return BuildConnectionString(d.User, token, d.Host, d.Port, d.Database)
}

// BuildConnectionString returns
//
//	postgres://<user>:<encoded token>@<host>:<port>/<database>?sslmode=require
//
// It fails with common.ErrorEncoding before any network activity when an
// identity part cannot be embedded safely or the token is empty.
func BuildConnectionString(user, token, host string, port int, database string) (string, error) {
	d := Descriptor{Host: host, Port: port, User: user, Database: database}
	if err := d.Validate(); err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty token", common.ErrorEncoding)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=require",
		user, EncodeToken(token), host, port, database), nil
}

// EncodeToken percent-encodes every byte of token that is not an ASCII letter
// or digit. Multi-byte UTF-8 characters are encoded byte by byte.
func EncodeToken(token string) string {
	var b strings.Builder
	b.Grow(len(token) * 3)
	for i := 0; i < len(token); i++ {
		c := token[i]
		if isAlphanumeric(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

// DecodeToken reverses EncodeToken.
func DecodeToken(encoded string) (string, error) {
	s, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorEncoding, err)
	}
	return s, nil
}

func isAlphanumeric(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func validateHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty host", common.ErrorEncoding)
	}
	for i := 0; i < len(host); i++ {
		c := host[i]
		if isAlphanumeric(c) || c == '.' || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("%w: host %q contains %q", common.ErrorEncoding, host, c)
	}
	return nil
}

func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s", common.ErrorEncoding, kind)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isAlphanumeric(c) || c == '_' || c == '-' || c == '.' {
			continue
		}
		return fmt.Errorf("%w: %s %q contains %q", common.ErrorEncoding, kind, name, c)
	}
	return nil
}
