package connx

import (
	"net/url"
	"strings"
	"testing"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const host = "abc123.dsql.us-east-1.on.aws"

func TestEncodeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "alphanumeric untouched", token: "AbC123", want: "AbC123"},
		{name: "slash", token: "a/b", want: "a%2Fb"},
		{name: "plus", token: "a+b", want: "a%2Bb"},
		{name: "equals", token: "a=b", want: "a%3Db"},
		{name: "colon", token: "a:b", want: "a%3Ab"},
		{name: "unreserved are escaped too", token: "-_.~", want: "%2D%5F%2E%7E"},
		{name: "multi-byte", token: "é", want: "%C3%A9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeToken(tt.token))
		})
	}
}

func TestBuildConnectionString_RoundTrip(t *testing.T) {
	tokens := []string{
		"host/?Action=DbConnectAdmin&X-Amz-Signature=ab+cd==",
		"a:b:c",
		"slash/plus+equals=colon:",
		"токен/é+=:",
		"%41 already%20encoded",
	}

	for _, token := range tokens {
		t.Run(token, func(t *testing.T) {
			dsn, err := BuildConnectionString("admin", token, host, 5432, "postgres")
			require.NoError(t, err)

			u, err := url.Parse(dsn)
			require.NoError(t, err)
			pw, ok := u.User.Password()
			require.True(t, ok)
			assert.Equal(t, token, pw)
			assert.Equal(t, "admin", u.User.Username())
			assert.Equal(t, host+":5432", u.Host)

			cfg, err := pgx.ParseConfig(dsn)
			require.NoError(t, err)
			assert.Equal(t, token, cfg.Password)
			assert.Equal(t, host, cfg.Host)
			assert.Equal(t, uint16(5432), cfg.Port)
			assert.Equal(t, "postgres", cfg.Database)

			encoded := dsn[len("postgres://admin:"):strings.Index(dsn, "@")]
			decoded, err := DecodeToken(encoded)
			require.NoError(t, err)
			assert.Equal(t, []byte(token), []byte(decoded))
		})
	}
}

func TestBuildConnectionString_Format(t *testing.T) {
	dsn, err := BuildConnectionString("app", "t/k", host, 5432, "postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:t%2Fk@"+host+":5432/postgres?sslmode=require", dsn)
}

func TestBuildConnectionString_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		token    string
		host     string
		port     int
		database string
	}{
		{name: "empty token", user: "admin", token: "", host: host, port: 5432, database: "postgres"},
		{name: "empty host", user: "admin", token: "t", host: "", port: 5432, database: "postgres"},
		{name: "host with slash", user: "admin", token: "t", host: "a/b", port: 5432, database: "postgres"},
		{name: "host with at", user: "admin", token: "t", host: "a@b", port: 5432, database: "postgres"},
		{name: "port zero", user: "admin", token: "t", host: host, port: 0, database: "postgres"},
		{name: "port too large", user: "admin", token: "t", host: host, port: 70000, database: "postgres"},
		{name: "user with colon", user: "ad:min", token: "t", host: host, port: 5432, database: "postgres"},
		{name: "empty database", user: "admin", token: "t", host: host, port: 5432, database: ""},
		{name: "database with query", user: "admin", token: "t", host: host, port: 5432, database: "db?x=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildConnectionString(tt.user, tt.token, tt.host, tt.port, tt.database)
			require.ErrorIs(t, err, common.ErrorEncoding)
		})
	}
}

func TestNewDescriptor_AdminFromUser(t *testing.T) {
	assert.True(t, NewDescriptor(host, 5432, "admin", "postgres", "us-east-1").Admin)
	assert.True(t, NewDescriptor(host, 5432, "ADMIN", "postgres", "us-east-1").Admin)
	assert.False(t, NewDescriptor(host, 5432, "app_user", "postgres", "us-east-1").Admin)
}

func TestDescriptor_ConnectionString(t *testing.T) {
	d := NewDescriptor(host, 5432, "admin", "postgres", "us-east-1")
	dsn, err := d.ConnectionString("a=b")
	require.NoError(t, err)
	assert.Contains(t, dsn, "admin:a%3Db@")
}

func TestDecodeToken_Malformed(t *testing.T) {
	_, err := DecodeToken("%zz")
	require.ErrorIs(t, err, common.ErrorEncoding)
}
