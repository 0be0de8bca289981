// Package auth obtains short-lived Aurora DSQL auth tokens.
//
// A token is a SigV4-presigned "connect" request for the cluster endpoint,
// used as the database password. Admin and regular roles sign different
// actions (DbConnectAdmin vs DbConnect); a token of one kind is rejected when
// used for the other, so the provider never falls back between them.
//
// Tokens are not cached. Each call resolves credentials and signs anew.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
)

const (
	signingName        = "dsql"
	actionConnect      = "DbConnect"
	actionConnectAdmin = "DbConnectAdmin"

	// SHA-256 of an empty payload.
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

var (
	hostnameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?)*$`)
	regionRe   = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]+$`)

	errNoCredentials = errors.New("no credentials provider resolved")
)

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// CredentialsSource resolves the cloud identity used to sign tokens.
type CredentialsSource func(ctx context.Context, region string) (aws.CredentialsProvider, error)

// Signer is the part of the SigV4 signer the provider needs.
type Signer interface {
	PresignHTTP(ctx context.Context, credentials aws.Credentials, r *http.Request,
		payloadHash string, service string, region string, signingTime time.Time,
		optFns ...func(*v4.SignerOptions)) (string, http.Header, error)
}

// DefaultCredentials resolves the standard AWS credential chain
// (environment, shared config, SSO, instance metadata).
func DefaultCredentials(ctx context.Context, region string) (aws.CredentialsProvider, error) {
	cfg, err := loadDefaultAWSConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	if cfg.Credentials == nil {
		return nil, errNoCredentials
	}
	return cfg.Credentials, nil
}

// StaticCredentials returns a source that always yields the given keys.
func StaticCredentials(accessKey, secretKey, sessionToken string) CredentialsSource {
	return func(context.Context, string) (aws.CredentialsProvider, error) {
		return credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken), nil
	}
}

// TokenProvider generates auth tokens for a cluster endpoint.
type TokenProvider struct {
	credentials CredentialsSource
	signer      Signer
	expiresIn   time.Duration
	now         func() time.Time
}

// Option configures a TokenProvider.
type Option func(*TokenProvider)

// WithSigner replaces the SigV4 signer.
func WithSigner(s Signer) Option {
	return func(p *TokenProvider) { p.signer = s }
}

// WithExpiry sets the token validity window requested from the issuer.
func WithExpiry(d time.Duration) Option {
	return func(p *TokenProvider) {
		if d > 0 {
			p.expiresIn = d
		}
	}
}

// WithClock sets the signing time source.
func WithClock(now func() time.Time) Option {
	return func(p *TokenProvider) { p.now = now }
}

// NewTokenProvider builds a provider that resolves identity through source.
// A nil source means DefaultCredentials.
func NewTokenProvider(source CredentialsSource, opts ...Option) *TokenProvider {
	if source == nil {
		source = DefaultCredentials
	}
	p := &TokenProvider{
		credentials: source,
		signer:      v4.NewSigner(),
		expiresIn:   common.TokenValidity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateToken returns a token for endpoint in region. admin selects the
// DbConnectAdmin action; otherwise DbConnect is signed.
//
// Malformed input fails with common.ErrorEncoding before any credential
// lookup. Identity and signing failures are wrapped in common.ErrorCredential.
// Nothing is retried here.
func (p *TokenProvider) GenerateToken(ctx context.Context, endpoint, region string, admin bool) (string, error) {
	if !hostnameRe.MatchString(endpoint) {
		return "", fmt.Errorf("%w: malformed endpoint %q", common.ErrorEncoding, endpoint)
	}
	if !regionRe.MatchString(region) {
		return "", fmt.Errorf("%w: malformed region %q", common.ErrorEncoding, region)
	}

	provider, err := p.credentials(ctx, region)
	if err != nil {
		return "", fmt.Errorf("%w: resolve identity: %w", common.ErrorCredential, err)
	}
	if provider == nil {
		return "", fmt.Errorf("%w: %w", common.ErrorCredential, errNoCredentials)
	}
	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: retrieve credentials: %w", common.ErrorCredential, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+endpoint+"/", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorEncoding, err)
	}
	values := req.URL.Query()
	values.Set("Action", Action(admin))
	values.Set("X-Amz-Expires", strconv.FormatInt(int64(p.expiresIn/time.Second), 10))
	req.URL.RawQuery = values.Encode()

	signed, _, err := p.signer.PresignHTTP(ctx, creds, req, emptyPayloadHash, signingName, region, p.now().UTC())
	if err != nil {
		return "", fmt.Errorf("%w: sign request: %w", common.ErrorCredential, err)
	}

	return strings.TrimPrefix(signed, "https://"), nil
}

// Action returns the signed action for the requested privilege level.
func Action(admin bool) string {
	if admin {
		return actionConnectAdmin
	}
	return actionConnect
}

// RegionFromEndpoint extracts the region from a "<cluster>.dsql.<region>.on.aws"
// endpoint. ok is false for any other shape.
func RegionFromEndpoint(endpoint string) (region string, ok bool) {
	labels := strings.Split(endpoint, ".")
	if len(labels) < 3 || labels[1] != signingName || labels[2] == "" {
		return "", false
	}
	return labels[2], true
}
