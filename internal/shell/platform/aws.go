package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	coreprovider "github.com/artpar/beanstalker/internal/core/provider"
)

// DefaultSessionName names assumed-role sessions when none is configured.
const DefaultSessionName = "beanstalker"

// Settings holds what is needed to reach the AWS APIs.
type Settings struct {
	Region            string
	S3Endpoint        string // optional, e.g. for LocalStack
	BeanstalkEndpoint string // optional
	Bucket            string // optional artifact bucket override
	Credentials       coreprovider.CredentialSettings
}

// Clients bundles the service clients a deployment needs.
type Clients struct {
	Hosting Hosting
	Storage Storage
}

// NewCredentials builds the credentials supplier from settings:
// a static key pair, the default chain (environment, then shared profile),
// or an STS role exchange on top of either.
func NewCredentials(ctx context.Context, region string, s coreprovider.CredentialSettings) (aws.CredentialsProvider, error) {
	if err := coreprovider.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid credential settings: %w", err)
	}

	var base aws.CredentialsProvider
	if s.AccessKeyID != "" {
		base = credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken)
	}

	if s.Mode() != coreprovider.ModeAssumeRole {
		if base != nil {
			return base, nil
		}
		cfg, err := loadConfig(ctx, region, s.Profile, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load default credentials: %w", err)
		}
		return cfg.Credentials, nil
	}

	roleARN, err := coreprovider.ResolveRoleARN(s)
	if err != nil {
		return nil, err
	}
	baseCfg, err := loadConfig(ctx, region, s.Profile, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load base config for role %s: %w", roleARN, err)
	}

	sessionName := coreprovider.Coalesce(s.SessionName, DefaultSessionName)
	assume := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(baseCfg), roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionName
	})
	return aws.NewCredentialsCache(assume), nil
}

// LoadAWSConfig builds an aws.Config signing with creds. Retries are
// disabled: every failed call surfaces to the caller as is.
func LoadAWSConfig(ctx context.Context, region string, creds aws.CredentialsProvider) (aws.Config, error) {
	return loadConfig(ctx, region, "", creds)
}

func loadConfig(ctx context.Context, region, profile string, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if creds != nil {
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// NewClients creates the Elastic Beanstalk and S3 clients.
func NewClients(ctx context.Context, s Settings, creds aws.CredentialsProvider, logger *slog.Logger) (*Clients, error) {
	cfg, err := loadConfig(ctx, s.Region, s.Credentials.Profile, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	eb := elasticbeanstalk.NewFromConfig(cfg, func(o *elasticbeanstalk.Options) {
		if s.BeanstalkEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BeanstalkEndpoint)
		}
	})
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(s.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	hosting := NewBeanstalk(eb, logger)
	return &Clients{
		Hosting: hosting,
		Storage: NewS3Storage(s3Client, hosting, s.Bucket, logger),
	}, nil
}
