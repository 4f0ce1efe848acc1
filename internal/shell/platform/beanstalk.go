package platform

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"

	"github.com/artpar/beanstalker/internal/core/domain"
)

// beanstalkAPI is the subset of the Elastic Beanstalk client used here.
type beanstalkAPI interface {
	CreateStorageLocation(ctx context.Context, params *elasticbeanstalk.CreateStorageLocationInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.CreateStorageLocationOutput, error)
	DescribeApplicationVersions(ctx context.Context, params *elasticbeanstalk.DescribeApplicationVersionsInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DescribeApplicationVersionsOutput, error)
	DeleteApplicationVersion(ctx context.Context, params *elasticbeanstalk.DeleteApplicationVersionInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DeleteApplicationVersionOutput, error)
	DescribeEnvironments(ctx context.Context, params *elasticbeanstalk.DescribeEnvironmentsInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DescribeEnvironmentsOutput, error)
	CreateEnvironment(ctx context.Context, params *elasticbeanstalk.CreateEnvironmentInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.CreateEnvironmentOutput, error)
	UpdateEnvironment(ctx context.Context, params *elasticbeanstalk.UpdateEnvironmentInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.UpdateEnvironmentOutput, error)
	CreateApplicationVersion(ctx context.Context, params *elasticbeanstalk.CreateApplicationVersionInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.CreateApplicationVersionOutput, error)
}

// Beanstalk implements Hosting for AWS Elastic Beanstalk.
type Beanstalk struct {
	client beanstalkAPI
	logger *slog.Logger
}

// NewBeanstalk creates a Hosting client backed by Elastic Beanstalk.
func NewBeanstalk(client beanstalkAPI, logger *slog.Logger) *Beanstalk {
	if logger == nil {
		logger = slog.Default()
	}
	return &Beanstalk{
		client: client,
		logger: logger.With("service", "elasticbeanstalk"),
	}
}

// StorageLocation returns the account's Elastic Beanstalk artifact bucket,
// creating it on first use.
func (b *Beanstalk) StorageLocation(ctx context.Context) (string, error) {
	out, err := b.client.CreateStorageLocation(ctx, &elasticbeanstalk.CreateStorageLocationInput{})
	if err != nil {
		return "", serviceError("create storage location", "elasticbeanstalk", err)
	}
	bucket := aws.ToString(out.S3Bucket)
	if bucket == "" {
		return "", serviceError("create storage location", "elasticbeanstalk", errors.New("no bucket returned"))
	}
	return bucket, nil
}

// ListVersions returns every registered version of an application, following pagination.
func (b *Beanstalk) ListVersions(ctx context.Context, application string) ([]domain.ApplicationVersion, error) {
	var versions []domain.ApplicationVersion
	var nextToken *string

	for {
		out, err := b.client.DescribeApplicationVersions(ctx, &elasticbeanstalk.DescribeApplicationVersionsInput{
			ApplicationName: aws.String(application),
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, serviceError("describe application versions", application, err)
		}
		for _, v := range out.ApplicationVersions {
			versions = append(versions, versionFromDescription(v))
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		nextToken = out.NextToken
	}

	b.logger.Debug("listed application versions", "application", application, "count", len(versions))
	return versions, nil
}

// DeleteVersion deletes an application version.
func (b *Beanstalk) DeleteVersion(ctx context.Context, application, label string, deleteSourceBundle bool) error {
	_, err := b.client.DeleteApplicationVersion(ctx, &elasticbeanstalk.DeleteApplicationVersionInput{
		ApplicationName:    aws.String(application),
		VersionLabel:       aws.String(label),
		DeleteSourceBundle: aws.Bool(deleteSourceBundle),
	})
	if err != nil {
		return serviceError("delete application version", label, err)
	}
	return nil
}

// DescribeEnvironments returns the environments matching the filter.
// Deleted environments are excluded.
func (b *Beanstalk) DescribeEnvironments(ctx context.Context, filter EnvironmentFilter) ([]domain.Environment, error) {
	target := filter.Application
	if len(filter.Names) > 0 {
		target = strings.Join(filter.Names, ",")
	}

	var envs []domain.Environment
	var nextToken *string

	for {
		in := &elasticbeanstalk.DescribeEnvironmentsInput{
			EnvironmentNames: filter.Names,
			IncludeDeleted:   aws.Bool(false),
			NextToken:        nextToken,
		}
		if filter.Application != "" {
			in.ApplicationName = aws.String(filter.Application)
		}

		out, err := b.client.DescribeEnvironments(ctx, in)
		if err != nil {
			return nil, serviceError("describe environments", target, err)
		}
		for _, e := range out.Environments {
			envs = append(envs, environmentFromDescription(e))
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		nextToken = out.NextToken
	}

	return envs, nil
}

// CreateEnvironment launches a new environment.
func (b *Beanstalk) CreateEnvironment(ctx context.Context, req CreateEnvironmentRequest) (*domain.Environment, error) {
	in := &elasticbeanstalk.CreateEnvironmentInput{
		ApplicationName: aws.String(req.Application),
		EnvironmentName: aws.String(req.Environment),
		VersionLabel:    aws.String(req.VersionLabel),
	}
	if req.TemplateName != "" {
		in.TemplateName = aws.String(req.TemplateName)
	}

	out, err := b.client.CreateEnvironment(ctx, in)
	if err != nil {
		return nil, serviceError("create environment", req.Environment, err)
	}

	env := &domain.Environment{
		ID:              aws.ToString(out.EnvironmentId),
		Name:            aws.ToString(out.EnvironmentName),
		ApplicationName: aws.ToString(out.ApplicationName),
		VersionLabel:    aws.ToString(out.VersionLabel),
		TemplateName:    aws.ToString(out.TemplateName),
		Status:          domain.EnvironmentStatus(out.Status),
	}
	b.logger.Info("created environment", "environment", env.Name, "environment_id", env.ID, "status", env.Status)
	return env, nil
}

// UpdateEnvironment reassigns the version of an environment.
func (b *Beanstalk) UpdateEnvironment(ctx context.Context, req UpdateEnvironmentRequest) (*domain.Environment, error) {
	out, err := b.client.UpdateEnvironment(ctx, &elasticbeanstalk.UpdateEnvironmentInput{
		EnvironmentName: aws.String(req.Environment),
		VersionLabel:    aws.String(req.VersionLabel),
	})
	if err != nil {
		return nil, serviceError("update environment", req.Environment, err)
	}

	env := &domain.Environment{
		ID:              aws.ToString(out.EnvironmentId),
		Name:            aws.ToString(out.EnvironmentName),
		ApplicationName: aws.ToString(out.ApplicationName),
		VersionLabel:    aws.ToString(out.VersionLabel),
		TemplateName:    aws.ToString(out.TemplateName),
		Status:          domain.EnvironmentStatus(out.Status),
	}
	b.logger.Info("updated environment", "environment", env.Name, "environment_id", env.ID, "status", env.Status)
	return env, nil
}

// CreateApplicationVersion registers a source bundle as a new version.
func (b *Beanstalk) CreateApplicationVersion(ctx context.Context, req CreateVersionRequest) (*domain.ApplicationVersion, error) {
	out, err := b.client.CreateApplicationVersion(ctx, &elasticbeanstalk.CreateApplicationVersionInput{
		ApplicationName:       aws.String(req.Application),
		VersionLabel:          aws.String(req.VersionLabel),
		Description:           aws.String(req.Description),
		AutoCreateApplication: aws.Bool(req.AutoCreateApplication),
		SourceBundle: &ebtypes.S3Location{
			S3Bucket: aws.String(req.SourceBundle.Bucket),
			S3Key:    aws.String(req.SourceBundle.Key),
		},
	})
	if err != nil {
		return nil, serviceError("create application version", req.VersionLabel, err)
	}
	if out.ApplicationVersion == nil {
		return &domain.ApplicationVersion{
			ApplicationName: req.Application,
			VersionLabel:    req.VersionLabel,
			Description:     req.Description,
			SourceBundle:    req.SourceBundle,
		}, nil
	}

	version := versionFromDescription(*out.ApplicationVersion)
	return &version, nil
}

func versionFromDescription(d ebtypes.ApplicationVersionDescription) domain.ApplicationVersion {
	v := domain.ApplicationVersion{
		ApplicationName: aws.ToString(d.ApplicationName),
		VersionLabel:    aws.ToString(d.VersionLabel),
		Description:     aws.ToString(d.Description),
		CreatedAt:       aws.ToTime(d.DateCreated),
		UpdatedAt:       aws.ToTime(d.DateUpdated),
	}
	if d.SourceBundle != nil {
		v.SourceBundle = domain.SourceBundleLocation{
			Bucket: aws.ToString(d.SourceBundle.S3Bucket),
			Key:    aws.ToString(d.SourceBundle.S3Key),
		}
	}
	return v
}

func environmentFromDescription(d ebtypes.EnvironmentDescription) domain.Environment {
	return domain.Environment{
		ID:              aws.ToString(d.EnvironmentId),
		Name:            aws.ToString(d.EnvironmentName),
		ApplicationName: aws.ToString(d.ApplicationName),
		VersionLabel:    aws.ToString(d.VersionLabel),
		TemplateName:    aws.ToString(d.TemplateName),
		Status:          domain.EnvironmentStatus(d.Status),
	}
}
