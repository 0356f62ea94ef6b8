package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// Defaults applied by NewProvisioner when the corresponding field is empty.
const (
	DefaultRegion           = "us-east-1"
	DefaultImageID          = "ami-0abcdef1234567890"
	DefaultDBEngine         = "mysql"
	DefaultAllocatedStorage = 20
)

// EC2API is the subset of the EC2 client used by Provisioner.
type EC2API interface {
	CreateVpc(ctx context.Context, params *ec2.CreateVpcInput, optFns ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
}

// RDSAPI is the subset of the RDS client used by Provisioner.
type RDSAPI interface {
	CreateDBInstance(ctx context.Context, params *rds.CreateDBInstanceInput, optFns ...func(*rds.Options)) (*rds.CreateDBInstanceOutput, error)
}

// Config holds the AWS settings that are not part of a resource spec.
type Config struct {
	Region string
	// ImageID is the AMI launched for every compute instance.
	ImageID string
	// DBEngine is the RDS engine, e.g. mysql.
	DBEngine string
	// AllocatedStorage is the database storage in GiB.
	AllocatedStorage int32
	// Endpoint overrides the service endpoint (LocalStack, VPC endpoints).
	Endpoint string
	// AccessKeyID and SecretAccessKey, when set, replace the default credential chain.
	AccessKeyID     string
	SecretAccessKey string
	// Tags are added to every created resource.
	Tags map[string]string
}

func (c Config) withDefaults() Config {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.ImageID == "" {
		c.ImageID = DefaultImageID
	}
	if c.DBEngine == "" {
		c.DBEngine = DefaultDBEngine
	}
	if c.AllocatedStorage <= 0 {
		c.AllocatedStorage = DefaultAllocatedStorage
	}
	return c
}

// Provisioner creates VPCs, EC2 instances and RDS instances.
type Provisioner struct {
	ec2 EC2API
	rds RDSAPI
	cfg Config
}

// NewProvisioner creates a Provisioner using the given API clients.
func NewProvisioner(ec2Client EC2API, rdsClient RDSAPI, cfg Config) *Provisioner {
	return &Provisioner{
		ec2: ec2Client,
		rds: rdsClient,
		cfg: cfg.withDefaults(),
	}
}

// NewFromConfig loads the AWS configuration for cfg.Region and creates a
// Provisioner backed by real EC2 and RDS clients. Credentials come from the
// default chain (environment, shared config, instance role) unless static
// keys are configured.
func NewFromConfig(ctx context.Context, cfg Config) (*Provisioner, error) {
	cfg = cfg.withDefaults()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	ec2Client := ec2.NewFromConfig(awsCfg, func(o *ec2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = sdkaws.String(cfg.Endpoint)
		}
	})
	rdsClient := rds.NewFromConfig(awsCfg, func(o *rds.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = sdkaws.String(cfg.Endpoint)
		}
	})

	return NewProvisioner(ec2Client, rdsClient, cfg), nil
}

// Config returns the effective configuration.
func (p *Provisioner) Config() Config {
	return p.cfg
}
