package config

import (
	"time"

	"github.com/imamik/iacaws/internal/operator/controller"
	"github.com/imamik/iacaws/internal/platform/aws"
	"github.com/imamik/iacaws/internal/platform/s3"
	"github.com/imamik/iacaws/internal/util/async"
	"github.com/imamik/iacaws/internal/util/retry"
)

// Controller is the complete operator configuration.
type Controller struct {
	// Namespace limits the watch to one namespace; empty watches all.
	Namespace string `mapstructure:"namespace"`

	// SerializePerResource runs at most one reconciliation per resource at a time.
	SerializePerResource bool `mapstructure:"serialize_per_resource"`

	// SkipProvisionedOnResync skips resources whose current generation is
	// already Provisioned when the watch replays them as Added.
	SkipProvisionedOnResync bool `mapstructure:"skip_provisioned_on_resync"`

	// DrainTimeout bounds how long shutdown waits for queued reconciliations; 0 waits forever.
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`

	Pool     Pool     `mapstructure:"pool"`
	Backoff  Backoff  `mapstructure:"backoff"`
	AWS      AWS      `mapstructure:"aws"`
	Outcomes Outcomes `mapstructure:"outcomes"`
	Manager  Manager  `mapstructure:"manager"`
}

// Pool configures the reconciliation worker pool.
type Pool struct {
	CoreSize      int                    `mapstructure:"core_size"`
	MaxSize       int                    `mapstructure:"max_size"`
	KeepAlive     time.Duration          `mapstructure:"keep_alive"`
	QueueCapacity int                    `mapstructure:"queue_capacity"`
	Policy        async.SaturationPolicy `mapstructure:"policy"`
}

// Backoff configures watch reconnection.
type Backoff struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// AWS configures the EC2 and RDS provisioner.
type AWS struct {
	Region           string            `mapstructure:"region"`
	ImageID          string            `mapstructure:"image_id"`
	DBEngine         string            `mapstructure:"db_engine"`
	AllocatedStorage int32             `mapstructure:"allocated_storage"`
	Endpoint         string            `mapstructure:"endpoint"`
	AccessKeyID      string            `mapstructure:"access_key_id"`
	SecretAccessKey  string            `mapstructure:"secret_access_key"`
	Tags             map[string]string `mapstructure:"tags"`
}

// Outcomes configures where reconciliation outcomes are recorded.
type Outcomes struct {
	// StatusWriteBack writes each outcome to the resource status subresource.
	StatusWriteBack bool `mapstructure:"status_write_back"`
	// Bucket enables the S3 archive when non-empty.
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	// UsePathStyle addresses the bucket by path, needed by most S3-compatible stores.
	UsePathStyle bool `mapstructure:"use_path_style"`
}

// Manager holds the controller-runtime manager settings.
type Manager struct {
	MetricsBindAddress     string `mapstructure:"metrics_bind_address"`
	HealthProbeBindAddress string `mapstructure:"health_probe_bind_address"`
	LeaderElect            bool   `mapstructure:"leader_elect"`
	LeaderElectionID       string `mapstructure:"leader_election_id"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Controller {
	backoff := retry.DefaultConfig()
	return &Controller{
		Pool: Pool{
			CoreSize:  4,
			MaxSize:   8,
			KeepAlive: 60 * time.Second,
			Policy:    async.CallerRuns,
		},
		Backoff: Backoff{
			InitialDelay: backoff.InitialDelay,
			Multiplier:   backoff.Multiplier,
			MaxDelay:     backoff.MaxDelay,
			MaxAttempts:  backoff.MaxAttempts,
		},
		AWS: AWS{
			Region:           aws.DefaultRegion,
			ImageID:          aws.DefaultImageID,
			DBEngine:         aws.DefaultDBEngine,
			AllocatedStorage: aws.DefaultAllocatedStorage,
		},
		Outcomes: Outcomes{
			StatusWriteBack: true,
			Prefix:          "outcomes",
		},
		Manager: Manager{
			MetricsBindAddress:     ":8080",
			HealthProbeBindAddress: ":8081",
			LeaderElectionID:       "iacaws-operator.example.com",
		},
	}
}

// ControllerConfig converts the settings into a controller configuration.
// Status-only updates are skipped whenever the operator writes status,
// otherwise every status write would trigger another reconciliation.
func (c *Controller) ControllerConfig() controller.Config {
	return controller.Config{
		Pool: async.PoolConfig{
			CoreSize:      c.Pool.CoreSize,
			MaxSize:       c.Pool.MaxSize,
			KeepAlive:     c.Pool.KeepAlive,
			QueueCapacity: c.Pool.QueueCapacity,
			Policy:        c.Pool.Policy,
		},
		Backoff: retry.Config{
			MaxAttempts:  c.Backoff.MaxAttempts,
			InitialDelay: c.Backoff.InitialDelay,
			MaxDelay:     c.Backoff.MaxDelay,
			Multiplier:   c.Backoff.Multiplier,
		},
		SkipStatusOnlyUpdates:   c.Outcomes.StatusWriteBack,
		SkipProvisionedOnResync: c.SkipProvisionedOnResync,
		SerializePerResource:    c.SerializePerResource,
		DrainTimeout:            c.DrainTimeout,
	}
}

// AWSConfig converts the settings into a provisioner configuration.
func (c *Controller) AWSConfig() aws.Config {
	return aws.Config{
		Region:           c.AWS.Region,
		ImageID:          c.AWS.ImageID,
		DBEngine:         c.AWS.DBEngine,
		AllocatedStorage: c.AWS.AllocatedStorage,
		Endpoint:         c.AWS.Endpoint,
		AccessKeyID:      c.AWS.AccessKeyID,
		SecretAccessKey:  c.AWS.SecretAccessKey,
		Tags:             c.AWS.Tags,
	}
}

// S3Options returns the client options for the outcome archive. The archive
// shares region, endpoint and credentials with the provisioner.
func (c *Controller) S3Options() s3.Options {
	return s3.Options{
		Region:          c.AWS.Region,
		Endpoint:        c.AWS.Endpoint,
		UsePathStyle:    c.Outcomes.UsePathStyle,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
	}
}

// ArchiveEnabled reports whether outcomes are archived to S3.
func (c *Controller) ArchiveEnabled() bool {
	return c.Outcomes.Bucket != ""
}
