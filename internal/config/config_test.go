package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/iacaws/internal/util/async"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Namespace)
	assert.Equal(t, 4, cfg.Pool.CoreSize)
	assert.Equal(t, 8, cfg.Pool.MaxSize)
	assert.Equal(t, 60*time.Second, cfg.Pool.KeepAlive)
	assert.Equal(t, 0, cfg.Pool.QueueCapacity)
	assert.Equal(t, async.CallerRuns, cfg.Pool.Policy)

	assert.Equal(t, time.Second, cfg.Backoff.InitialDelay)
	assert.Equal(t, 2.0, cfg.Backoff.Multiplier)
	assert.Equal(t, 5*time.Minute, cfg.Backoff.MaxDelay)
	assert.Equal(t, 10, cfg.Backoff.MaxAttempts)

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "ami-0abcdef1234567890", cfg.AWS.ImageID)
	assert.Equal(t, "mysql", cfg.AWS.DBEngine)
	assert.Equal(t, int32(20), cfg.AWS.AllocatedStorage)

	assert.True(t, cfg.Outcomes.StatusWriteBack)
	assert.False(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.SerializePerResource)
	assert.False(t, cfg.SkipProvisionedOnResync)
	assert.Equal(t, ":8081", cfg.Manager.HealthProbeBindAddress)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
namespace: team-a
serialize_per_resource: true
drain_timeout: 2m
pool:
  core_size: 2
  max_size: 16
  keep_alive: 30s
  queue_capacity: 100
  policy: drop-oldest
backoff:
  initial_delay: 500ms
  multiplier: 1.5
  max_delay: 1m
  max_attempts: 3
aws:
  region: eu-west-1
  image_id: ami-123
  tags:
    team: platform
outcomes:
  bucket: outcomes
  prefix: prod
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "team-a", cfg.Namespace)
	assert.True(t, cfg.SerializePerResource)
	assert.Equal(t, 2*time.Minute, cfg.DrainTimeout)
	assert.Equal(t, 2, cfg.Pool.CoreSize)
	assert.Equal(t, 16, cfg.Pool.MaxSize)
	assert.Equal(t, 30*time.Second, cfg.Pool.KeepAlive)
	assert.Equal(t, 100, cfg.Pool.QueueCapacity)
	assert.Equal(t, async.DropOldest, cfg.Pool.Policy)
	assert.Equal(t, 500*time.Millisecond, cfg.Backoff.InitialDelay)
	assert.Equal(t, 1.5, cfg.Backoff.Multiplier)
	assert.Equal(t, time.Minute, cfg.Backoff.MaxDelay)
	assert.Equal(t, 3, cfg.Backoff.MaxAttempts)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "ami-123", cfg.AWS.ImageID)
	assert.Equal(t, "mysql", cfg.AWS.DBEngine, "unset keys keep their defaults")
	assert.Equal(t, map[string]string{"team": "platform"}, cfg.AWS.Tags)
	assert.True(t, cfg.ArchiveEnabled())
	assert.Equal(t, "prod", cfg.Outcomes.Prefix)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
pool:
  core_size: 2
  max_size: 4
`)
	t.Setenv("IACAWS_POOL_MAX_SIZE", "12")
	t.Setenv("IACAWS_POOL_POLICY", "Block")
	t.Setenv("IACAWS_BACKOFF_INITIAL_DELAY", "250ms")
	t.Setenv("IACAWS_OUTCOMES_STATUS_WRITE_BACK", "false")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Pool.CoreSize)
	assert.Equal(t, 12, cfg.Pool.MaxSize)
	assert.Equal(t, async.Block, cfg.Pool.Policy)
	assert.Equal(t, 250*time.Millisecond, cfg.Backoff.InitialDelay)
	assert.False(t, cfg.Outcomes.StatusWriteBack)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("IACAWS_AWS_REGION", "eu-central-1")
	t.Setenv("IACAWS_NAMESPACE", "from-env")

	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, AddFlags(fs, v))
	require.NoError(t, fs.Parse([]string{"--aws-region=ap-south-1", "--pool-policy=reject", "--leader-elect"}))

	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
	assert.Equal(t, "from-env", cfg.Namespace, "unset flags do not shadow the environment")
	assert.Equal(t, async.Reject, cfg.Pool.Policy)
	assert.True(t, cfg.Manager.LeaderElect)
	assert.Equal(t, 4, cfg.Pool.CoreSize)
}

func TestLoad_TagsFromEnvironmentAndFlags(t *testing.T) {
	t.Setenv("IACAWS_AWS_TAGS", "team=platform, env=prod")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "platform", "env": "prod"}, cfg.AWS.Tags)

	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, AddFlags(fs, v))
	require.NoError(t, fs.Parse([]string{"--aws-tags=owner=ops", "--skip-provisioned-on-resync"}))

	cfg, err = Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "ops"}, cfg.AWS.Tags)
	assert.True(t, cfg.SkipProvisionedOnResync)
}

func TestLoad_MalformedTagsFromEnvironment(t *testing.T) {
	t.Setenv("IACAWS_AWS_TAGS", "team")

	_, err := Load(NewViper(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid tag "team"`)
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", input: "", want: map[string]string{}},
		{name: "single", input: "team=platform", want: map[string]string{"team": "platform"}},
		{name: "empty value", input: "team=", want: map[string]string{"team": ""}},
		{name: "trailing comma", input: "a=1,b=2,", want: map[string]string{"a": "1", "b": "2"}},
		{name: "missing separator", input: "a=1,b", wantErr: true},
		{name: "empty key", input: "=1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseTags(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown policy",
			content: "pool:\n  policy: sometimes\n",
			errMsg:  "failed to decode config",
		},
		{
			name:    "bad duration",
			content: "pool:\n  keep_alive: soon\n",
			errMsg:  "failed to decode config",
		},
		{
			name:    "invalid pool",
			content: "pool:\n  core_size: 0\n",
			errMsg:  "pool.core_size must be at least 1",
		},
		{
			name:    "malformed yaml",
			content: "pool: [\n",
			errMsg:  "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewViper(), writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestController_ControllerConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.SerializePerResource = true
	cfg.DrainTimeout = time.Minute

	cc := cfg.ControllerConfig()
	assert.Equal(t, 4, cc.Pool.CoreSize)
	assert.Equal(t, 8, cc.Pool.MaxSize)
	assert.Equal(t, async.CallerRuns, cc.Pool.Policy)
	assert.Equal(t, 10, cc.Backoff.MaxAttempts)
	assert.Equal(t, time.Second, cc.Backoff.InitialDelay)
	assert.True(t, cc.SkipStatusOnlyUpdates, "status write-back skips status-only updates")
	assert.True(t, cc.SerializePerResource)
	assert.Equal(t, time.Minute, cc.DrainTimeout)
	assert.False(t, cc.SkipProvisionedOnResync)

	cfg.SkipProvisionedOnResync = true
	assert.True(t, cfg.ControllerConfig().SkipProvisionedOnResync)

	cfg.Outcomes.StatusWriteBack = false
	assert.False(t, cfg.ControllerConfig().SkipStatusOnlyUpdates)
}

func TestController_AWSAndS3(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.AWS.Region = "eu-west-1"
	cfg.AWS.Endpoint = "http://localhost:4566"
	cfg.AWS.AccessKeyID = "key"
	cfg.AWS.SecretAccessKey = "secret"
	cfg.AWS.Tags = map[string]string{"env": "test"}
	cfg.Outcomes.UsePathStyle = true

	ac := cfg.AWSConfig()
	assert.Equal(t, "eu-west-1", ac.Region)
	assert.Equal(t, "ami-0abcdef1234567890", ac.ImageID)
	assert.Equal(t, int32(20), ac.AllocatedStorage)
	assert.Equal(t, "http://localhost:4566", ac.Endpoint)
	assert.Equal(t, map[string]string{"env": "test"}, ac.Tags)

	so := cfg.S3Options()
	assert.Equal(t, "eu-west-1", so.Region)
	assert.Equal(t, "http://localhost:4566", so.Endpoint)
	assert.True(t, so.UsePathStyle)
	assert.Equal(t, "key", so.AccessKeyID)
	assert.Equal(t, "secret", so.SecretAccessKey)
}
