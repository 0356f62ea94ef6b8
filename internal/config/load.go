package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. IACAWS_POOL_CORE_SIZE.
const EnvPrefix = "IACAWS"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"namespace":                  "namespace",
	"serialize-per-resource":     "serialize_per_resource",
	"skip-provisioned-on-resync": "skip_provisioned_on_resync",
	"drain-timeout":              "drain_timeout",
	"pool-core-size":             "pool.core_size",
	"pool-max-size":              "pool.max_size",
	"pool-keep-alive":            "pool.keep_alive",
	"pool-queue-capacity":        "pool.queue_capacity",
	"pool-policy":                "pool.policy",
	"backoff-initial-delay":      "backoff.initial_delay",
	"backoff-multiplier":         "backoff.multiplier",
	"backoff-max-delay":          "backoff.max_delay",
	"backoff-max-attempts":       "backoff.max_attempts",
	"aws-region":                 "aws.region",
	"aws-image-id":               "aws.image_id",
	"aws-db-engine":              "aws.db_engine",
	"aws-allocated-storage":      "aws.allocated_storage",
	"aws-endpoint":               "aws.endpoint",
	"aws-tags":                   "aws.tags",
	"status-write-back":          "outcomes.status_write_back",
	"outcome-bucket":             "outcomes.bucket",
	"outcome-prefix":             "outcomes.prefix",
	"metrics-bind-address":       "manager.metrics_bind_address",
	"health-probe-bind-address":  "manager.health_probe_bind_address",
	"leader-elect":               "manager.leader_elect",
	"leader-election-id":         "manager.leader_election_id",
}

// NewViper returns a viper instance with defaults registered and
// IACAWS_* environment variables enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// aws.tags has no scalar default, so AutomaticEnv alone would not see
	// IACAWS_AWS_TAGS.
	_ = v.BindEnv("aws.tags")
	return v
}

// SetDefaults registers every key of Default with v. Environment variables
// are only consulted for keys viper knows about.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("namespace", d.Namespace)
	v.SetDefault("serialize_per_resource", d.SerializePerResource)
	v.SetDefault("skip_provisioned_on_resync", d.SkipProvisionedOnResync)
	v.SetDefault("drain_timeout", d.DrainTimeout)

	v.SetDefault("pool.core_size", d.Pool.CoreSize)
	v.SetDefault("pool.max_size", d.Pool.MaxSize)
	v.SetDefault("pool.keep_alive", d.Pool.KeepAlive)
	v.SetDefault("pool.queue_capacity", d.Pool.QueueCapacity)
	v.SetDefault("pool.policy", d.Pool.Policy.String())

	v.SetDefault("backoff.initial_delay", d.Backoff.InitialDelay)
	v.SetDefault("backoff.multiplier", d.Backoff.Multiplier)
	v.SetDefault("backoff.max_delay", d.Backoff.MaxDelay)
	v.SetDefault("backoff.max_attempts", d.Backoff.MaxAttempts)

	v.SetDefault("aws.region", d.AWS.Region)
	v.SetDefault("aws.image_id", d.AWS.ImageID)
	v.SetDefault("aws.db_engine", d.AWS.DBEngine)
	v.SetDefault("aws.allocated_storage", d.AWS.AllocatedStorage)
	v.SetDefault("aws.endpoint", d.AWS.Endpoint)
	v.SetDefault("aws.access_key_id", d.AWS.AccessKeyID)
	v.SetDefault("aws.secret_access_key", d.AWS.SecretAccessKey)

	v.SetDefault("outcomes.status_write_back", d.Outcomes.StatusWriteBack)
	v.SetDefault("outcomes.bucket", d.Outcomes.Bucket)
	v.SetDefault("outcomes.prefix", d.Outcomes.Prefix)
	v.SetDefault("outcomes.use_path_style", d.Outcomes.UsePathStyle)

	v.SetDefault("manager.metrics_bind_address", d.Manager.MetricsBindAddress)
	v.SetDefault("manager.health_probe_bind_address", d.Manager.HealthProbeBindAddress)
	v.SetDefault("manager.leader_elect", d.Manager.LeaderElect)
	v.SetDefault("manager.leader_election_id", d.Manager.LeaderElectionID)
}

// AddFlags registers the operator flags on fs and binds them to v.
// A flag only overrides the other sources when it is set explicitly.
func AddFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := Default()

	fs.String("namespace", d.Namespace, "Namespace to watch (empty watches all namespaces)")
	fs.Bool("serialize-per-resource", d.SerializePerResource, "Run at most one reconciliation per resource at a time")
	fs.Bool("skip-provisioned-on-resync", d.SkipProvisionedOnResync,
		"Skip resources whose current generation is already Provisioned when the watch replays them")
	fs.Duration("drain-timeout", d.DrainTimeout, "Maximum time to wait for queued reconciliations on shutdown (0 waits forever)")

	fs.Int("pool-core-size", d.Pool.CoreSize, "Workers kept alive while idle")
	fs.Int("pool-max-size", d.Pool.MaxSize, "Maximum concurrent workers")
	fs.Duration("pool-keep-alive", d.Pool.KeepAlive, "Idle time before a worker above the core size exits")
	fs.Int("pool-queue-capacity", d.Pool.QueueCapacity, "Work queue capacity (0 is unbounded)")
	fs.String("pool-policy", d.Pool.Policy.String(), "Saturation policy: Reject, Block, CallerRuns or DropOldest")

	fs.Duration("backoff-initial-delay", d.Backoff.InitialDelay, "Delay before the first resubscribe attempt")
	fs.Float64("backoff-multiplier", d.Backoff.Multiplier, "Growth factor between resubscribe delays")
	fs.Duration("backoff-max-delay", d.Backoff.MaxDelay, "Upper bound of a single resubscribe delay")
	fs.Int("backoff-max-attempts", d.Backoff.MaxAttempts, "Resubscribe attempts before the operator gives up")

	fs.String("aws-region", d.AWS.Region, "AWS region")
	fs.String("aws-image-id", d.AWS.ImageID, "AMI launched for compute instances")
	fs.String("aws-db-engine", d.AWS.DBEngine, "RDS database engine")
	fs.Int32("aws-allocated-storage", d.AWS.AllocatedStorage, "RDS allocated storage in GiB")
	fs.String("aws-endpoint", d.AWS.Endpoint, "Override the AWS service endpoint")
	fs.StringToString("aws-tags", nil, "Tags added to every created resource, e.g. team=platform,env=prod")

	fs.Bool("status-write-back", d.Outcomes.StatusWriteBack, "Write reconciliation outcomes to the resource status")
	fs.String("outcome-bucket", d.Outcomes.Bucket, "S3 bucket for archived outcomes (empty disables the archive)")
	fs.String("outcome-prefix", d.Outcomes.Prefix, "Key prefix for archived outcomes")

	fs.String("metrics-bind-address", d.Manager.MetricsBindAddress, "The address the metric endpoint binds to.")
	fs.String("health-probe-bind-address", d.Manager.HealthProbeBindAddress, "The address the probe endpoint binds to.")
	fs.Bool("leader-elect", d.Manager.LeaderElect,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	fs.String("leader-election-id", d.Manager.LeaderElectionID, "Name of the leader election lease")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file at path, decodes all sources into a
// Controller and validates it.
func Load(v *viper.Viper, path string) (*Controller, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Controller{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// decodeHook converts duration strings ("30s"), text-encoded values such
// as the saturation policy, and "k=v,k2=v2" tag lists.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		stringToTagsHookFunc(),
	)
}

var tagsType = reflect.TypeOf(map[string]string{})

// stringToTagsHookFunc decodes "k=v,k2=v2" into a map[string]string.
func stringToTagsHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != tagsType {
			return data, nil
		}
		return parseTags(data.(string))
	}
}

func parseTags(s string) (map[string]string, error) {
	tags := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q: expected key=value", pair)
		}
		tags[k] = strings.TrimSpace(v)
	}
	return tags, nil
}
