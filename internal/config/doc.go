// Package config defines the operator configuration and loads it from
// flags, IACAWS_* environment variables, an optional YAML file and defaults,
// in that order of precedence.
//
// The [Controller] struct is the single source of settings for the worker
// pool, the watch reconnection backoff, AWS provisioning and the outcome
// sinks. cmd/operator converts it into the component configurations with
// [Controller.ControllerConfig], [Controller.AWSConfig] and
// [Controller.S3Options].
package config
