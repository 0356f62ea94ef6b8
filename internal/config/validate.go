package config

import (
	"fmt"
)

// Validate checks the configuration and returns the first problem found.
func (c *Controller) Validate() error {
	if err := c.validatePool(); err != nil {
		return fmt.Errorf("pool validation failed: %w", err)
	}
	if err := c.validateBackoff(); err != nil {
		return fmt.Errorf("backoff validation failed: %w", err)
	}
	if err := c.validateAWS(); err != nil {
		return fmt.Errorf("aws validation failed: %w", err)
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drain_timeout must not be negative, got %s", c.DrainTimeout)
	}
	return nil
}

func (c *Controller) validatePool() error {
	p := c.Pool
	if p.CoreSize < 1 {
		return fmt.Errorf("pool.core_size must be at least 1, got %d", p.CoreSize)
	}
	if p.MaxSize < p.CoreSize {
		return fmt.Errorf("pool.max_size (%d) must not be less than pool.core_size (%d)", p.MaxSize, p.CoreSize)
	}
	if p.QueueCapacity < 0 {
		return fmt.Errorf("pool.queue_capacity must not be negative, got %d", p.QueueCapacity)
	}
	if p.KeepAlive < 0 {
		return fmt.Errorf("pool.keep_alive must not be negative, got %s", p.KeepAlive)
	}
	if _, err := p.Policy.MarshalText(); err != nil {
		return fmt.Errorf("invalid pool.policy: %w", err)
	}
	return nil
}

func (c *Controller) validateBackoff() error {
	b := c.Backoff
	if b.InitialDelay <= 0 {
		return fmt.Errorf("backoff.initial_delay must be positive, got %s", b.InitialDelay)
	}
	if b.Multiplier < 1 {
		return fmt.Errorf("backoff.multiplier must be at least 1, got %g", b.Multiplier)
	}
	if b.MaxDelay < b.InitialDelay {
		return fmt.Errorf("backoff.max_delay (%s) must not be less than backoff.initial_delay (%s)", b.MaxDelay, b.InitialDelay)
	}
	if b.MaxAttempts < 1 {
		return fmt.Errorf("backoff.max_attempts must be at least 1, got %d", b.MaxAttempts)
	}
	return nil
}

func (c *Controller) validateAWS() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.AWS.ImageID == "" {
		return fmt.Errorf("aws.image_id is required")
	}
	if c.AWS.AllocatedStorage < 0 {
		return fmt.Errorf("aws.allocated_storage must not be negative, got %d", c.AWS.AllocatedStorage)
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return fmt.Errorf("aws.access_key_id and aws.secret_access_key must be set together")
	}
	return nil
}
