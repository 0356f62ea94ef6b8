package provisioning

import (
	"context"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// Provisioner creates the cloud resources declared by an IaCAWS spec.
// Calls may be slow, may fail, and are not assumed to be idempotent.
type Provisioner interface {
	// CreateNetwork creates a virtual network for the CIDR block and returns its ID.
	CreateNetwork(ctx context.Context, cidr string) (string, error)

	// CreateComputeInstance launches one instance and returns its ID.
	CreateComputeInstance(ctx context.Context, instanceType, name string) (string, error)

	// CreateDatabaseInstance creates a managed database instance and returns its identifier.
	CreateDatabaseInstance(ctx context.Context, instanceType, name, username, password string) (string, error)
}

// OutcomeRecorder receives the outcome of every reconciliation.
type OutcomeRecorder interface {
	Record(ctx context.Context, resource *iacawsv1.IaCAWS, outcome Outcome) error
}

// RecorderFunc adapts a function to OutcomeRecorder.
type RecorderFunc func(ctx context.Context, resource *iacawsv1.IaCAWS, outcome Outcome) error

// Record implements OutcomeRecorder.
func (f RecorderFunc) Record(ctx context.Context, resource *iacawsv1.IaCAWS, outcome Outcome) error {
	return f(ctx, resource, outcome)
}

// ErrorClassifier maps a provider error to its error code and a short
// reason such as "request throttled". Unknown errors yield empty strings.
type ErrorClassifier interface {
	Classify(err error) (code, reason string)
}

// ClassifierFunc adapts a function to ErrorClassifier.
type ClassifierFunc func(err error) (code, reason string)

// Classify implements ErrorClassifier.
func (f ClassifierFunc) Classify(err error) (code, reason string) {
	return f(err)
}
