package provisioning

import (
	"errors"
	"fmt"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// Step identifies one provisioning call of a reconciliation.
type Step string

const (
	StepNetwork  Step = "network"
	StepCompute  Step = "compute instance"
	StepDatabase Step = "database instance"
)

// StepError reports which step of a reconciliation failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step recorded in err, if any.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}

// OutcomeKind tags an Outcome.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "Succeeded"
	OutcomeFailed    OutcomeKind = "Failed"
)

// Details holds the IDs of the resources a reconciliation created.
// On failure only the steps before the failed one are set.
type Details struct {
	NetworkID    string `json:"networkId,omitempty"`
	InstanceID   string `json:"instanceId,omitempty"`
	DBInstanceID string `json:"dbInstanceId,omitempty"`
}

// Outcome is the result of one reconciliation: Succeeded(details) or Failed(cause).
type Outcome struct {
	ID       string
	Kind     OutcomeKind
	Details  Details
	Cause    error
	Started  time.Time
	Finished time.Time

	// ErrorCode and ErrorReason classify Cause when the provider error is known.
	ErrorCode   string
	ErrorReason string
}

// Succeeded builds a successful outcome.
func Succeeded(details Details) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Details: details}
}

// Failed builds a failed outcome. details lists what was created before the failure.
func Failed(details Details, cause error) Outcome {
	return Outcome{Kind: OutcomeFailed, Details: details, Cause: cause}
}

// IsSucceeded reports whether every step completed.
func (o Outcome) IsSucceeded() bool {
	return o.Kind == OutcomeSucceeded
}

// Duration returns how long the reconciliation ran.
func (o Outcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Finished.IsZero() {
		return 0
	}
	return o.Finished.Sub(o.Started)
}

// Message renders a human-readable summary for status and logs.
func (o Outcome) Message() string {
	created := o.Details.summary()
	if o.IsSucceeded() {
		return "Provisioned " + created
	}

	msg := "Provisioning failed"
	if o.Cause != nil {
		msg += ": " + o.Cause.Error()
	}
	switch {
	case o.ErrorCode != "" && o.ErrorReason != "":
		msg += fmt.Sprintf(" (%s: %s)", o.ErrorReason, o.ErrorCode)
	case o.ErrorCode != "":
		msg += fmt.Sprintf(" (error code %s)", o.ErrorCode)
	}
	if created != "" {
		msg += "; created before failure: " + created
	}
	return msg
}

// Status converts the outcome into the status to write back for a resource
// at the given generation.
func (o Outcome) Status(generation int64) iacawsv1.IaCAWSStatus {
	state := iacawsv1.StateFailed
	if o.IsSucceeded() {
		state = iacawsv1.StateProvisioned
	}

	finished := o.Finished
	if finished.IsZero() {
		finished = time.Now()
	}

	return iacawsv1.IaCAWSStatus{
		State:              state,
		Message:            o.Message(),
		VPCID:              o.Details.NetworkID,
		InstanceID:         o.Details.InstanceID,
		DBInstanceID:       o.Details.DBInstanceID,
		ObservedGeneration: generation,
		LastReconcileTime:  &metav1.Time{Time: finished},
	}
}

func (d Details) summary() string {
	var parts []string
	if d.NetworkID != "" {
		parts = append(parts, "VPC "+d.NetworkID)
	}
	if d.InstanceID != "" {
		parts = append(parts, "instance "+d.InstanceID)
	}
	if d.DBInstanceID != "" {
		parts = append(parts, "DB instance "+d.DBInstanceID)
	}
	return strings.Join(parts, ", ")
}
