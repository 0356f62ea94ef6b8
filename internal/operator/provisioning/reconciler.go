package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// Reconciler provisions the sub-resources of one IaCAWS snapshot.
type Reconciler struct {
	provisioner   Provisioner
	recorders     []OutcomeRecorder
	classifier    ErrorClassifier
	enableMetrics bool
	now           func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRecorders appends outcome recorders, called in order after every reconciliation.
func WithRecorders(recorders ...OutcomeRecorder) Option {
	return func(r *Reconciler) {
		r.recorders = append(r.recorders, recorders...)
	}
}

// WithErrorClassifier sets how provider errors are classified in logs and
// failure messages.
func WithErrorClassifier(c ErrorClassifier) Option {
	return func(r *Reconciler) {
		r.classifier = c
	}
}

// WithMetrics enables or disables prometheus metrics.
func WithMetrics(enabled bool) Option {
	return func(r *Reconciler) {
		r.enableMetrics = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a Reconciler backed by p.
func NewReconciler(p Provisioner, opts ...Option) *Reconciler {
	r := &Reconciler{
		provisioner:   p,
		enableMetrics: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile creates the network, the compute instance and the database
// instance declared by resource, in that order, and returns the outcome.
// It never returns an error or panics: provisioning failures are logged and
// reported as a Failed outcome. Nothing created before a failure is rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, resource *iacawsv1.IaCAWS) Outcome {
	id := uuid.NewString()
	logger := log.FromContext(ctx).WithValues("resource", resource.Key(), "reconcileID", id)
	ctx = log.IntoContext(ctx, logger)

	started := r.now()
	logger.Info("reconciling IaCAWS resource", "generation", resource.Generation)

	details, err := r.provision(ctx, resource.Spec)

	var outcome Outcome
	if err != nil {
		outcome = Failed(details, err)
		if r.classifier != nil {
			outcome.ErrorCode, outcome.ErrorReason = r.classifier.Classify(err)
		}
		step, _ := FailedStep(err)
		logger.Error(err, "provisioning failed",
			"step", step,
			"errorCode", outcome.ErrorCode,
			"created", details.summary(),
		)
	} else {
		outcome = Succeeded(details)
		logger.Info("provisioning succeeded",
			"vpcID", details.NetworkID,
			"instanceID", details.InstanceID,
			"dbInstanceID", details.DBInstanceID,
		)
	}
	outcome.ID = id
	outcome.Started = started
	outcome.Finished = r.now()

	r.recordReconcile(outcome)

	for _, rec := range r.recorders {
		if recErr := rec.Record(ctx, resource, outcome); recErr != nil {
			logger.Error(recErr, "failed to record reconciliation outcome")
		}
	}

	return outcome
}

// provision runs the steps in order and stops at the first failure.
func (r *Reconciler) provision(ctx context.Context, spec iacawsv1.IaCAWSSpec) (Details, error) {
	var details Details
	logger := log.FromContext(ctx)

	vpcID, err := r.call(ctx, StepNetwork, func() (string, error) {
		return r.provisioner.CreateNetwork(ctx, spec.VPCCIDRBlock)
	})
	if err != nil {
		return details, err
	}
	details.NetworkID = vpcID
	logger.Info("created VPC", "vpcID", vpcID, "cidr", spec.VPCCIDRBlock)

	instanceID, err := r.call(ctx, StepCompute, func() (string, error) {
		return r.provisioner.CreateComputeInstance(ctx, spec.EC2InstanceType, spec.EC2InstanceName)
	})
	if err != nil {
		return details, err
	}
	details.InstanceID = instanceID
	logger.Info("created EC2 instance", "instanceID", instanceID, "type", spec.EC2InstanceType)

	dbID, err := r.call(ctx, StepDatabase, func() (string, error) {
		return r.provisioner.CreateDatabaseInstance(ctx, spec.RDSInstanceType, spec.RDSInstanceName, spec.DBUsername, spec.DBPassword)
	})
	if err != nil {
		return details, err
	}
	details.DBInstanceID = dbID
	logger.Info("created RDS instance", "dbInstanceID", dbID, "class", spec.RDSInstanceType)

	return details, nil
}

// call runs one provisioning step, converting errors and panics into a *StepError.
func (r *Reconciler) call(ctx context.Context, step Step, fn func() (string, error)) (id string, err error) {
	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			id = ""
			err = &StepError{Step: step, Err: fmt.Errorf("panic: %v", p)}
		}
		result := "success"
		if err != nil {
			result = "error"
		}
		r.recordProvisionCall(step, result, r.now().Sub(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return "", &StepError{Step: step, Err: err}
	}

	id, err = fn()
	if err != nil {
		return "", &StepError{Step: step, Err: err}
	}
	return id, nil
}
