package provisioning

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// StatusWriter writes reconciliation outcomes back to the status subresource
// of the reconciled resource.
type StatusWriter struct {
	client client.Client
}

// NewStatusWriter creates a StatusWriter using c.
func NewStatusWriter(c client.Client) *StatusWriter {
	return &StatusWriter{client: c}
}

// Record implements OutcomeRecorder. The status reports the generation of the
// snapshot that was reconciled, not the generation currently stored, so a spec
// change made while provisioning ran is still picked up by the next event.
// A resource deleted in the meantime is ignored.
func (w *StatusWriter) Record(ctx context.Context, resource *iacawsv1.IaCAWS, outcome Outcome) error {
	status := outcome.Status(resource.Generation)
	key := client.ObjectKeyFromObject(resource)

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		current := &iacawsv1.IaCAWS{}
		if err := w.client.Get(ctx, key, current); err != nil {
			return err
		}
		current.Status = status
		return w.client.Status().Update(ctx, current)
	})
	if apierrors.IsNotFound(err) {
		log.FromContext(ctx).V(1).Info("resource deleted before status update")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", resource.Key(), err)
	}
	return nil
}
