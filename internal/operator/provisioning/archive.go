package provisioning

import (
	"context"
	"fmt"
	"path"
	"time"

	"sigs.k8s.io/yaml"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// ObjectStore stores archive records.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// ArchiveRecord is the YAML document written for each reconciliation.
// Credentials from the spec are never included.
type ArchiveRecord struct {
	ID         string      `json:"id"`
	Namespace  string      `json:"namespace,omitempty"`
	Name       string      `json:"name"`
	Generation int64       `json:"generation"`
	Outcome    OutcomeKind `json:"outcome"`
	Message    string      `json:"message"`
	Error      string      `json:"error,omitempty"`
	ErrorCode  string      `json:"errorCode,omitempty"`
	Details    Details     `json:"details"`
	Started    time.Time   `json:"started"`
	Finished   time.Time   `json:"finished"`
	Request    RequestInfo `json:"request"`
}

// RequestInfo is the non-secret part of the spec that was reconciled.
type RequestInfo struct {
	VPCCIDRBlock    string `json:"vpcCidrBlock"`
	EC2InstanceType string `json:"ec2InstanceType"`
	EC2InstanceName string `json:"ec2InstanceName,omitempty"`
	RDSInstanceType string `json:"rdsInstanceType"`
	RDSInstanceName string `json:"rdsInstanceName"`
	DBUsername      string `json:"dbUsername"`
}

// ArchiveRecorder writes every outcome as a YAML object to a bucket, under
// <prefix>/<namespace>/<name>/<finished>-<id>.yaml.
type ArchiveRecorder struct {
	store  ObjectStore
	bucket string
	prefix string
}

// NewArchiveRecorder creates an ArchiveRecorder writing to bucket.
func NewArchiveRecorder(store ObjectStore, bucket, prefix string) *ArchiveRecorder {
	return &ArchiveRecorder{store: store, bucket: bucket, prefix: prefix}
}

// Record implements OutcomeRecorder.
func (a *ArchiveRecorder) Record(ctx context.Context, resource *iacawsv1.IaCAWS, outcome Outcome) error {
	record := NewArchiveRecord(resource, outcome)

	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal archive record: %w", err)
	}

	key := a.Key(record)
	if err := a.store.PutObject(ctx, a.bucket, key, data); err != nil {
		return fmt.Errorf("failed to archive outcome %s: %w", record.ID, err)
	}
	return nil
}

// Key returns the object key for record.
func (a *ArchiveRecorder) Key(record ArchiveRecord) string {
	namespace := record.Namespace
	if namespace == "" {
		namespace = "_cluster"
	}
	file := fmt.Sprintf("%s-%s.yaml", record.Finished.UTC().Format("20060102T150405Z"), record.ID)
	return path.Join(a.prefix, namespace, record.Name, file)
}

// NewArchiveRecord builds the archive document for an outcome.
func NewArchiveRecord(resource *iacawsv1.IaCAWS, outcome Outcome) ArchiveRecord {
	record := ArchiveRecord{
		ID:         outcome.ID,
		Namespace:  resource.Namespace,
		Name:       resource.Name,
		Generation: resource.Generation,
		Outcome:    outcome.Kind,
		Message:    outcome.Message(),
		ErrorCode:  outcome.ErrorCode,
		Details:    outcome.Details,
		Started:    outcome.Started,
		Finished:   outcome.Finished,
		Request: RequestInfo{
			VPCCIDRBlock:    resource.Spec.VPCCIDRBlock,
			EC2InstanceType: resource.Spec.EC2InstanceType,
			EC2InstanceName: resource.Spec.EC2InstanceName,
			RDSInstanceType: resource.Spec.RDSInstanceType,
			RDSInstanceName: resource.Spec.RDSInstanceName,
			DBUsername:      resource.Spec.DBUsername,
		},
	}
	if outcome.Cause != nil {
		record.Error = outcome.Cause.Error()
	}
	return record
}
