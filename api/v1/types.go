// Package v1 contains API Schema definitions for the example.com v1 API group
// +kubebuilder:object:generate=true
// +groupName=example.com
package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// IaCAWSSpec declares the AWS infrastructure that should exist for a resource.
type IaCAWSSpec struct {
	// VPCCIDRBlock is the IPv4 CIDR block of the VPC (e.g., 10.0.0.0/16)
	VPCCIDRBlock string `json:"vpcCidrBlock"`

	// EC2InstanceType is the EC2 instance type (e.g., t2.micro)
	EC2InstanceType string `json:"ec2InstanceType"`

	// EC2InstanceName is applied as the Name tag of the instance
	// +optional
	EC2InstanceName string `json:"ec2InstanceName,omitempty"`

	// RDSInstanceType is the RDS DB instance class (e.g., db.t2.micro)
	RDSInstanceType string `json:"rdsInstanceType"`

	// RDSInstanceName is the DB instance identifier
	RDSInstanceName string `json:"rdsInstanceName"`

	// DBUsername is the master username of the database
	DBUsername string `json:"dbUsername"`

	// DBPassword is the master password of the database
	DBPassword string `json:"dbPassword"`
}

// IaCAWSState is the coarse provisioning state reported in status. An empty
// state means no reconciliation has finished yet.
type IaCAWSState string

const (
	// StateProvisioned means every sub-resource was created
	StateProvisioned IaCAWSState = "Provisioned"
	// StateFailed means a provisioning call failed; earlier sub-resources are kept
	StateFailed IaCAWSState = "Failed"
)

// IaCAWSStatus defines the observed state of IaCAWS.
type IaCAWSStatus struct {
	// State is the outcome of the last reconciliation
	// +kubebuilder:validation:Enum=Provisioned;Failed
	// +optional
	State IaCAWSState `json:"state,omitempty"`

	// Message is a human-readable description of State
	// +optional
	Message string `json:"message,omitempty"`

	// VPCID is the ID of the VPC created by the last reconciliation
	// +optional
	VPCID string `json:"vpcId,omitempty"`

	// InstanceID is the ID of the EC2 instance created by the last reconciliation
	// +optional
	InstanceID string `json:"instanceId,omitempty"`

	// DBInstanceID is the identifier of the RDS instance created by the last reconciliation
	// +optional
	DBInstanceID string `json:"dbInstanceId,omitempty"`

	// ObservedGeneration is the generation the status was computed for
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// LastReconcileTime is when the operator last finished reconciling this resource
	// +optional
	LastReconcileTime *metav1.Time `json:"lastReconcileTime,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,path=iacaws,singular=iacaws
// +kubebuilder:printcolumn:name="State",type=string,JSONPath=`.status.state`
// +kubebuilder:printcolumn:name="VPC",type=string,JSONPath=`.status.vpcId`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// IaCAWS is the Schema for the iacaws API.
type IaCAWS struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   IaCAWSSpec   `json:"spec,omitempty"`
	Status IaCAWSStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// IaCAWSList contains a list of IaCAWS.
type IaCAWSList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []IaCAWS `json:"items"`
}

// Key returns the namespace-qualified name used in logs and metrics.
func (r *IaCAWS) Key() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

// StatusObserved reports whether the status already reflects the current generation.
func (r *IaCAWS) StatusObserved() bool {
	return r.Generation != 0 && r.Status.ObservedGeneration == r.Generation
}

// Provisioned reports whether the current generation was provisioned successfully.
func (r *IaCAWS) Provisioned() bool {
	return r.StatusObserved() && r.Status.State == StateProvisioned
}
