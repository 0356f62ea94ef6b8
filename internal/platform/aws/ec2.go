package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/iacaws/internal/util/labels"
)

// CreateNetwork creates a VPC for the CIDR block and returns its ID.
func (p *Provisioner) CreateNetwork(ctx context.Context, cidr string) (string, error) {
	out, err := p.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         sdkaws.String(cidr),
		TagSpecifications: p.tagSpecifications(types.ResourceTypeVpc, ""),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create VPC %s: %w", cidr, err)
	}
	if out.Vpc == nil || out.Vpc.VpcId == nil {
		return "", errors.New("CreateVpc returned no VPC ID")
	}

	vpcID := *out.Vpc.VpcId
	log.FromContext(ctx).V(1).Info("CreateVpc succeeded", "vpcID", vpcID, "state", out.Vpc.State)
	return vpcID, nil
}

// CreateComputeInstance launches one instance of instanceType from the
// configured AMI and returns its ID. A non-empty name becomes the Name tag.
func (p *Provisioner) CreateComputeInstance(ctx context.Context, instanceType, name string) (string, error) {
	out, err := p.ec2.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:           sdkaws.String(p.cfg.ImageID),
		InstanceType:      types.InstanceType(instanceType),
		MinCount:          sdkaws.Int32(1),
		MaxCount:          sdkaws.Int32(1),
		TagSpecifications: p.tagSpecifications(types.ResourceTypeInstance, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to run %s instance: %w", instanceType, err)
	}
	if len(out.Instances) == 0 || out.Instances[0].InstanceId == nil {
		return "", errors.New("RunInstances returned no instance")
	}

	instanceID := *out.Instances[0].InstanceId
	log.FromContext(ctx).V(1).Info("RunInstances succeeded", "instanceID", instanceID, "reservationID", sdkaws.ToString(out.ReservationId))
	return instanceID, nil
}

// tagSpecifications tags a resource as managed by the operator, plus the
// configured tags and an optional Name tag.
func (p *Provisioner) tagSpecifications(resourceType types.ResourceType, name string) []types.TagSpecification {
	var tags []types.Tag
	for _, t := range labels.NewLabelBuilder().WithName(name).Merge(p.cfg.Tags).Tags() {
		tags = append(tags, types.Tag{Key: sdkaws.String(t.Key), Value: sdkaws.String(t.Value)})
	}
	return []types.TagSpecification{{ResourceType: resourceType, Tags: tags}}
}
