package aws

import (
	"context"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
)

// MockEC2 is a mock implementation of EC2API for testing.
type MockEC2 struct {
	mu sync.Mutex

	// Configurable responses
	CreateVpcFunc    func(ctx context.Context, params *ec2.CreateVpcInput) (*ec2.CreateVpcOutput, error)
	RunInstancesFunc func(ctx context.Context, params *ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error)

	// Call tracking
	CreateVpcCalls    []*ec2.CreateVpcInput
	RunInstancesCalls []*ec2.RunInstancesInput
}

func (m *MockEC2) CreateVpc(ctx context.Context, params *ec2.CreateVpcInput, _ ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
	m.mu.Lock()
	m.CreateVpcCalls = append(m.CreateVpcCalls, params)
	m.mu.Unlock()

	if m.CreateVpcFunc != nil {
		return m.CreateVpcFunc(ctx, params)
	}
	return &ec2.CreateVpcOutput{Vpc: &ec2types.Vpc{
		VpcId:     sdkaws.String("vpc-0a1b2c3d"),
		CidrBlock: params.CidrBlock,
		State:     ec2types.VpcStatePending,
	}}, nil
}

func (m *MockEC2) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	m.mu.Lock()
	m.RunInstancesCalls = append(m.RunInstancesCalls, params)
	m.mu.Unlock()

	if m.RunInstancesFunc != nil {
		return m.RunInstancesFunc(ctx, params)
	}
	return &ec2.RunInstancesOutput{
		ReservationId: sdkaws.String("r-1"),
		Instances:     []ec2types.Instance{{InstanceId: sdkaws.String("i-0123456789")}},
	}, nil
}

// MockRDS is a mock implementation of RDSAPI for testing.
type MockRDS struct {
	mu sync.Mutex

	CreateDBInstanceFunc func(ctx context.Context, params *rds.CreateDBInstanceInput) (*rds.CreateDBInstanceOutput, error)

	CreateDBInstanceCalls []*rds.CreateDBInstanceInput
}

func (m *MockRDS) CreateDBInstance(ctx context.Context, params *rds.CreateDBInstanceInput, _ ...func(*rds.Options)) (*rds.CreateDBInstanceOutput, error) {
	m.mu.Lock()
	m.CreateDBInstanceCalls = append(m.CreateDBInstanceCalls, params)
	m.mu.Unlock()

	if m.CreateDBInstanceFunc != nil {
		return m.CreateDBInstanceFunc(ctx, params)
	}
	return &rds.CreateDBInstanceOutput{DBInstance: &rdstypes.DBInstance{
		DBInstanceIdentifier: params.DBInstanceIdentifier,
		DBInstanceStatus:     sdkaws.String("creating"),
	}}, nil
}
