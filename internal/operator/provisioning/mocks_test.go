package provisioning

import (
	"context"
	"sync"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// MockProvisioner is a mock implementation of Provisioner for testing.
type MockProvisioner struct {
	mu sync.Mutex

	// Configurable responses
	CreateNetworkFunc          func(ctx context.Context, cidr string) (string, error)
	CreateComputeInstanceFunc  func(ctx context.Context, instanceType, name string) (string, error)
	CreateDatabaseInstanceFunc func(ctx context.Context, instanceType, name, username, password string) (string, error)

	// Call tracking
	Calls                       []string
	CreateNetworkCalls          []string
	CreateComputeInstanceCalls  []CreateComputeInstanceCall
	CreateDatabaseInstanceCalls []CreateDatabaseInstanceCall
}

// CreateComputeInstanceCall tracks arguments to CreateComputeInstance.
type CreateComputeInstanceCall struct {
	InstanceType string
	Name         string
}

// CreateDatabaseInstanceCall tracks arguments to CreateDatabaseInstance.
type CreateDatabaseInstanceCall struct {
	InstanceType string
	Name         string
	Username     string
	Password     string
}

func (m *MockProvisioner) CreateNetwork(ctx context.Context, cidr string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "network")
	m.CreateNetworkCalls = append(m.CreateNetworkCalls, cidr)
	m.mu.Unlock()

	if m.CreateNetworkFunc != nil {
		return m.CreateNetworkFunc(ctx, cidr)
	}
	return "vpc-123", nil
}

func (m *MockProvisioner) CreateComputeInstance(ctx context.Context, instanceType, name string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "compute")
	m.CreateComputeInstanceCalls = append(m.CreateComputeInstanceCalls, CreateComputeInstanceCall{
		InstanceType: instanceType,
		Name:         name,
	})
	m.mu.Unlock()

	if m.CreateComputeInstanceFunc != nil {
		return m.CreateComputeInstanceFunc(ctx, instanceType, name)
	}
	return "i-abc", nil
}

func (m *MockProvisioner) CreateDatabaseInstance(ctx context.Context, instanceType, name, username, password string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "database")
	m.CreateDatabaseInstanceCalls = append(m.CreateDatabaseInstanceCalls, CreateDatabaseInstanceCall{
		InstanceType: instanceType,
		Name:         name,
		Username:     username,
		Password:     password,
	})
	m.mu.Unlock()

	if m.CreateDatabaseInstanceFunc != nil {
		return m.CreateDatabaseInstanceFunc(ctx, instanceType, name, username, password)
	}
	return name, nil
}

// CallOrder returns the steps invoked so far.
func (m *MockProvisioner) CallOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// MockObjectStore is a mock implementation of ObjectStore for testing.
type MockObjectStore struct {
	mu sync.Mutex

	PutObjectFunc func(ctx context.Context, bucket, key string, data []byte) error

	PutObjectCalls []PutObjectCall
}

// PutObjectCall tracks arguments to PutObject.
type PutObjectCall struct {
	Bucket string
	Key    string
	Data   []byte
}

func (m *MockObjectStore) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	m.PutObjectCalls = append(m.PutObjectCalls, PutObjectCall{Bucket: bucket, Key: key, Data: data})
	m.mu.Unlock()

	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, bucket, key, data)
	}
	return nil
}

func testResource() *iacawsv1.IaCAWS {
	r := &iacawsv1.IaCAWS{
		Spec: iacawsv1.IaCAWSSpec{
			VPCCIDRBlock:    "10.0.0.0/16",
			EC2InstanceType: "t2.micro",
			EC2InstanceName: "web",
			RDSInstanceType: "db.t3.micro",
			RDSInstanceName: "appdb",
			DBUsername:      "admin",
			DBPassword:      "s3cret",
		},
	}
	r.Name = "demo"
	r.Namespace = "default"
	r.Generation = 1
	return r
}
