package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/iacaws/internal/util/labels"
)

// CreateDatabaseInstance creates an RDS instance named name of class
// instanceType and returns its identifier. The instance is not waited for.
func (p *Provisioner) CreateDatabaseInstance(ctx context.Context, instanceType, name, username, password string) (string, error) {
	out, err := p.rds.CreateDBInstance(ctx, &rds.CreateDBInstanceInput{
		DBInstanceIdentifier: sdkaws.String(name),
		DBInstanceClass:      sdkaws.String(instanceType),
		Engine:               sdkaws.String(p.cfg.DBEngine),
		MasterUsername:       sdkaws.String(username),
		MasterUserPassword:   sdkaws.String(password),
		AllocatedStorage:     sdkaws.Int32(p.cfg.AllocatedStorage),
		Tags:                 p.rdsTags(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create DB instance %s: %w", name, err)
	}
	if out.DBInstance == nil || out.DBInstance.DBInstanceIdentifier == nil {
		return "", errors.New("CreateDBInstance returned no DB instance")
	}

	id := *out.DBInstance.DBInstanceIdentifier
	log.FromContext(ctx).V(1).Info("CreateDBInstance succeeded", "dbInstanceID", id, "status", sdkaws.ToString(out.DBInstance.DBInstanceStatus))
	return id, nil
}

func (p *Provisioner) rdsTags() []rdstypes.Tag {
	var tags []rdstypes.Tag
	for _, t := range labels.NewLabelBuilder().Merge(p.cfg.Tags).Tags() {
		tags = append(tags, rdstypes.Tag{Key: sdkaws.String(t.Key), Value: sdkaws.String(t.Value)})
	}
	return tags
}
