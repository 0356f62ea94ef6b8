// Package aws provisions IaCAWS sub-resources with the AWS SDK.
//
// [Provisioner] creates a VPC and an EC2 instance through the EC2 API and a
// managed database instance through the RDS API. Calls are made once; retrying
// and cleanup are left to the caller.
package aws
