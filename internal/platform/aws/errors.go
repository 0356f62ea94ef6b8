package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// IsAlreadyExists checks if an error indicates the resource already exists.
func IsAlreadyExists(err error) bool {
	return isAPIErrorCode(err,
		"DBInstanceAlreadyExists",
		"InvalidVpc.Duplicate",
		"AlreadyExists",
		"ResourceAlreadyExists",
	)
}

// IsThrottled checks if an error indicates request throttling.
func IsThrottled(err error) bool {
	return isAPIErrorCode(err,
		"Throttling",
		"ThrottlingException",
		"RequestLimitExceeded",
		"TooManyRequestsException",
	)
}

// IsQuotaExceeded checks if an error indicates an account or capacity limit.
func IsQuotaExceeded(err error) bool {
	return isAPIErrorCode(err,
		"VpcLimitExceeded",
		"InstanceLimitExceeded",
		"InsufficientInstanceCapacity",
		"InstanceQuotaExceeded",
		"StorageQuotaExceeded",
	)
}

// ErrorCode returns the AWS API error code of err, or "" for non-API errors.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Classify returns the API error code of err and a short reason for the
// error classes the operator reports on. It has the signature of
// provisioning.ClassifierFunc.
func Classify(err error) (code, reason string) {
	code = ErrorCode(err)
	switch {
	case code == "":
		return "", ""
	case IsAlreadyExists(err):
		return code, "resource already exists"
	case IsThrottled(err):
		return code, "request throttled"
	case IsQuotaExceeded(err):
		return code, "quota or capacity exceeded"
	default:
		return code, ""
	}
}

// isAPIErrorCode checks if err is an AWS API error with one of the given codes.
func isAPIErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	code := ErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}
