package platform

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ConditionalCheckFailed reports whether err is a DynamoDB conditional write
// rejection. Matched by service error code so it holds regardless of which
// wrapper type the SDK surfaces it through.
func ConditionalCheckFailed(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}
