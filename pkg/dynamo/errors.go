package dynamo

import "errors"

var (
	ErrFailedToLoadAWSConfig = errors.New("failed to load aws config")
	ErrHealthcheckFailed     = errors.New("dynamodb healthcheck failed")
)
