// Package dynamo configures an aws-sdk-go-v2 DynamoDB client from the
// environment and exposes a readiness check for a table.
package dynamo
