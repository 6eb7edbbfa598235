package dynamo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/dynamo"
)

type describer struct{ err error }

func (d describer) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, d.err
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, dynamo.Healthcheck(describer{}, "t")(context.Background()))

	err := dynamo.Healthcheck(describer{err: errors.New("no route")}, "t")(context.Background())
	assert.ErrorIs(t, err, dynamo.ErrHealthcheckFailed)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := dynamo.NewClient(context.Background(), dynamo.Config{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:8000",
		AccessKeyID:     "local",
		SecretAccessKey: "local",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", client.Options().Region)
	require.NotNil(t, client.Options().BaseEndpoint)
	assert.Equal(t, "http://localhost:8000", *client.Options().BaseEndpoint)
}
