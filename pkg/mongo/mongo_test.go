package mongo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/mongo"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := mongo.New(context.Background(), mongo.Config{})
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}

func TestNew_CancelledDuringRetry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := mongo.New(ctx, mongo.Config{
		ConnectionURL:  "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50",
		ConnectTimeout: 50 * time.Millisecond,
		RetryAttempts:  5,
		RetryInterval:  time.Second,
	})
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}

func TestNewWithDatabase_Live(t *testing.T) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}

	db, err := mongo.NewWithDatabase(context.Background(), mongo.Config{ConnectionURL: url, Database: "restauth_test", RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })

	assert.Equal(t, "restauth_test", db.Name())
	assert.NoError(t, mongo.Healthcheck(db.Client())(context.Background()))
}
