package mongostore_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/mfa/mongostore"
	"github.com/dmitrymomot/restauth/pkg/mfa/storetest"
	"github.com/dmitrymomot/restauth/pkg/mongo"
)

func TestStore(t *testing.T) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL is not set")
	}

	ctx := context.Background()
	client, err := mongo.New(ctx, mongo.Config{
		ConnectionURL:  url,
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    20,
		RetryAttempts:  1,
	})
	require.NoError(t, err)

	db := client.Database("restauth_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	store := mongostore.New(db, "")
	require.NoError(t, store.EnsureIndexes(ctx))

	storetest.Run(t, store)
}
