package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_OpenFailurePropagates(t *testing.T) {
	admin := NewAdmin(Config{Database: "postgres"}, nil)
	var opened []string
	admin.open = func(_ context.Context, cfg Config) (*sql.DB, error) {
		opened = append(opened, cfg.Database)
		return nil, fmt.Errorf("%w: refused", ErrConnection)
	}

	err := admin.CreateFromTemplate(context.Background(), "commerce_test", "commerce_template")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Contains(t, err.Error(), "commerce_template")

	err = admin.DropDatabase(context.Background(), "commerce_test")
	assert.True(t, errors.Is(err, ErrConnection))

	_, err = admin.Exists(context.Background(), "commerce_test")
	assert.True(t, errors.Is(err, ErrConnection))

	_, err = admin.IdleDatabases(context.Background(), "commerce_test")
	assert.True(t, errors.Is(err, ErrConnection))

	// Admin statements always go through the maintenance database.
	assert.Equal(t, []string{"postgres", "postgres", "postgres", "postgres"}, opened)
}
