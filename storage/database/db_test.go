package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		conf := &core.Config{}
		conf.Database.Engine = EngineMemory
		db, err := Open(ctx, conf)
		require.NoError(t, err)
		assert.NoError(t, db.Ping(ctx))
		assert.NotNil(t, db.Users)
		assert.NotNil(t, db.Attendance)
		assert.NoError(t, db.Close(ctx))
	})

	t.Run("unknown engine", func(t *testing.T) {
		conf := &core.Config{}
		conf.Database.Engine = "sqlite"
		_, err := Open(ctx, conf)
		assert.EqualError(t, err, `unknown database engine "sqlite"`)
	})
}
