package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/app"
)

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := app.OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "pos:ping", "1", 0).Err())
	require.True(t, mr.Exists("pos:ping"))
}

func TestOpenRedisRejectsBadURL(t *testing.T) {
	_, err := app.OpenRedis(context.Background(), "not a url", false)
	require.ErrorContains(t, err, "parse redis url")
}

func TestOpenPostgresRejectsBadURL(t *testing.T) {
	_, err := app.OpenPostgres(context.Background(), app.PostgresOptions{URL: "postgres://%zz"})
	require.ErrorContains(t, err, "parse database url")
}
