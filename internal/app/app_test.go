package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/testutil"
)

func TestSetupNilConfig(t *testing.T) {
	_, err := Setup(context.Background(), nil, testutil.DiscardLogger())
	require.ErrorIs(t, err, config.ErrConfigNil)
}

func TestCloseWithoutSetup(t *testing.T) {
	a := &App{}
	assert.NoError(t, a.Close())
}

func TestProvideOtelShutdownDisabled(t *testing.T) {
	cfg := &config.Config{}
	cleanup := provideOtelShutdown(context.Background(), cfg, testutil.DiscardLogger())
	require.NotNil(t, cleanup)
	cleanup()
}
