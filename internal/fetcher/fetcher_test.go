package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://data.cityofchicago.org/api/views/ijzp-q8t2/rows.csv"))
	assert.True(t, IsRemote("HTTP://example.com/x.csv"))
	assert.True(t, IsRemote("ftp://example.com/x.csv"))
	assert.False(t, IsRemote("/data/crimes.csv"))
	assert.False(t, IsRemote(`C:\data\crimes.csv`))
}

func TestBaseName(t *testing.T) {
	name, err := BaseName("https://example.com/data/crimes.zip?x=1")
	require.NoError(t, err)
	assert.Equal(t, "crimes.zip", name)

	name, err = BaseName("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "download.csv", name)
}
