package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	in := []byte(`[{"author":"Jane","rating":"FIVE","comment":"","createTime":"2024-01-01T00:00:00Z"}]`)
	packed, err := compress(in)
	require.NoError(t, err)

	out, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecompressEmpty(t *testing.T) {
	out, err := decompress(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDecompressGarbage(t *testing.T) {
	_, err := decompress([]byte("not gzip"))
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "reviewd:reviews", (&Store{prefix: "reviewd"}).key("reviews"))
	assert.Equal(t, "reviews", (&Store{}).key("reviews"))
}
