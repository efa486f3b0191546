package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLog_PackRoundTrip(t *testing.T) {
	l, err := NewActivityLog(nil)
	require.NoError(t, err)
	defer l.Close()

	small := []byte(`{"name":{"old":"Budi","new":"Budi S"}}`)
	plain, compressed, algo := l.pack(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Equal(t, small, plain)
	assert.Nil(t, compressed)

	large := append([]byte(`{"notes":"`), bytes.Repeat([]byte("a"), defaultCompressThreshold+1)...)
	large = append(large, []byte(`"}`)...)
	plain, compressed, algo = l.pack(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, plain)
	assert.Less(t, len(compressed), len(large))

	restored, err := l.unpack(plain, compressed, algo)
	require.NoError(t, err)
	assert.Equal(t, large, restored)
}
