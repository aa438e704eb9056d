package apikey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	g, err := Generate()
	require.NoError(t, err)
	require.True(t, len(g.Key) > len(prefixTag))
	require.Equal(t, prefixLen, len(g.Prefix))

	require.True(t, Verify(g.Key, g.Hash))
	require.False(t, Verify("payx_wrongwrongwrongwrongwrongwrongwrongwrong", g.Hash))
}

func TestPrefixMatchesGeneratedKey(t *testing.T) {
	g, err := Generate()
	require.NoError(t, err)

	prefix, err := Prefix(g.Key)
	require.NoError(t, err)
	require.Equal(t, g.Prefix, prefix)
}

func TestPrefixRejectsMalformedKey(t *testing.T) {
	_, err := Prefix("not-a-key")
	require.Error(t, err)

	_, err = Prefix("payx_short")
	require.Error(t, err)
}

func TestVerifyRejectsGarbageHash(t *testing.T) {
	require.False(t, Verify("payx_anything", "not-a-valid-hash"))
}

func TestGenerateProducesUniqueKeys(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	require.NotEqual(t, a.Key, b.Key)
	require.NotEqual(t, a.ID, b.ID)
}
