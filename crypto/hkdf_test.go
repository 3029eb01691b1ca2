package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHKDF2Deterministic(t *testing.T) {
	var ck [32]byte
	copy(ck[:], []byte("chaining key for derivation test"))
	ikm := []byte("input key material")

	a1, a2, err := HKDF2(ck, ikm)
	require.NoError(t, err)
	b1, b2, err := HKDF2(ck, ikm)
	require.NoError(t, err)

	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)
	assert.NotEqual(t, a1, a2, "the two outputs must be independent")
}

func TestHKDF2DependsOnInputs(t *testing.T) {
	var ck [32]byte
	copy(ck[:], []byte("chaining key for derivation test"))

	a1, _, err := HKDF2(ck, []byte("ikm one"))
	require.NoError(t, err)
	b1, _, err := HKDF2(ck, []byte("ikm two"))
	require.NoError(t, err)
	assert.NotEqual(t, a1, b1, "different ikm must yield different output")

	ck[0] ^= 0xff
	c1, _, err := HKDF2(ck, []byte("ikm one"))
	require.NoError(t, err)
	assert.NotEqual(t, a1, c1, "different chaining key must yield different output")
}

func TestHKDF3PrefixMatchesHKDF2(t *testing.T) {
	var ck [32]byte
	copy(ck[:], []byte("chaining key for derivation test"))
	ikm := []byte("input key material")

	a1, a2, err := HKDF2(ck, ikm)
	require.NoError(t, err)
	b1, b2, b3, err := HKDF3(ck, ikm)
	require.NoError(t, err)

	assert.Equal(t, a1, b1, "first output must agree between 2- and 3-output expand")
	assert.Equal(t, a2, b2, "second output must agree between 2- and 3-output expand")
	assert.NotEqual(t, b2, b3)
}

func TestHashConcatenation(t *testing.T) {
	h1 := Hash([]byte("ab"), []byte("c"))
	h2 := Hash([]byte("a"), []byte("bc"))
	assert.Equal(t, h1, h2, "hash is over the concatenation only")

	h3 := Hash([]byte("ab"), []byte("d"))
	assert.NotEqual(t, h1, h3)
}
