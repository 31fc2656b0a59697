package hasher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_knownVector(t *testing.T) {
	const name = "natives/stm/camera/collisionfilter/defaultcamera.cfil.7"

	require.EqualValues(t, 0x65B486A1, HashLower(name))
	require.EqualValues(t, 0x958EDD0C, HashUpper(name))
	require.EqualValues(t, uint64(0x958EDD0C65B486A1), HashMixed(name))
}

func TestSplitHash_roundtrip(t *testing.T) {
	const name = "natives/stm/camera/collisionfilter/defaultcamera.cfil.7"
	mixed := HashMixed(name)

	lower, upper := SplitHash(mixed)
	require.Equal(t, HashLower(name), lower)
	require.Equal(t, HashUpper(name), upper)
}

func TestHash_asciiCaseInvariant(t *testing.T) {
	names := []string{
		"Assets/Characters/Hero.mesh",
		"ASSETS/CHARACTERS/HERO.MESH",
		"assets/characters/hero.mesh",
		"aSSets/ChaRActers/hERO.mesh",
	}

	wantLower := HashLower(names[0])
	wantUpper := HashUpper(names[0])
	for _, n := range names {
		require.Equal(t, wantLower, HashLower(n), "lower hash mismatch for %q", n)
		require.Equal(t, wantUpper, HashUpper(n), "upper hash mismatch for %q", n)
	}
}

func TestHash_nonAsciiPassesThroughUnchanged(t *testing.T) {
	// Non-ASCII code units aren't case-folded, so only ASCII-case
	// variation collapses under HashLower/HashUpper.
	require.NotEqual(t, HashLower("café/a.txt"), HashLower("CAFÉ/a.txt"))
}
