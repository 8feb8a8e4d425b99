package keys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a := MustGenerate()
	b := MustGenerate()
	require.NotEqual(t, a.Public, b.Public)
}

func TestSignVerify(t *testing.T) {
	kp := MustGenerate()
	msg := []byte("increment by 5")
	sig := kp.Sign(msg)

	require.Len(t, sig, SignatureSize)
	require.True(t, Verify(kp.Public, msg, sig))
	require.False(t, Verify(kp.Public, []byte("increment by 6"), sig))
	require.False(t, Verify(MustGenerate().Public, msg, sig))
	require.False(t, Verify(kp.Public, msg, sig[:10]))
}

func TestFromPassphrase(t *testing.T) {
	kp := FromPassphrase("correct horse battery staple")
	require.Equal(t, "506f27b1b4c2403f2602d663a059b0262afd6a5bcda95a08dd96a4614a89f1b0", kp.Public.String())
	require.Equal(t, kp.Public, FromPassphrase("correct horse battery staple").Public)
	require.NotEqual(t, kp.Public, FromPassphrase("incorrect horse").Public)
}

func TestFromSeed(t *testing.T) {
	_, err := FromSeed([]byte("short"))
	require.Error(t, err)

	seed := make([]byte, SeedSize)
	a, err := FromSeed(seed)
	require.NoError(t, err)
	b, err := FromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, a.Public, b.Public)
}

func TestParsePublicKey(t *testing.T) {
	kp := MustGenerate()

	parsed, err := ParsePublicKey(kp.Public.String())
	require.NoError(t, err)
	require.Equal(t, kp.Public, parsed)

	_, err = ParsePublicKey("not hex")
	require.Error(t, err)

	_, err = ParsePublicKey("abcd")
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	kp := MustGenerate()

	require.NoError(t, kp.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, kp.Public, loaded.Public)
	require.Equal(t, kp.Private, loaded.Private)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
