package filerepo_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storyforge/credential"
	"github.com/jrsteele09/storyforge/credential/filerepo"
	"github.com/stretchr/testify/require"
)

func TestFileRepo_SaveLoadDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	repo, err := filerepo.New(dir, "credential.json")
	require.NoError(t, err)

	_, err = repo.Load()
	require.ErrorIs(t, err, credential.ErrNotFound)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	require.NoError(t, repo.Save(credential.New(access, "refresh-1")))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Equal(t, access, loaded.AccessToken)
	require.Equal(t, "refresh-1", loaded.RefreshToken)
	require.Equal(t, exp.Unix(), loaded.AccessExpiryUnix())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(repo.Path())
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, repo.Delete())
	_, err = repo.Load()
	require.ErrorIs(t, err, credential.ErrNotFound)
	require.NoError(t, repo.Delete())
}

func TestFileRepo_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := filerepo.New(dir, "credential.json")
	require.NoError(t, err)

	require.NoError(t, repo.Save(credential.New("a", "r1")))
	require.NoError(t, repo.Save(credential.New("b", "r2")))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Equal(t, "r2", loaded.RefreshToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileRepo_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credential.json"), []byte("{not json"), 0o600))

	repo, err := filerepo.New(dir, "credential.json")
	require.NoError(t, err)

	_, err = repo.Load()
	require.Error(t, err)
	require.NotErrorIs(t, err, credential.ErrNotFound)
}
