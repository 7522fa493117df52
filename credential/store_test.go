package credential_test

import (
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/storyforge/credential"
	credentialrepofake "github.com/jrsteele09/storyforge/credential/repofake"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetClear(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	repo := credentialrepofake.NewFakeCredentialRepo()
	store := credential.NewStore(repo, credential.WithNowFunc(func() time.Time { return now }))

	require.Nil(t, store.Get())
	_, ok := store.SecondsUntilExpiry()
	require.False(t, ok)

	c := credential.New(tokenExpiringAt(t, now.Add(50*time.Second)), "refresh-1")
	require.NoError(t, store.Set(c))
	require.Same(t, c, store.Get())
	require.Same(t, c, repo.Stored())

	secs, ok := store.SecondsUntilExpiry()
	require.True(t, ok)
	require.Equal(t, int64(50), secs)

	require.NoError(t, store.Clear())
	require.Nil(t, store.Get())
	require.Nil(t, repo.Stored())

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}

func TestStore_SecondsUntilExpiryMalformedToken(t *testing.T) {
	store := credential.NewStore(credentialrepofake.NewFakeCredentialRepo())
	require.NoError(t, store.Set(credential.New("garbage", "refresh")))

	secs, ok := store.SecondsUntilExpiry()
	require.True(t, ok)
	require.LessOrEqual(t, secs, int64(0))
}

func TestStore_Restore(t *testing.T) {
	t.Run("empty repo", func(t *testing.T) {
		store := credential.NewStore(credentialrepofake.NewFakeCredentialRepo())
		c, err := store.Restore()
		require.NoError(t, err)
		require.Nil(t, c)
		require.Nil(t, store.Get())
	})

	t.Run("persisted credential", func(t *testing.T) {
		persisted := credential.New(tokenExpiringAt(t, time.Now().Add(time.Hour)), "refresh-1")
		store := credential.NewStore(credentialrepofake.NewFakeCredentialRepoWith(persisted))
		c, err := store.Restore()
		require.NoError(t, err)
		require.Equal(t, persisted, c)
		require.Equal(t, persisted, store.Get())
	})
}

func TestStore_SaveFailureKeepsInMemoryValue(t *testing.T) {
	repo := credentialrepofake.NewFakeCredentialRepo()
	repo.SaveErr = errors.New("disk full")
	store := credential.NewStore(repo)

	c := credential.New("a.b.c", "refresh-1")
	err := store.Set(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Same(t, c, store.Get())
}

func TestStore_CookieMirror(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	mirror, err := credential.NewCookieMirror(jar, "http://api.example.com")
	require.NoError(t, err)
	store := credential.NewStore(credentialrepofake.NewFakeCredentialRepo(), credential.WithCookieMirror(mirror))

	require.NoError(t, store.Set(credential.New("access-1", "refresh-1")))

	origin, _ := url.Parse("http://api.example.com/api/character/1")
	values := map[string]string{}
	for _, c := range jar.Cookies(origin) {
		values[c.Name] = c.Value
	}
	require.Equal(t, "access-1", values[credential.AccessTokenCookie])
	require.Equal(t, "refresh-1", values[credential.RefreshTokenCookie])

	require.NoError(t, store.Clear())
	require.Empty(t, jar.Cookies(origin))
}

func TestNewCookieMirror_RejectsRelativeOrigin(t *testing.T) {
	jar, _ := cookiejar.New(nil)
	_, err := credential.NewCookieMirror(jar, "/api")
	require.Error(t, err)
}

func TestStore_ReadersNeverSeeTornCredential(t *testing.T) {
	store := credential.NewStore(credentialrepofake.NewFakeCredentialRepo())
	require.NoError(t, store.Set(credential.New("access-0", "refresh-0")))

	var (
		wg   sync.WaitGroup
		torn atomic.Int32
	)
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			_ = store.Set(credential.New(fmt.Sprintf("access-%d", i), fmt.Sprintf("refresh-%d", i)))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c := store.Get()
				if c == nil || strings.TrimPrefix(c.AccessToken, "access-") != strings.TrimPrefix(c.RefreshToken, "refresh-") {
					torn.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	require.Zero(t, torn.Load())
}
