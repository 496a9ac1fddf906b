package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/sources"
)

func TestUserDataRowPerSteamid(t *testing.T) {
	user := &stubSource{name: "steamuser"}
	user.fetch = func(key string) sources.Result {
		if key == "200" {
			return sources.Failure("steamid 200 not found.")
		}
		return sources.Success(map[string]any{"steamid": key, "persona_name": "Player " + key})
	}

	c := newTestCollector(nil, nil)
	c.user = user

	rows := c.UserData(context.Background(), []string{"100", "200", "300"}, true)
	require.Len(t, rows, 3)
	require.Equal(t, "Player 100", rows[0]["persona_name"])
	require.Equal(t, map[string]any{"steamid": "200"}, rows[1])
	require.Equal(t, "Player 300", rows[2]["persona_name"])
	require.Equal(t, []string{"100", "200", "300"}, user.fetched())
}

func TestUserDataPausesBetweenUsers(t *testing.T) {
	user := &stubSource{name: "steamuser", result: sources.Success(map[string]any{})}
	c := newTestCollector(nil, nil)
	c.user = user
	c.opts.UserPause = 40 * time.Millisecond

	start := time.Now()
	rows := c.UserData(context.Background(), []string{"1", "2", "3"}, false)
	require.Len(t, rows, 3)
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
