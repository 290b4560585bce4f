package apifootball

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/betforge/coupon-engine/internal/domain/history"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Logger:     logging.NewNop(),
	})
}

func TestSearchTeamIDFirstResultWins(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/teams", r.URL.Path)
		require.Equal(t, "bayern", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"response":[{"team":{"id":157,"name":"Bayern Munich"}},{"team":{"id":158,"name":"Bayern II"}}]}`))
	})

	id, err := client.SearchTeamID(context.Background(), "Bayern Munich")
	require.NoError(t, err)
	require.Equal(t, int64(157), id)
}

func TestSearchTeamIDNoResult(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":[]}`))
	})

	id, err := client.SearchTeamID(context.Background(), "Nonexistent FC")
	require.NoError(t, err)
	require.Equal(t, history.UnresolvedTeamID, id)
}

func TestFetchFinishedResults(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fixtures", r.URL.Path)
		require.Equal(t, "157", r.URL.Query().Get("team"))
		_, _ = w.Write([]byte(`{"response":[
			{"fixture":{"id":1,"timestamp":100,"status":{"short":"FT"}},"goals":{"home":2,"away":1},
			 "teams":{"home":{"id":157,"name":"Bayern"},"away":{"id":10,"name":"Dortmund"}}},
			{"fixture":{"id":2,"timestamp":300,"status":{"short":"FT"}},"goals":{"home":0,"away":0},
			 "teams":{"home":{"id":20,"name":"Leipzig"},"away":{"id":157,"name":"Bayern"}}},
			{"fixture":{"id":3,"timestamp":200,"status":{"short":"FT"}},"goals":{"home":3,"away":1},
			 "teams":{"home":{"id":30,"name":"Mainz"},"away":{"id":157,"name":"Bayern"}}},
			{"fixture":{"id":4,"timestamp":400,"status":{"short":"NS"}},"goals":{"home":null,"away":null},
			 "teams":{"home":{"id":157,"name":"Bayern"},"away":{"id":40,"name":"Koln"}}}
		]}`))
	})

	results, err := client.FetchFinishedResults(context.Background(), 157, 2026)
	require.NoError(t, err)

	// Unfinished fixture excluded; rest sorted newest first.
	require.Len(t, results, 3)
	require.Equal(t, history.ResultDraw, results[0].Result)
	require.Equal(t, "Leipzig", results[0].Opponent)
	require.Equal(t, history.ResultLoss, results[1].Result)
	require.Equal(t, "3:1", results[1].Score)
	require.Equal(t, history.ResultWin, results[2].Result)
	require.Equal(t, "Dortmund", results[2].Opponent)
}

func TestSimplifySearchToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Bayern Munich": "bayern",
		"FC Porto":      "porto",
		"Arsenal":       "arsenal",
	}
	for in, want := range cases {
		require.Equal(t, want, SimplifySearchToken(in), "input %q", in)
	}
}
