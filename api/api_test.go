package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/alekseysidorov/exonum-harness/api"
	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/blockstore"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/mempool"
	"github.com/alekseysidorov/exonum-harness/metrics"
	"github.com/alekseysidorov/exonum-harness/services/counter"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/tracing"
	"github.com/alekseysidorov/exonum-harness/types"
)

type fixture struct {
	chain  *blockchain.Blockchain
	pool   *mempool.Mempool
	router *api.Router
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	store, err := statestore.NewMemoryStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	chain, err := blockchain.New(store, blockstore.NewMemoryBlockStore(),
		[]blockchain.Service{counter.New(counter.DefaultAdmin().Public)})
	require.NoError(t, err)

	pool, err := mempool.New(config.MempoolConfig{MaxTxs: 10, CacheSize: 10}, chain)
	require.NoError(t, err)

	return &fixture{chain: chain, pool: pool, router: api.NewRouter(chain, pool, opts...)}
}

func serve(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTransaction(t *testing.T) {
	f := newFixture(t)
	tx := counter.NewTxIncrement(keys.MustGenerate(), 3)

	rec := serve(t, f.router.Public(), http.MethodPost, counter.PathCount, api.NewTxRequest(tx))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.TxResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, tx.Hash(), resp.TxHash)
	require.True(t, f.pool.Has(tx.Hash()))

	// resubmission still answers with the hash
	rec = serve(t, f.router.Public(), http.MethodPost, counter.PathCount, api.NewTxRequest(tx))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.pool.Size())
}

func TestGenericSubmitEndpoint(t *testing.T) {
	const path = "/api/explorer/transactions"

	t.Run("public accepts public variants", func(t *testing.T) {
		f := newFixture(t)
		tx := counter.NewTxIncrement(keys.MustGenerate(), 2)

		rec := serve(t, f.router.Public(), http.MethodPost, path, api.NewTxRequest(tx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, f.pool.Has(tx.Hash()))
	})

	t.Run("public rejects admin variants", func(t *testing.T) {
		f := newFixture(t)
		tx := counter.NewTxReset(counter.DefaultAdmin())

		rec := serve(t, f.router.Public(), http.MethodPost, path, api.NewTxRequest(tx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.False(t, f.pool.Has(tx.Hash()))
		require.Zero(t, f.pool.Size())
	})

	t.Run("private accepts admin variants", func(t *testing.T) {
		f := newFixture(t)
		tx := counter.NewTxReset(counter.DefaultAdmin())

		rec := serve(t, f.router.Private(), http.MethodPost, path, api.NewTxRequest(tx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, f.pool.Has(tx.Hash()))
	})
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"not hex", api.TxRequest{Tx: "zz"}, http.StatusBadRequest},
		{"truncated", api.TxRequest{Tx: "0001"}, http.StatusBadRequest},
		{"unverified", api.NewTxRequest(counter.NewTxReset(keys.MustGenerate())), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, f.router.Private(), http.MethodPost, counter.PathReset, tc.body)
			require.Equal(t, tc.status, rec.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestExplorer(t *testing.T) {
	f := newFixture(t)
	tx := counter.NewTxIncrement(keys.MustGenerate(), 1)
	require.NoError(t, f.pool.Add(tx))
	_, err := blockchain.NewAssembler(f.chain, f.pool, 0).CreateBlock(context.Background())
	require.NoError(t, err)

	t.Run("block", func(t *testing.T) {
		rec := serve(t, f.router.Public(), http.MethodGet, "/api/explorer/blocks/2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var block blockchain.Block
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &block))
		require.Equal(t, types.Height(2), block.Height)
		require.Equal(t, []types.Hash{tx.Hash()}, block.TxHashes)
	})

	t.Run("missing block", func(t *testing.T) {
		rec := serve(t, f.router.Public(), http.MethodGet, "/api/explorer/blocks/99", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad height", func(t *testing.T) {
		rec := serve(t, f.router.Public(), http.MethodGet, "/api/explorer/blocks/zero", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transaction status", func(t *testing.T) {
		rec := serve(t, f.router.Public(), http.MethodGet, "/api/explorer/transactions/"+tx.Hash().String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var status api.TxStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		require.True(t, status.Committed)
		require.Equal(t, types.Height(2), status.Height)
	})

	t.Run("stats", func(t *testing.T) {
		rec := serve(t, f.router.Private(), http.MethodGet, "/api/system/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats api.StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		require.Equal(t, types.Height(2), stats.Height)
		require.Zero(t, stats.PendingTxs)
		require.Equal(t, []string{counter.ServiceName}, stats.Services)
	})
}

func TestStatusCode(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, api.StatusCode(types.ErrUnknownMessageType))
	require.Equal(t, http.StatusNotFound, api.StatusCode(types.ErrBlockNotFound))
	require.Equal(t, http.StatusServiceUnavailable, api.StatusCode(types.ErrMempoolFull))
	require.Equal(t, http.StatusTeapot, api.StatusCode(&api.Error{Status: http.StatusTeapot}))
	require.Equal(t, http.StatusInternalServerError, api.StatusCode(errors.New("boom")))
}

func TestInstrumentation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	pm := metrics.NewPrometheusMetrics("test")

	f := newFixture(t,
		api.WithMetrics(pm),
		api.WithTracer(tracing.NewTracerWithProvider("api-test", provider)),
	)
	rec := serve(t, f.router.Public(), http.MethodGet, counter.PathCount, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0\n", rec.Body.String())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "api GET "+counter.PathCount, spans[0].Name)

	count, err := testutil.GatherAndCount(pm.Registry(), "test_api_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestServiceEndpointsLogged(t *testing.T) {
	var buf bytes.Buffer
	newFixture(t, api.WithLogger(logging.NewTextLogger(&buf, slog.LevelDebug)))

	require.Contains(t, buf.String(), "wired service endpoints")
	require.Contains(t, buf.String(), "component=api")
	require.Contains(t, buf.String(), "service=counter")
}
