package ledger

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode answers every JSON-RPC call with body and records the last request
func fakeNode(t *testing.T, status int, body string, last *rpcRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if last != nil {
			require.NoError(t, json.Unmarshal(data, last))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

const historyBody = `{"jsonrpc":"2.0","id":1,"result":{"history":[
	[7,{"trx_id":"aaa","block":100,"timestamp":"2024-05-01T10:00:00","op":["vote",{"voter":"alice"}]}],
	[8,{"trx_id":"bbb","block":101,"timestamp":"2024-05-01T10:00:03","op":["custom_json",{"required_auths":[],"required_posting_auths":["alice"],"id":"ipfs_upload","json":"{\"message\":\"Document upload\",\"ipfsHash\":\"https://ipfs.io/ipfs/QmA\",\"fileName\":\"a.txt\",\"uploadedDate\":\"2024-05-01T10:00:00.000Z\"}"}]}],
	[9,{"trx_id":"ccc","block":102,"timestamp":"2024-05-01T10:00:06","op":{"type":"custom_json_operation","value":{"required_auths":[],"required_posting_auths":["alice"],"id":"ipfs_upload","json":"{\"message\":\"Document upload\",\"ipfsHash\":\"https://ipfs.io/ipfs/QmB\",\"fileName\":\"b.pdf\",\"uploadedDate\":\"2024-05-02T10:00:00.000Z\"}"}}}],
	[10,{"trx_id":"ddd","block":103,"timestamp":"2024-05-01T10:00:09","op":["custom_json",{"required_auths":[],"required_posting_auths":["alice"],"id":"ipfs_upload","json":"not json"}]}],
	[11,{"trx_id":"eee","block":104,"timestamp":"2024-05-01T10:00:12","op":["custom_json",{"required_auths":[],"required_posting_auths":["alice"],"id":"follow","json":"[\"follow\",{}]"}]}]
]}}`

func TestGetHistory(t *testing.T) {
	var req rpcRequest
	srv := fakeNode(t, http.StatusOK, historyBody, &req)

	c := NewClient(srv.URL)
	txs, err := c.GetHistory(t.Context(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, txs, 5)

	assert.Equal(t, "account_history_api.get_account_history", req.Method)
	assert.Equal(t, "2.0", req.JSONRPC)
	params := req.Params.(map[string]any)
	assert.Equal(t, "alice", params["account"])
	assert.EqualValues(t, -1, params["start"])
	assert.EqualValues(t, 10, params["limit"])

	// most recent first
	assert.Equal(t, "eee", txs[0].TrxID)
	assert.EqualValues(t, 11, txs[0].Index)
	assert.Equal(t, "aaa", txs[4].TrxID)
	assert.Equal(t, "vote", txs[4].Op.Type)
	assert.Equal(t, 2024, txs[4].Timestamp.Year())
}

func TestGetHistoryClampsWindow(t *testing.T) {
	cases := map[string]struct {
		window int
		want   int
	}{
		"zero":     {0, DefaultHistoryWindow},
		"negative": {-5, DefaultHistoryWindow},
		"too big":  {5000, MaxHistoryWindow},
		"in range": {42, 42},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var req rpcRequest
			srv := fakeNode(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"history":[]}}`, &req)

			_, err := NewClient(srv.URL).GetHistory(t.Context(), "alice", tc.window)
			require.NoError(t, err)
			assert.EqualValues(t, tc.want, req.Params.(map[string]any)["limit"])
		})
	}
}

func TestGetHistoryEmpty(t *testing.T) {
	srv := fakeNode(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"history":[]}}`, nil)

	txs, err := NewClient(srv.URL).GetHistory(t.Context(), "alice", 100)
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestGetProvenance(t *testing.T) {
	srv := fakeNode(t, http.StatusOK, historyBody, nil)

	records, err := NewClient(srv.URL).GetProvenance(t.Context(), "alice", 100, RecordKind)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ccc", records[0].TrxID)
	assert.Equal(t, "b.pdf", records[0].FileName)
	assert.Equal(t, "https://ipfs.io/ipfs/QmB", records[0].IPFSHash)
	assert.Equal(t, "bbb", records[1].TrxID)
	assert.Equal(t, "a.txt", records[1].FileName)
}

func TestRPCErrorObject(t *testing.T) {
	srv := fakeNode(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid parameters"}}`, nil)

	_, err := NewClient(srv.URL).GetHistory(t.Context(), "alice", 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRPC)
	assert.NotErrorIs(t, err, ErrRPCUnavailable)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, "Invalid parameters", rpcErr.Message)
}

func TestRPCUnavailable(t *testing.T) {
	t.Run("bad gateway", func(t *testing.T) {
		srv := fakeNode(t, http.StatusBadGateway, `<html>bad gateway</html>`, nil)

		_, err := NewClient(srv.URL).GetAccount(t.Context(), "alice")
		assert.ErrorIs(t, err, ErrRPCUnavailable)
	})

	t.Run("server down", func(t *testing.T) {
		srv := fakeNode(t, http.StatusOK, `{}`, nil)
		srv.Close()

		_, err := NewClient(srv.URL).GetHistory(t.Context(), "alice", 100)
		assert.ErrorIs(t, err, ErrRPCUnavailable)
	})
}

func TestGetAccount(t *testing.T) {
	var req rpcRequest
	srv := fakeNode(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[{"id":42,"name":"alice","created":"2020-03-01T12:00:00","balance":"1.000 HIVE","hbd_balance":"0.500 HBD","vesting_shares":"10.000000 VESTS","post_count":3}]}`, &req)

	acc, err := NewClient(srv.URL).GetAccount(t.Context(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "condenser_api.get_accounts", req.Method)
	assert.Equal(t, []any{[]any{"alice"}}, req.Params)

	assert.Equal(t, "alice", acc.Name)
	assert.EqualValues(t, 42, acc.ID)
	assert.Equal(t, "1.000 HIVE", acc.Balance)
	assert.Equal(t, 2020, acc.Created.Year())
}

func TestGetAccountNotFound(t *testing.T) {
	srv := fakeNode(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[]}`, nil)

	_, err := NewClient(srv.URL).GetAccount(t.Context(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetHistoryMalformedIndex(t *testing.T) {
	srv := fakeNode(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"history":[
		["seven",{"trx_id":"aaa","block":100,"timestamp":"2024-05-01T10:00:00","op":["vote",{"voter":"alice"}]}]
	]}}`, nil)

	_, err := NewClient(srv.URL).GetHistory(t.Context(), "alice", 10)
	assert.ErrorIs(t, err, ErrRPCUnavailable)
}
