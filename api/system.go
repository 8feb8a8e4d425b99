package api

import (
	"net/http"
	"strconv"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/types"
)

// StatsResponse describes the node's current state.
type StatsResponse struct {
	Height     types.Height `json:"height"`
	PendingTxs int          `json:"pending_txs"`
	LastBlock  types.Hash   `json:"last_block,omitempty"`
	Services   []string     `json:"services"`
}

// TxStatusResponse reports where a transaction stands.
type TxStatusResponse struct {
	Committed bool         `json:"committed"`
	Height    types.Height `json:"height,omitempty"`
}

func (r *Router) registerSystem() {
	r.Handle(Public, "GET /api/system/healthcheck", func(*http.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})
	r.Handle(Public, "GET /api/system/stats", r.handleStats)
	r.Handle(Public, "GET /api/explorer/blocks/{height}", r.handleBlock)
	r.Handle(Public, "GET /api/explorer/transactions/{hash}", r.handleTxStatus)
	r.Handle(Public, "POST /api/explorer/transactions", r.sender.Handler(func(tx blockchain.Transaction) bool {
		return !blockchain.IsPrivate(tx)
	}))
	r.Handle(Private, "GET /api/system/stats", r.handleStats)
	r.Handle(Private, "POST /api/explorer/transactions", r.sender.Handler(func(blockchain.Transaction) bool {
		return true
	}))
}

func (r *Router) handleStats(*http.Request) (any, error) {
	resp := StatsResponse{
		Height:     r.chain.Height(),
		PendingTxs: r.pool.Size(),
	}
	if last := r.chain.LastBlock(); last != nil {
		resp.LastBlock = last.Hash()
	}
	for _, svc := range r.chain.Services() {
		resp.Services = append(resp.Services, svc.Name())
	}
	return resp, nil
}

func (r *Router) handleBlock(req *http.Request) (any, error) {
	height, err := strconv.ParseInt(req.PathValue("height"), 10, 64)
	if err != nil || height <= 0 {
		return nil, BadRequest("height must be a positive integer")
	}
	return r.chain.Block(types.Height(height))
}

func (r *Router) handleTxStatus(req *http.Request) (any, error) {
	var hash types.Hash
	if err := hash.UnmarshalText([]byte(req.PathValue("hash"))); err != nil {
		return nil, BadRequest("hash must be hex encoded")
	}
	height, ok := blockchain.NewCoreSchema(r.chain.Snapshot()).TxHeight(hash)
	return TxStatusResponse{Committed: ok, Height: height}, nil
}
