package counter

import (
	"net/http"

	"github.com/alekseysidorov/exonum-harness/api"
	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/statestore"
)

// API paths of the counter service.
const (
	PathCount      = "/api/services/counter/count"
	PathCountProof = "/api/services/counter/count/proof"
	PathReset      = "/api/services/counter/reset"
)

// ProofResponse carries the counter value with a proof against the state root.
type ProofResponse struct {
	Count uint64            `json:"count"`
	Proof *statestore.Proof `json:"proof"`
}

var _ api.ServiceAPI = (*Service)(nil)

// WireAPI registers the counter endpoints.
func (s *Service) WireAPI(r *api.Router) {
	sender := r.Sender()
	chain := r.Chain()

	r.Handle(api.Public, "POST "+PathCount, sender.Handler(func(tx blockchain.Transaction) bool {
		_, ok := tx.(*TxIncrement)
		return ok
	}))
	r.Handle(api.Private, "POST "+PathReset, sender.Handler(func(tx blockchain.Transaction) bool {
		_, ok := tx.(*TxReset)
		return ok
	}))

	r.Handle(api.Public, "GET "+PathCount, func(*http.Request) (any, error) {
		count, _ := NewSchema(chain.Snapshot()).Count()
		return count, nil
	})
	r.Handle(api.Public, "GET "+PathCountProof, func(*http.Request) (any, error) {
		snapshot := chain.Snapshot()
		proof, err := snapshot.Proof(CountKey)
		if err != nil {
			return nil, err
		}
		count, _ := NewSchema(snapshot).Count()
		return ProofResponse{Count: count, Proof: proof}, nil
	})
}
