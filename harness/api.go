package harness

import (
	"context"

	"github.com/alekseysidorov/exonum-harness/api"
	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/client"
)

// API issues requests against the harness node. Any failure is fatal to the
// test.
type API struct {
	t       TB
	chain   *blockchain.Blockchain
	sender  *api.Sender
	public  *client.Client
	private *client.Client
}

func servicePath(service, endpoint string) string {
	return "/api/services/" + service + "/" + endpoint
}

// Get decodes the response of a public GET endpoint of service into out.
func (a *API) Get(service, endpoint string, out any) {
	a.t.Helper()
	if err := a.public.Get(context.Background(), servicePath(service, endpoint), out); err != nil {
		a.t.Fatalf("harness: GET %s/%s: %v", service, endpoint, err)
	}
}

// Post submits tx to a public endpoint of service and decodes the response
// into out.
func (a *API) Post(service, endpoint string, tx blockchain.Transaction, out any) {
	a.t.Helper()
	if err := a.public.Post(context.Background(), servicePath(service, endpoint), api.NewTxRequest(tx), out); err != nil {
		a.t.Fatalf("harness: POST %s/%s: %v", service, endpoint, err)
	}
}

// PostPrivate is Post against the private API.
func (a *API) PostPrivate(service, endpoint string, tx blockchain.Transaction, out any) {
	a.t.Helper()
	if err := a.private.Post(context.Background(), servicePath(service, endpoint), api.NewTxRequest(tx), out); err != nil {
		a.t.Fatalf("harness: private POST %s/%s: %v", service, endpoint, err)
	}
}

// Send submits tx straight to the pending pool, bypassing HTTP.
func (a *API) Send(tx blockchain.Transaction) {
	a.t.Helper()
	if err := a.TrySend(tx); err != nil {
		a.t.Fatalf("harness: sending %s: %v", tx.Hash(), err)
	}
}

// TrySend is Send returning the admission error. The transaction is decoded
// by the node from its wire encoding first, as it would be when received
// over the network.
func (a *API) TrySend(tx blockchain.Transaction) error {
	decoded, err := a.chain.TxFromRaw(tx.Raw())
	if err != nil {
		return err
	}
	_, err = a.sender.Send(decoded)
	return err
}

// Public returns the client of the public API.
func (a *API) Public() *client.Client {
	return a.public
}

// Private returns the client of the private API.
func (a *API) Private() *client.Client {
	return a.private
}
