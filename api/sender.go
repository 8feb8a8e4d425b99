package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/messages"
	"github.com/alekseysidorov/exonum-harness/types"
)

// maxBodyBytes bounds a transaction request body: a hex encoded message of
// the maximum payload plus the JSON envelope.
const maxBodyBytes = 2*(messages.HeaderSize+messages.MaxPayloadSize+64) + 1024

// Pool is the pending pool behind the sender.
type Pool interface {
	Add(tx blockchain.Transaction) error
	Size() int
}

// TxRequest is the body of every transaction submission.
type TxRequest struct {
	// Tx is the hex encoded canonical message.
	Tx string `json:"tx"`
}

// NewTxRequest encodes a transaction for submission.
func NewTxRequest(tx blockchain.Transaction) TxRequest {
	return TxRequest{Tx: hex.EncodeToString(tx.Raw().Encode())}
}

// TxResponse answers a transaction submission.
type TxResponse struct {
	TxHash types.Hash `json:"tx_hash"`
}

// Sender decodes submitted transactions and hands them to the pool.
type Sender struct {
	chain  *blockchain.Blockchain
	pool   Pool
	logger *logging.Logger
}

// NewSender creates a sender.
func NewSender(chain *blockchain.Blockchain, pool Pool, logger *logging.Logger) *Sender {
	return &Sender{chain: chain, pool: pool, logger: logger}
}

// Decode reads a TxRequest from r and decodes its transaction.
func (s *Sender) Decode(r *http.Request) (blockchain.Transaction, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	var req TxRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, BadRequest("malformed transaction request")
	}
	data, err := hex.DecodeString(req.Tx)
	if err != nil {
		return nil, BadRequest("transaction is not valid hex")
	}
	return s.chain.DecodeTx(data)
}

// Send submits tx to the pool and returns its hash. A transaction that is
// already pending or committed is not an error: the caller still learns the
// hash it can track.
func (s *Sender) Send(tx blockchain.Transaction) (TxResponse, error) {
	err := s.pool.Add(tx)
	switch {
	case err == nil,
		errors.Is(err, types.ErrTxAlreadyExists),
		errors.Is(err, types.ErrTxAlreadyCommitted):
		return TxResponse{TxHash: tx.Hash()}, nil
	default:
		s.logger.Debug("transaction not accepted", logging.TxHash(tx.Hash().Bytes()), logging.Error(err))
		return TxResponse{}, err
	}
}

// Handler returns an endpoint accepting only transactions for which accept
// returns true.
func (s *Sender) Handler(accept func(blockchain.Transaction) bool) HandlerFunc {
	return func(r *http.Request) (any, error) {
		tx, err := s.Decode(r)
		if err != nil {
			return nil, err
		}
		if !accept(tx) {
			return nil, BadRequest(fmt.Sprintf("message %d of service %d is not accepted here", tx.MessageID(), tx.ServiceID()))
		}
		return s.Send(tx)
	}
}
