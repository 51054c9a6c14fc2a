// Package chainhead treats a reachable Bitcoin Core (or any btcd
// RPC-compatible) node as PoBA's "host ledger": the only capability the
// worker needs from it is a monotonically increasing best block height to
// derive the current slot from, never wall-clock time.
//
// Trimmed from the teacher's internal/bitcoin.Client: same rpcclient.New
// connection pattern and startup verification via GetBlockCount, with the
// wallet/UTXO/fee-estimation machinery this system has no use for dropped.
package chainhead

import (
	"log"

	"github.com/btcsuite/btcd/rpcclient"
)

// Config is the RPC connection info for the host ledger node.
type Config struct {
	Host string
	User string
	Pass string
}

// Client is a thin wrapper around *rpcclient.Client exposing only the slot
// derivation the worker needs.
type Client struct {
	rpc *rpcclient.Client
}

// NewClient connects to the host ledger node and verifies the connection by
// requesting its current best block count.
func NewClient(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	log.Printf("[ChainHead] connecting to host ledger RPC at %s...", cfg.Host)
	rpc, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	count, err := rpc.GetBlockCount()
	if err != nil {
		rpc.Shutdown()
		return nil, err
	}
	log.Printf("[ChainHead] connected, best block height %d", count)

	return &Client{rpc: rpc}, nil
}

// Shutdown closes the underlying RPC connection.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// CurrentSlot derives the PoBA slot from the host ledger's best block
// number. Negative block counts never occur in practice; the conversion is
// a straight widen.
func (c *Client) CurrentSlot() (uint64, error) {
	count, err := c.rpc.GetBlockCount()
	if err != nil {
		return 0, err
	}
	return uint64(count), nil
}
