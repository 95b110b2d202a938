package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ballotABI is the ABI of the deployed voting contract. checkVoted is a view
// query keyed by the numeric voter id; vote records the vote and reverts when
// the id has already voted.
const ballotABI = `[
  {"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
  {"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"voterId","type":"uint256"}],"name":"VoteCast","type":"event"},
  {"inputs":[],"name":"admin","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"hasVoted","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"voterId","type":"uint256"}],"name":"vote","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"voterId","type":"uint256"}],"name":"checkVoted","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// EthConfig holds the connection settings for [EthGate].
type EthConfig struct {
	// RPCURL is the Ethereum JSON-RPC endpoint (e.g. a local Ganache node).
	RPCURL string

	// ContractAddress is the deployed voting contract address (0x-prefixed hex).
	ContractAddress string

	// PrivateKey is the hex-encoded sender key used to sign vote
	// transactions. A leading "0x" prefix is accepted.
	PrivateKey string

	// ChainID identifies the target chain. When zero it is fetched from the
	// node at connect time.
	ChainID int64

	// GasLimit caps the gas for a vote transaction. Default: 200000.
	GasLimit uint64

	// CallTimeout bounds each ledger round-trip. Default: 10s.
	CallTimeout time.Duration
}

// Compile-time interface check.
var _ Gate = (*EthGate)(nil)

// EthGate is a [Gate] backed by the voting contract on an Ethereum chain.
// Vote transactions are signed with a single sender account; [EthGate.CastVote]
// serializes submissions so concurrent casts cannot race on the account nonce.
type EthGate struct {
	client      *ethclient.Client
	contract    *bind.BoundContract
	auth        *bind.TransactOpts
	callTimeout time.Duration

	// txMu serializes transaction submission for the shared sender account.
	txMu sync.Mutex
}

// NewEthGate connects to the configured RPC endpoint and binds the voting
// contract.
func NewEthGate(ctx context.Context, cfg EthConfig) (*EthGate, error) {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 200000
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %q: %w", cfg.RPCURL, err)
	}

	parsed, err := abi.JSON(strings.NewReader(ballotABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ledger: parse contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ledger: parse sender key: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("ledger: fetch chain id: %w", err)
		}
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ledger: create transactor: %w", err)
	}
	auth.GasLimit = cfg.GasLimit

	addr := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(addr, parsed, client, client, client)

	return &EthGate{
		client:      client,
		contract:    contract,
		auth:        auth,
		callTimeout: cfg.CallTimeout,
	}, nil
}

// CheckVoted implements [Gate.CheckVoted] with a checkVoted view call.
func (g *EthGate) CheckVoted(ctx context.Context, voterID uint64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	var out []any
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, "checkVoted", new(big.Int).SetUint64(voterID))
	if err != nil {
		return false, classify(err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("ledger: checkVoted returned %d values", len(out))
	}
	voted, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("ledger: checkVoted returned %T, want bool", out[0])
	}
	return voted, nil
}

// CastVote implements [Gate.CastVote]: it submits the vote transaction and
// waits for inclusion. A contract revert, whether reported at submission or
// via a failed receipt, is the authoritative already-voted outcome.
func (g *EthGate) CastVote(ctx context.Context, voterID uint64) (Receipt, error) {
	g.txMu.Lock()
	defer g.txMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	opts := *g.auth
	opts.Context = ctx

	tx, err := g.contract.Transact(&opts, "vote", new(big.Int).SetUint64(voterID))
	if err != nil {
		return Receipt{}, classify(err)
	}

	rcpt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return Receipt{}, classify(err)
	}
	if rcpt.Status == 0 {
		// The only revert path in the contract is the double-vote guard.
		return Receipt{}, fmt.Errorf("%w: vote transaction %s reverted", ErrAlreadyVoted, tx.Hash())
	}

	return Receipt{
		TxHash:      tx.Hash().Hex(),
		BlockNumber: rcpt.BlockNumber.Uint64(),
	}, nil
}

// Ping probes node connectivity; used by the readiness checker.
func (g *EthGate) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	if _, err := g.client.BlockNumber(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases the underlying RPC client.
func (g *EthGate) Close() {
	g.client.Close()
}

// classify maps raw client errors onto the gate taxonomy: contract reverts
// become [ErrAlreadyVoted], transport failures and timeouts become
// [ErrUnavailable].
func classify(err error) error {
	if isRevert(err) {
		return fmt.Errorf("%w: %v", ErrAlreadyVoted, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// isRevert reports whether err is an EVM execution revert rather than a
// transport failure. go-ethereum surfaces reverts as opaque RPC errors, so
// this matches on the conventional message.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert")
}
