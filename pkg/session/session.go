// Package session scopes per-user state: the active account, the expected
// network, and a read-mostly cache of token balances and allowances. State is
// held on the session object, never at package level, so concurrent sessions
// (and tests) do not interfere.
package session

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ammswap/pkg/ledger"
	"ammswap/pkg/types"
)

// Session identifies the active account and caches TokenInfo per token.
// Fetches are serialized per token; the cache is invalidated after any
// state-changing operation.
type Session struct {
	Account common.Address
	ChainID *big.Int

	reader  ledger.Reader
	spender common.Address

	mu     sync.Mutex
	tokens map[common.Address]*tokenEntry
}

type tokenEntry struct {
	mu   sync.Mutex
	info *types.TokenInfo
}

// New creates a session for an account on the expected chain. spender is the
// execution contract whose allowance the cache tracks.
func New(account common.Address, chainID *big.Int, spender common.Address, reader ledger.Reader) *Session {
	return &Session{
		Account: account,
		ChainID: chainID,
		reader:  reader,
		spender: spender,
		tokens:  make(map[common.Address]*tokenEntry),
	}
}

// RequireChain verifies the endpoint serves the session's network. A
// mismatch is a precondition failure the engine does not resolve itself.
func (s *Session) RequireChain(ctx context.Context) error {
	id, err := s.reader.ChainID(ctx)
	if err != nil {
		return err
	}
	if s.ChainID != nil && id.Cmp(s.ChainID) != 0 {
		return &ChainMismatchError{Want: s.ChainID, Got: id}
	}
	return nil
}

// Token returns the cached snapshot for a token, fetching it if absent.
// Concurrent callers for the same token share one fetch.
func (s *Session) Token(ctx context.Context, token common.Address) (*types.TokenInfo, error) {
	e := s.entry(token)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.info != nil {
		return e.info, nil
	}
	info, err := s.reader.Token(ctx, s.Account, s.spender, token)
	if err != nil {
		return nil, err
	}
	e.info = info
	return info, nil
}

// Invalidate drops the cached snapshot for a token so the next read fetches
// fresh state.
func (s *Session) Invalidate(token common.Address) {
	e := s.entry(token)
	e.mu.Lock()
	e.info = nil
	e.mu.Unlock()
}

// InvalidateAll drops every cached snapshot.
func (s *Session) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.tokens {
		e.mu.Lock()
		e.info = nil
		e.mu.Unlock()
	}
}

func (s *Session) entry(token common.Address) *tokenEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[token]
	if !ok {
		e = &tokenEntry{}
		s.tokens[token] = e
	}
	return e
}
