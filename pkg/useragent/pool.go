package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// Chrome is the desktop Chrome identity used when a single fixed agent is wanted.
const Chrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultPool provides a realistic set of modern desktop browser User-Agents.
var DefaultPool = []string{
	Chrome,
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// Strategy selects how Next walks the pool.
type Strategy int

const (
	Sequential Strategy = iota
	Random
)

// Pool is a collection of User-Agents handed out sequentially or randomly.
type Pool struct {
	uas      []string
	strategy Strategy
	counter  atomic.Uint64
}

// NewPool creates a sequential pool. An empty slice falls back to DefaultPool.
func NewPool(uas []string) *Pool {
	return NewPoolWithStrategy(uas, Sequential)
}

// NewPoolWithStrategy creates a pool whose Next follows the given strategy.
func NewPoolWithStrategy(uas []string, strategy Strategy) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{
		uas:      copied,
		strategy: strategy,
	}
}

// Next returns an agent according to the pool's strategy.
func (p *Pool) Next() string {
	if p.strategy == Random {
		return p.GetRandom()
	}
	return p.GetSequential()
}

// GetSequential returns the next User-Agent round-robin.
// It is safe for concurrent use.
func (p *Pool) GetSequential() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// GetRandom returns a random User-Agent using crypto/rand.
// It is safe for concurrent use.
func (p *Pool) GetRandom() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.GetSequential()
	}
	return p.uas[n.Int64()]
}

// Len reports the pool size.
func (p *Pool) Len() int {
	return len(p.uas)
}

// GetAll returns a copy of all User-Agents in the pool.
func (p *Pool) GetAll() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
