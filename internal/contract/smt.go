package contract

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aria-lang/ariac/internal/ast"
)

// Result is an SMT solver's verdict on a clause's negation.
type Result int

const (
	UNSAT Result = iota
	SAT
	UNKNOWN
)

func (r Result) String() string {
	switch r {
	case UNSAT:
		return "unsat"
	case SAT:
		return "sat"
	default:
		return "unknown"
	}
}

// CacheKey identifies one (clause, type context, solver version) query.
// Two digests are used rather than the raw text so keys are fixed-size and
// comparable.
type CacheKey struct {
	ExprDigest    [32]byte
	ContextDigest [32]byte
	SolverVersion string
}

// NewCacheKey hashes the clause's source text and the caller-supplied type
// context digest into a CacheKey.
func NewCacheKey(exprText, typeContextDigest, solverVersion string) CacheKey {
	return CacheKey{
		ExprDigest:    sha256.Sum256([]byte(exprText)),
		ContextDigest: sha256.Sum256([]byte(typeContextDigest)),
		SolverVersion: solverVersion,
	}
}

// Verdict is what the SMT adapter records for one query.
type Verdict struct {
	Result         Result
	Counterexample string
}

// tier2Verdict is the abstract-interpretation pass's cached outcome.
type tier2Verdict struct {
	Proof Proof
}

// entry is one node of the LRU cache.
type entry struct {
	key     CacheKey
	verdict Verdict
}

// Cache is an LRU verdict store keyed by CacheKey, backed by
// container/list with recency tracked by hand. One instance serves the
// Tier-1 adapter, another the Tier-2 router path; both go through the same
// mutex-guarded map operations, and no lock is ever held across a solver
// call.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[CacheKey]*list.Element
}

// NewCache creates a Cache holding at most capacity entries. capacity <= 0
// means unbounded.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[CacheKey]*list.Element),
	}
}

// Get returns the cached tier-2 verdict for key, if present, moving it to
// the front of the recency list.
func (c *Cache) Get(key CacheKey) (tier2Verdict, bool) {
	v, ok := c.GetVerdict(key)
	if !ok {
		return tier2Verdict{}, false
	}
	return tier2Verdict{Proof: proofFromResult(v.Result)}, true
}

// Put records a tier-2 verdict for key, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(key CacheKey, v tier2Verdict) {
	c.PutVerdict(key, Verdict{Result: resultFromProof(v.Proof)})
}

func proofFromResult(r Result) Proof {
	switch r {
	case UNSAT:
		return Proven
	case SAT:
		return Refuted
	default:
		return Unknown
	}
}

func resultFromProof(p Proof) Result {
	switch p {
	case Proven:
		return UNSAT
	case Refuted:
		return SAT
	default:
		return UNKNOWN
	}
}

// GetVerdict returns the full cached verdict (including a counterexample)
// for key, if present.
func (c *Cache) GetVerdict(key CacheKey) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return Verdict{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).verdict, true
}

// PutVerdict records a verdict for key, evicting the least-recently-used
// entry past capacity.
func (c *Cache) PutVerdict(key CacheKey, v Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		el.Value.(*entry).verdict = v
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&entry{key: key, verdict: v})
	c.index[key] = el
	if c.capacity > 0 && c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*entry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// persistedEntry is the on-disk form of one cache entry. Digests are
// hex-encoded so the file stays a plain JSON document.
type persistedEntry struct {
	Expr           string `json:"expr"`
	Context        string `json:"context"`
	SolverVersion  string `json:"solver_version"`
	Result         int    `json:"result"`
	Counterexample string `json:"counterexample,omitempty"`
}

// Save writes the cache to path, most-recently-used first. Persistence is
// best-effort: a failure loses warm-start data for the next build, nothing
// more, so callers may ignore the returned error.
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	entries := make([]persistedEntry, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		entries = append(entries, persistedEntry{
			Expr:           hex.EncodeToString(e.key.ExprDigest[:]),
			Context:        hex.EncodeToString(e.key.ContextDigest[:]),
			SolverVersion:  e.key.SolverVersion,
			Result:         int(e.verdict.Result),
			Counterexample: e.verdict.Counterexample,
		})
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("contract: encoding verdict cache: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load restores previously saved entries into the cache, preserving their
// recency order. Entries whose digests do not decode are skipped; a
// missing or corrupt file leaves the cache empty without error, since the
// cache is never required for correctness.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var entries []persistedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	// Insert back-to-front so the most-recently-used entry ends up at the
	// front again.
	for i := len(entries) - 1; i >= 0; i-- {
		p := entries[i]
		exprDigest, err1 := hex.DecodeString(p.Expr)
		ctxDigest, err2 := hex.DecodeString(p.Context)
		if err1 != nil || err2 != nil || len(exprDigest) != 32 || len(ctxDigest) != 32 {
			continue
		}
		var key CacheKey
		copy(key.ExprDigest[:], exprDigest)
		copy(key.ContextDigest[:], ctxDigest)
		key.SolverVersion = p.SolverVersion
		c.PutVerdict(key, Verdict{Result: Result(p.Result), Counterexample: p.Counterexample})
	}
	return nil
}

// Solver is the narrow interface the adapter needs from a real SMT
// backend. A process-wide implementation (e.g. shelling out to z3 over
// SMT-LIB2) is wired in at startup by the CLI; tests supply a stub. The
// implementation must present a blocking, thread-safe entry point — by
// serializing instances behind a queue or pooling disjoint ones.
type Solver interface {
	// CheckSat submits an SMT-LIB2 script and returns within the timeout,
	// observing ctx for early cancellation.
	CheckSat(ctx context.Context, script string, timeout time.Duration) (Result, string, error)
}

// SMTAdapter translates a restricted contract clause into an SMT-LIB2
// query over linear integer/real arithmetic, arrays, and algebraic
// datatypes, submits it to a Solver under a per-query timeout, and caches
// the verdict by CacheKey so identical queries across incremental builds
// are never re-solved.
type SMTAdapter struct {
	solver        Solver
	cache         *Cache
	SolverVersion string
	QueryTimeout  time.Duration // per-query budget
	unitBudget    time.Duration // cumulative budget for one compilation unit
	spent         time.Duration
	mu            sync.Mutex
}

// NewSMTAdapter creates an adapter around solver, with a process-wide
// verdict cache of the given capacity.
func NewSMTAdapter(solver Solver, solverVersion string, cacheCapacity int) *SMTAdapter {
	return &SMTAdapter{
		solver:        solver,
		cache:         NewCache(cacheCapacity),
		SolverVersion: solverVersion,
		QueryTimeout:  5 * time.Second,
		unitBudget:    30 * time.Second,
	}
}

// Cache exposes the Tier-1 verdict cache for lifecycle management.
func (a *SMTAdapter) Cache() *Cache {
	return a.cache
}

// Init resets the adapter's per-compilation-unit budget tracker. Called
// once at the start of each compilation session.
func (a *SMTAdapter) Init(unitBudget time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if unitBudget > 0 {
		a.unitBudget = unitBudget
	}
	a.spent = 0
}

// Shutdown releases adapter resources. The stub solver holds none; a
// process-backed solver would close its subprocess here.
func (a *SMTAdapter) Shutdown() error {
	return nil
}

// Query translates clause into an SMT-LIB2 fragment, asks the solver to
// check satisfiability of its negation, and memoizes the result by key.
// A cancelled ctx or an exhausted unit budget yields UNKNOWN without
// touching the solver; UNKNOWN verdicts are never cached, so a later
// build with budget to spare re-attempts the proof.
func (a *SMTAdapter) Query(ctx context.Context, clause ast.Contract, key CacheKey) (Verdict, error) {
	if v, ok := a.cache.GetVerdict(key); ok {
		return v, nil
	}

	if ctx.Err() != nil {
		return Verdict{Result: UNKNOWN}, nil
	}

	a.mu.Lock()
	if a.unitBudget > 0 && a.spent >= a.unitBudget {
		a.mu.Unlock()
		return Verdict{Result: UNKNOWN}, nil
	}
	a.mu.Unlock()

	script := translateToSMTLIB(clause)
	start := time.Now()
	result, counterexample, err := a.solver.CheckSat(ctx, script, a.QueryTimeout)
	elapsed := time.Since(start)

	a.mu.Lock()
	a.spent += elapsed
	a.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			// Cancellation observed mid-query: abandon and report unknown so
			// the router downgrades the clause instead of failing the build.
			return Verdict{Result: UNKNOWN}, nil
		}
		return Verdict{Result: UNKNOWN}, fmt.Errorf("smt: %w", err)
	}

	v := Verdict{Result: result, Counterexample: counterexample}
	if result != UNKNOWN {
		a.cache.PutVerdict(key, v)
	}
	return v, nil
}

// translateToSMTLIB renders a contract clause's negation as an SMT-LIB2
// script fragment. The full expression-to-term translation belongs to the
// type-checker collaborator that owns the typed AST; this stub emits the
// clause's opaque source text as a comment alongside a placeholder
// assertion so a real backend can be wired in without changing this
// package's shape.
func translateToSMTLIB(clause ast.Contract) string {
	return fmt.Sprintf(
		"; %s %s\n(assert (not %s))\n(check-sat)\n",
		clause.Kind, clause.Text, smtPlaceholder(clause),
	)
}

func smtPlaceholder(clause ast.Contract) string {
	if clause.Text == "" {
		return "true"
	}
	return "|" + clause.Text + "|"
}
