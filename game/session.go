package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"casino-engine/balance"
)

// PersistFunc receives a finalized settlement and is expected to apply it
// atomically. A non-nil error leaves the settlement pending; the engine
// retries it on the next Settle call for the same session.
type PersistFunc func(*Settlement) error

// Options wires the engine's collaborators. Balance is required;
// everything else has a sensible default.
type Options struct {
	Balance balance.Service
	Persist PersistFunc
	Entropy io.Reader          // defaults to crypto/rand
	Now     func() time.Time   // defaults to time.Now
	Logger  logrus.FieldLogger // defaults to a discarding logger
}

// Engine owns the session state machines. Operations on one session are
// serialized by a per-session lock; distinct sessions progress in
// parallel. The engine never mutates balances itself, it only instructs
// the balance service with idempotency keys.
type Engine struct {
	balance balance.Service
	persist PersistFunc
	entropy io.Reader
	now     func() time.Time
	log     logrus.FieldLogger

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu sync.Mutex
	s  Session

	serverSeed   string // withheld until reveal
	deadline     time.Time
	lastActivity time.Time
	settlement   *Settlement
	persisted    bool
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Balance == nil {
		return nil, newError(CodeConfigError, "engine requires a balance service")
	}
	e := &Engine{
		balance:  opts.Balance,
		persist:  opts.Persist,
		entropy:  opts.Entropy,
		now:      opts.Now,
		log:      opts.Logger,
		sessions: make(map[string]*sessionState),
	}
	if e.entropy == nil {
		e.entropy = rand.Reader
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		e.log = quiet
	}
	return e, nil
}

// OpenRequest describes a session to open.
type OpenRequest struct {
	Kind       Kind
	Owner      string
	Config     Config
	Bounds     Bounds
	ClientSeed string
	Nonce      uint64
	TestMode   bool

	// BetWindow closes bet acceptance this long after open; zero means
	// no deadline.
	BetWindow time.Duration
}

// OpenSession picks and commits to a server seed and returns the session
// identifier with the seed commitment. The raw seed stays internal until
// settlement reveals it.
func (e *Engine) OpenSession(_ context.Context, req OpenRequest) (string, string, error) {
	if _, err := lookupModule(req.Kind); err != nil {
		return "", "", err
	}
	if req.Owner == "" {
		return "", "", newError(CodeConfigError, "session requires an owner")
	}
	if err := checkBounds(req.Bounds); err != nil {
		return "", "", err
	}
	cfg := req.Config
	if req.Kind == KindSlotClassic {
		if cfg.Slot == nil {
			cfg.Slot = DefaultSlotConfig()
		}
		if err := cfg.Slot.check(); err != nil {
			return "", "", err
		}
	}

	serverSeed, err := generateServerSeed(e.entropy)
	if err != nil {
		return "", "", wrapError(CodeConfigError, err, "server seed")
	}
	clientSeed := req.ClientSeed
	if clientSeed == "" {
		// Out-of-band agreement is preferred; fall back to a seed
		// derived from the owner identity so the PRF input is never empty.
		clientSeed = "owner:" + req.Owner
	}

	now := e.now()
	st := &sessionState{
		s: Session{
			ID:             uuid.NewString(),
			Kind:           req.Kind,
			Owner:          req.Owner,
			Config:         cfg,
			Bounds:         req.Bounds,
			Status:         SessionOpen,
			CreatedAt:      now,
			ServerSeedHash: HashCommitment(serverSeed),
			ClientSeed:     clientSeed,
			Nonce:          req.Nonce,
			TestMode:       req.TestMode,
			Exposure:       decimal.Zero,
		},
		serverSeed:   serverSeed,
		lastActivity: now,
	}
	if req.BetWindow > 0 {
		st.deadline = now.Add(req.BetWindow)
	}

	e.mu.Lock()
	e.sessions[st.s.ID] = st
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"session_id": st.s.ID,
		"game":       req.Kind,
		"owner":      req.Owner,
		"nonce":      req.Nonce,
	}).Info("session opened")

	return st.s.ID, st.s.ServerSeedHash, nil
}

func checkBounds(b Bounds) error {
	if b.MinBet.IsNegative() || b.MaxBet.IsNegative() || b.MaxExposure.IsNegative() {
		return newError(CodeConfigError, "session bounds must be non-negative")
	}
	if b.MaxBet.IsPositive() && b.MaxBet.LessThan(b.MinBet) {
		return newError(CodeConfigError, "max_bet below min_bet")
	}
	return nil
}

func (e *Engine) state(sessionID string) (*sessionState, error) {
	e.mu.RLock()
	st, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok {
		return nil, newError(CodeUnknownSession, "session %q not found", sessionID)
	}
	return st, nil
}

// ContributeClientSeed appends or replaces the client seed; legal only
// before the session locks.
func (e *Engine) ContributeClientSeed(sessionID, seed string) error {
	st, err := e.state(sessionID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.Status != SessionOpen {
		return newError(CodeInvalidState, "client seed requires an open session, have %s", st.s.Status)
	}
	if seed == "" {
		return newError(CodeInvalidBetShape, "client seed must not be empty")
	}
	st.s.ClientSeed = seed
	st.lastActivity = e.now()
	return nil
}

// BetRequest describes a bet to place. ID is optional: callers that
// supply their own identifier get idempotent replay, repeated placement
// with the same ID returns the original bet without a second debit.
type BetRequest struct {
	ID        string
	Kind      BetKind
	Selection Selection
	Stake     decimal.Decimal
}

// PlaceBet validates the bet, debits the stake idempotently and appends
// the bet to the session. Nothing is partially accepted: on any failure
// the session is exactly as before.
func (e *Engine) PlaceBet(ctx context.Context, sessionID string, req BetRequest) (string, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return "", err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.now()
	if st.s.Status == SessionOpen && !st.deadline.IsZero() && now.After(st.deadline) {
		st.s.Status = SessionLocked
		e.log.WithField("session_id", st.s.ID).Info("bet window elapsed, session locked")
	}
	if st.s.Status != SessionOpen {
		return "", newError(CodeInvalidState, "session %s is %s, bets are closed", st.s.ID, st.s.Status)
	}

	if req.ID != "" {
		for _, b := range st.s.Bets {
			if b.ID == req.ID {
				return b.ID, nil
			}
		}
	}

	if !req.Stake.IsPositive() {
		return "", newError(CodeOutOfRange, "stake must be positive, got %s", req.Stake)
	}
	if req.Stake.LessThan(st.s.Bounds.MinBet) {
		return "", newError(CodeOutOfRange, "stake %s below min_bet %s", req.Stake, st.s.Bounds.MinBet)
	}
	if st.s.Bounds.MaxBet.IsPositive() && req.Stake.GreaterThan(st.s.Bounds.MaxBet) {
		return "", newError(CodeOutOfRange, "stake %s above max_bet %s", req.Stake, st.s.Bounds.MaxBet)
	}
	if st.s.Bounds.MaxExposure.IsPositive() && st.s.Exposure.Add(req.Stake).GreaterThan(st.s.Bounds.MaxExposure) {
		return "", newError(CodeExposureExceeded, "stake %s would push exposure past %s", req.Stake, st.s.Bounds.MaxExposure)
	}

	mod, err := lookupModule(st.s.Kind)
	if err != nil {
		return "", err
	}
	if err := mod.validate(req.Kind, req.Selection, st.s.Config); err != nil {
		return "", err
	}

	betID := req.ID
	if betID == "" {
		betID = uuid.NewString()
	}

	if err := e.balance.Debit(ctx, st.s.Owner, req.Stake, idemKey(st.s.ID, betID, "stake")); err != nil {
		if errors.Is(err, balance.ErrInsufficientFunds) {
			return "", wrapError(CodeInsufficientFunds, err, "stake %s", req.Stake)
		}
		return "", fmt.Errorf("debit stake: %w", err)
	}

	st.s.Bets = append(st.s.Bets, &Bet{
		ID:         betID,
		Kind:       req.Kind,
		Selection:  req.Selection,
		Stake:      req.Stake,
		AcceptedAt: now,
		Status:     BetPending,
		WinAmount:  decimal.Zero,
	})
	st.s.Exposure = st.s.Exposure.Add(req.Stake)
	st.lastActivity = now

	e.log.WithFields(logrus.Fields{
		"session_id": st.s.ID,
		"bet_id":     betID,
		"bet_kind":   req.Kind,
		"stake":      req.Stake.String(),
	}).Debug("bet placed")

	return betID, nil
}

// Lock freezes the bet list. Open -> Locked; anything else is an error.
func (e *Engine) Lock(sessionID string) error {
	st, err := e.state(sessionID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.Status != SessionOpen {
		return newError(CodeInvalidState, "lock requires an open session, have %s", st.s.Status)
	}
	st.s.Status = SessionLocked
	st.lastActivity = e.now()
	e.log.WithField("session_id", st.s.ID).Info("session locked")
	return nil
}

// Settle reveals the server seed, derives the outcome (or accepts a
// forced one in test mode), evaluates every bet in acceptance order,
// credits winners idempotently and hands the settlement to the
// persistence callback. Settling an already settled session returns the
// stored settlement and retries a pending callback; no credit is ever
// issued twice.
func (e *Engine) Settle(ctx context.Context, sessionID string, forced *Outcome) (*Settlement, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s.Status == SessionSettled {
		return st.settlement, e.retryPersist(st)
	}
	if st.s.Status != SessionLocked {
		return nil, newError(CodeInvalidState, "settle requires a locked session, have %s", st.s.Status)
	}
	if forced != nil && !st.s.TestMode {
		return nil, newError(CodeInvalidState, "forced outcomes require a test-mode session")
	}

	// The commitment was fixed at open; if the held seed no longer
	// matches it the whole round is unverifiable and must not pay out.
	if HashCommitment(st.serverSeed) != st.s.ServerSeedHash {
		if err := e.voidLocked(ctx, st, "fairness mismatch: server seed does not match commitment"); err != nil {
			// Session stays Locked; the next Settle retries the refunds.
			return nil, wrapError(CodeFairnessMismatch, err, "server seed does not match commitment, refunds incomplete")
		}
		return nil, newError(CodeFairnessMismatch, "server seed does not match commitment")
	}

	mod, err := lookupModule(st.s.Kind)
	if err != nil {
		return nil, err
	}

	var outcome *Outcome
	if forced != nil {
		if forced.Kind != st.s.Kind {
			return nil, newError(CodeConfigError, "forced outcome is for %s, session plays %s", forced.Kind, st.s.Kind)
		}
		outcome = forced
	} else {
		outcome, err = mod.generate(st.s.Config, newStream(st.serverSeed, st.s.ClientSeed, st.s.Nonce))
		if err != nil {
			return nil, err
		}
	}

	type result struct {
		status     BetStatus
		win        decimal.Decimal
		commission decimal.Decimal
	}
	results := make([]result, len(st.s.Bets))
	for i, bet := range st.s.Bets {
		status, win, commission, evalErr := e.evaluateSafe(mod, bet, outcome, st.s.Config)
		if evalErr != nil {
			// One broken bet must not sink the round: void it, refund
			// the stake, settle the rest normally.
			e.log.WithFields(logrus.Fields{
				"session_id": st.s.ID,
				"bet_id":     bet.ID,
				"error":      evalErr.Error(),
			}).Error("evaluator failed, voiding bet")
			results[i] = result{status: BetVoid, win: bet.Stake, commission: decimal.Zero}
			continue
		}
		results[i] = result{status: status, win: win, commission: commission}
	}

	// Credits go out before statuses commit; the keys make retries after
	// a mid-flight failure safe.
	for i, bet := range st.s.Bets {
		r := results[i]
		if !r.win.IsPositive() {
			continue
		}
		role := "win"
		if r.status == BetVoid {
			role = "refund"
		}
		if err := e.balance.Credit(ctx, st.s.Owner, r.win, idemKey(st.s.ID, bet.ID, role)); err != nil {
			return nil, fmt.Errorf("credit bet %s: %w", bet.ID, err)
		}
	}

	totals := Totals{
		TotalStake:  decimal.Zero,
		TotalPayout: decimal.Zero,
		Net:         decimal.Zero,
		Commission:  decimal.Zero,
	}
	for i, bet := range st.s.Bets {
		bet.Status = results[i].status
		bet.WinAmount = results[i].win
		totals.TotalStake = totals.TotalStake.Add(bet.Stake)
		totals.TotalPayout = totals.TotalPayout.Add(bet.WinAmount)
		totals.Commission = totals.Commission.Add(results[i].commission)
	}
	totals.Net = totals.TotalPayout.Sub(totals.TotalStake)

	now := e.now()
	st.s.Status = SessionSettled
	st.s.ServerSeed = st.serverSeed
	st.s.SettledAt = &now
	st.settlement = &Settlement{
		SessionID: st.s.ID,
		Kind:      st.s.Kind,
		Config:    st.s.Config,
		Outcome:   outcome,
		Bets:      st.s.Bets,
		Totals:    totals,
		Proof: Proof{
			ServerSeed:     st.serverSeed,
			ServerSeedHash: st.s.ServerSeedHash,
			ClientSeed:     st.s.ClientSeed,
			Nonce:          st.s.Nonce,
			Algorithm:      AlgorithmTag,
		},
		Forced:    forced != nil,
		SettledAt: now,
	}

	e.log.WithFields(logrus.Fields{
		"session_id":   st.s.ID,
		"game":         st.s.Kind,
		"total_stake":  totals.TotalStake.String(),
		"total_payout": totals.TotalPayout.String(),
		"forced":       forced != nil,
	}).Info("session settled")

	return st.settlement, e.retryPersist(st)
}

func (e *Engine) retryPersist(st *sessionState) error {
	if st.persisted || e.persist == nil {
		return nil
	}
	if err := e.persist(st.settlement); err != nil {
		e.log.WithFields(logrus.Fields{
			"session_id": st.s.ID,
			"error":      err.Error(),
		}).Warn("persistence callback failed, settlement pending redelivery")
		return fmt.Errorf("persist settlement: %w", err)
	}
	st.persisted = true
	return nil
}

func (e *Engine) evaluateSafe(mod module, bet *Bet, out *Outcome, cfg Config) (status BetStatus, win, commission decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panic: %v", r)
		}
	}()
	return mod.evaluate(bet, out, cfg)
}

// Void refunds every accepted stake and terminates the session without an
// outcome. Legal from Open or Locked. A failed refund aborts the
// transition; replaying Void re-drives the outstanding credits through
// the same idempotency keys.
func (e *Engine) Void(ctx context.Context, sessionID, reason string) error {
	st, err := e.state(sessionID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.Status != SessionOpen && st.s.Status != SessionLocked {
		return newError(CodeInvalidState, "void requires an open or locked session, have %s", st.s.Status)
	}
	return e.voidLocked(ctx, st, reason)
}

// voidLocked refunds and terminates; caller holds the session lock. The
// session only becomes Voided once every stake is back with its owner, so
// the caller can retry until the balance service cooperates.
func (e *Engine) voidLocked(ctx context.Context, st *sessionState, reason string) error {
	for _, bet := range st.s.Bets {
		if bet.Status == BetVoid {
			continue
		}
		if err := e.balance.Credit(ctx, st.s.Owner, bet.Stake, idemKey(st.s.ID, bet.ID, "refund")); err != nil {
			e.log.WithFields(logrus.Fields{
				"session_id": st.s.ID,
				"bet_id":     bet.ID,
				"error":      err.Error(),
			}).Error("refund credit failed, void incomplete")
			return fmt.Errorf("refund bet %s: %w", bet.ID, err)
		}
		bet.Status = BetVoid
		bet.WinAmount = bet.Stake
	}
	st.s.Status = SessionVoided
	st.s.VoidReason = reason
	e.log.WithFields(logrus.Fields{
		"session_id": st.s.ID,
		"reason":     reason,
	}).Warn("session voided")
	return nil
}

// Sweep voids every open session idle past the budget. Intended for a
// watchdog ticker owned by the caller.
func (e *Engine) Sweep(ctx context.Context, idleBudget time.Duration) int {
	e.mu.RLock()
	stale := make([]*sessionState, 0)
	for _, st := range e.sessions {
		stale = append(stale, st)
	}
	e.mu.RUnlock()

	voided := 0
	now := e.now()
	for _, st := range stale {
		st.mu.Lock()
		if st.s.Status == SessionOpen && now.Sub(st.lastActivity) > idleBudget {
			// A refund failure leaves the session Open for the next sweep.
			if e.voidLocked(ctx, st, "inactivity budget exceeded") == nil {
				voided++
			}
		}
		st.mu.Unlock()
	}
	return voided
}

// Snapshot returns a copy of the session header and bets as they stand.
func (e *Engine) Snapshot(sessionID string) (*Session, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	copySes := st.s
	copySes.Bets = make([]*Bet, len(st.s.Bets))
	for i, b := range st.s.Bets {
		bc := *b
		copySes.Bets[i] = &bc
	}
	return &copySes, nil
}

// DeriveOutcome recomputes an outcome from published seeds; auditors use
// it to replay a round independently of any session state.
func DeriveOutcome(kind Kind, cfg Config, serverSeed, clientSeed string, nonce uint64) (*Outcome, error) {
	mod, err := lookupModule(kind)
	if err != nil {
		return nil, err
	}
	return mod.generate(cfg, newStream(serverSeed, clientSeed, nonce))
}

func idemKey(sessionID, betID, role string) string {
	return fmt.Sprintf("%s:%s:%s", sessionID, betID, role)
}
