package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"casino-engine/balance"
)

// fakeClock lets tests drive the engine's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testBounds() Bounds {
	return Bounds{
		MinBet:      decimal.NewFromInt(1),
		MaxBet:      decimal.NewFromInt(500),
		MaxExposure: decimal.NewFromInt(1000),
	}
}

func newTestEngine(t *testing.T, mem *balance.Memory) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	e, err := NewEngine(Options{Balance: mem, Now: clock.Now})
	require.NoError(t, err)
	return e, clock
}

func mustBalance(t *testing.T, mem *balance.Memory, owner string) decimal.Decimal {
	t.Helper()
	bal, err := mem.Balance(context.Background(), owner)
	require.NoError(t, err)
	return bal
}

func TestSessionLifecycleForcedRoulette(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("alice", decimal.NewFromInt(1000))
	e, _ := newTestEngine(t, mem)

	sid, commitment, err := e.OpenSession(ctx, OpenRequest{
		Kind:       KindRouletteEuropean,
		Owner:      "alice",
		Bounds:     testBounds(),
		ClientSeed: "alice-seed",
		TestMode:   true,
	})
	require.NoError(t, err)
	require.Len(t, commitment, 64)

	_, err = e.PlaceBet(ctx, sid, BetRequest{
		Kind:      RouletteStraight,
		Selection: Selection{Numbers: []int{17}},
		Stake:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{
		Kind:  RouletteRed,
		Stake: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	// Both stakes are debited up front.
	require.Equal(t, "850", mustBalance(t, mem, "alice").String())

	require.NoError(t, e.Lock(sid))

	stl, err := e.Settle(ctx, sid, &Outcome{Kind: KindRouletteEuropean, Pocket: 17})
	require.NoError(t, err)
	require.True(t, stl.Forced)
	require.Equal(t, 17, stl.Outcome.Pocket)

	require.Equal(t, BetWon, stl.Bets[0].Status)
	require.Equal(t, "3600", stl.Bets[0].WinAmount.String())
	// 17 is black.
	require.Equal(t, BetLost, stl.Bets[1].Status)
	require.True(t, stl.Bets[1].WinAmount.IsZero())

	require.Equal(t, "150", stl.Totals.TotalStake.String())
	require.Equal(t, "3600", stl.Totals.TotalPayout.String())
	require.Equal(t, "3450", stl.Totals.Net.String())
	require.True(t, stl.Totals.Commission.IsZero())

	require.Equal(t, "4450", mustBalance(t, mem, "alice").String())

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionSettled, snap.Status)
	require.Equal(t, HashCommitment(snap.ServerSeed), snap.ServerSeedHash)
	require.Equal(t, snap.ServerSeed, stl.Proof.ServerSeed)
}

func TestSessionSeedWithheldUntilSettlement(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("bob", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:   KindKeno,
		Owner:  "bob",
		Bounds: testBounds(),
	})
	require.NoError(t, err)

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Empty(t, snap.ServerSeed)
	require.NotEmpty(t, snap.ServerSeedHash)
}

func TestSettleDerivedOutcomeVerifies(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("carol", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:       KindKeno,
		Owner:      "carol",
		Bounds:     testBounds(),
		ClientSeed: "carol-seed",
		Nonce:      7,
	})
	require.NoError(t, err)

	_, err = e.PlaceBet(ctx, sid, BetRequest{
		Kind:      KenoSpots,
		Selection: Selection{Numbers: []int{3, 14, 27, 55, 80}},
		Stake:     decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	stl, err := e.Settle(ctx, sid, nil)
	require.NoError(t, err)
	require.False(t, stl.Forced)
	require.Len(t, stl.Outcome.Draw, 20)

	// An auditor with only the published proof replays the exact draw.
	replay, err := DeriveOutcome(stl.Kind, stl.Config, stl.Proof.ServerSeed, stl.Proof.ClientSeed, stl.Proof.Nonce)
	require.NoError(t, err)
	require.Equal(t, stl.Outcome.Draw, replay.Draw)

	require.True(t, Verify(stl))

	tampered := *stl
	flip := "0"
	if stl.Proof.ServerSeed[0] == '0' {
		flip = "f"
	}
	tampered.Proof.ServerSeed = flip + stl.Proof.ServerSeed[1:]
	require.False(t, Verify(&tampered))

	other := *stl
	other.Outcome = &Outcome{Kind: KindKeno, Draw: append([]int{}, stl.Outcome.Draw...)}
	other.Outcome.Draw[0], other.Outcome.Draw[1] = other.Outcome.Draw[1], other.Outcome.Draw[0]
	require.False(t, Verify(&other))
}

func TestSettleIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("dave", decimal.NewFromInt(1000))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:     KindRouletteEuropean,
		Owner:    "dave",
		Bounds:   testBounds(),
		TestMode: true,
	})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{
		Kind:      RouletteStraight,
		Selection: Selection{Numbers: []int{5}},
		Stake:     decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	first, err := e.Settle(ctx, sid, &Outcome{Kind: KindRouletteEuropean, Pocket: 5})
	require.NoError(t, err)
	balAfter := mustBalance(t, mem, "dave")
	keysAfter := mem.AppliedKeys()

	second, err := e.Settle(ctx, sid, nil)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, balAfter.String(), mustBalance(t, mem, "dave").String())
	require.Equal(t, keysAfter, mem.AppliedKeys())
}

func TestPlaceBetIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("erin", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:   KindRouletteEuropean,
		Owner:  "erin",
		Bounds: testBounds(),
	})
	require.NoError(t, err)

	req := BetRequest{
		ID:        "client-bet-1",
		Kind:      RouletteRed,
		Stake:     decimal.NewFromInt(30),
		Selection: Selection{},
	}
	id1, err := e.PlaceBet(ctx, sid, req)
	require.NoError(t, err)
	id2, err := e.PlaceBet(ctx, sid, req)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	require.Equal(t, "70", mustBalance(t, mem, "erin").String())
	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Len(t, snap.Bets, 1)
}

func TestPlaceBetFailures(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("frank", decimal.NewFromInt(50))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:   KindRouletteEuropean,
		Owner:  "frank",
		Bounds: Bounds{MinBet: decimal.NewFromInt(5), MaxBet: decimal.NewFromInt(40), MaxExposure: decimal.NewFromInt(60)},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  BetRequest
		want error
	}{
		{
			name: "below min bet",
			req:  BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(2)},
			want: ErrOutOfRange,
		},
		{
			name: "above max bet",
			req:  BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(45)},
			want: ErrOutOfRange,
		},
		{
			name: "zero stake",
			req:  BetRequest{Kind: RouletteRed, Stake: decimal.Zero},
			want: ErrOutOfRange,
		},
		{
			name: "bad selection",
			req:  BetRequest{Kind: RouletteStraight, Selection: Selection{Numbers: []int{99}}, Stake: decimal.NewFromInt(10)},
			want: ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PlaceBet(ctx, sid, tt.req)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	// Drain the wallet, then a valid-looking bet must bounce and leave the
	// session untouched.
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(40)})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteBlack, Stake: decimal.NewFromInt(15)})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInsufficientFunds), "got %v", err)
	require.True(t, errors.Is(err, balance.ErrInsufficientFunds), "cause not preserved: %v", err)

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Len(t, snap.Bets, 1)
	require.Equal(t, SessionOpen, snap.Status)
	require.Equal(t, "40", snap.Exposure.String())
}

func TestPlaceBetExposureCap(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("grace", decimal.NewFromInt(1000))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:   KindRouletteEuropean,
		Owner:  "grace",
		Bounds: Bounds{MinBet: decimal.NewFromInt(1), MaxBet: decimal.NewFromInt(100), MaxExposure: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(60)})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteBlack, Stake: decimal.NewFromInt(60)})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExposureExceeded), "got %v", err)
	require.Equal(t, "940", mustBalance(t, mem, "grace").String())
}

func TestBetWindowAutoLock(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("heidi", decimal.NewFromInt(100))
	e, clock := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:      KindRouletteEuropean,
		Owner:     "heidi",
		Bounds:    testBounds(),
		BetWindow: time.Minute,
	})
	require.NoError(t, err)

	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(10)})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteBlack, Stake: decimal.NewFromInt(10)})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidState), "got %v", err)

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionLocked, snap.Status)
}

func TestContributeClientSeed(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("ivan", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindKeno, Owner: "ivan", Bounds: testBounds()})
	require.NoError(t, err)

	require.NoError(t, e.ContributeClientSeed(sid, "ivan-picked-this"))
	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, "ivan-picked-this", snap.ClientSeed)

	require.Error(t, e.ContributeClientSeed(sid, ""))

	require.NoError(t, e.Lock(sid))
	err = e.ContributeClientSeed(sid, "too-late")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
}

func TestSettleStateGuards(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("judy", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindRouletteEuropean, Owner: "judy", Bounds: testBounds()})
	require.NoError(t, err)

	// Settling an open session is refused.
	_, err = e.Settle(ctx, sid, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidState), "got %v", err)

	// Forced outcomes need test mode.
	require.NoError(t, e.Lock(sid))
	_, err = e.Settle(ctx, sid, &Outcome{Kind: KindRouletteEuropean, Pocket: 3})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidState), "got %v", err)

	// Unknown sessions are named as such.
	_, err = e.Settle(ctx, "no-such-session", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownSession), "got %v", err)
}

func TestSettleForcedKindMismatch(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("kate", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:     KindRouletteEuropean,
		Owner:    "kate",
		Bounds:   testBounds(),
		TestMode: true,
	})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	_, err = e.Settle(ctx, sid, &Outcome{Kind: KindKeno, Draw: []int{1}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfigError), "got %v", err)
}

func TestSettleFairnessMismatchVoids(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("liam", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindRouletteEuropean, Owner: "liam", Bounds: testBounds()})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(25)})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	// Corrupt the held seed so it no longer matches the commitment.
	e.mu.RLock()
	st := e.sessions[sid]
	e.mu.RUnlock()
	st.mu.Lock()
	st.serverSeed = "0000000000000000000000000000000000000000000000000000000000000000"
	st.mu.Unlock()

	_, err = e.Settle(ctx, sid, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFairnessMismatch), "got %v", err)

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionVoided, snap.Status)
	require.Equal(t, BetVoid, snap.Bets[0].Status)
	require.Equal(t, "25", snap.Bets[0].WinAmount.String())
	require.Equal(t, "100", mustBalance(t, mem, "liam").String())
}

func TestSettleEvaluatorFailureVoidsBet(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("mia", decimal.NewFromInt(100))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:     KindDragonTiger,
		Owner:    "mia",
		Bounds:   testBounds(),
		TestMode: true,
	})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: DragonTigerDragon, Stake: decimal.NewFromInt(40)})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	// A forced outcome with no cards dealt cannot be evaluated; the bet is
	// voided and refunded, the session still settles.
	stl, err := e.Settle(ctx, sid, &Outcome{Kind: KindDragonTiger})
	require.NoError(t, err)
	require.Equal(t, BetVoid, stl.Bets[0].Status)
	require.Equal(t, "40", stl.Bets[0].WinAmount.String())
	require.Equal(t, "100", mustBalance(t, mem, "mia").String())

	require.Equal(t, "40", stl.Totals.TotalStake.String())
	require.Equal(t, "40", stl.Totals.TotalPayout.String())
	require.True(t, stl.Totals.Net.IsZero())
}

func TestVoidRefundsStakes(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("nina", decimal.NewFromInt(200))
	e, _ := newTestEngine(t, mem)

	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindRouletteEuropean, Owner: "nina", Bounds: testBounds()})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(30)})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteOdd, Stake: decimal.NewFromInt(20)})
	require.NoError(t, err)
	require.Equal(t, "150", mustBalance(t, mem, "nina").String())

	require.NoError(t, e.Void(ctx, sid, "table closed"))
	require.Equal(t, "200", mustBalance(t, mem, "nina").String())

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionVoided, snap.Status)
	require.Equal(t, "table closed", snap.VoidReason)
	for _, b := range snap.Bets {
		require.Equal(t, BetVoid, b.Status)
		require.Equal(t, b.Stake.String(), b.WinAmount.String())
	}

	// Voiding twice is refused, and the idempotency keys keep the second
	// refund from ever double-paying anyway.
	err = e.Void(ctx, sid, "again")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
}

// flakyBalance fails a fixed number of credits before behaving normally.
type flakyBalance struct {
	*balance.Memory
	creditFailures int
}

func (f *flakyBalance) Credit(ctx context.Context, owner string, amount decimal.Decimal, idemKey string) error {
	if f.creditFailures > 0 {
		f.creditFailures--
		return fmt.Errorf("balance store unavailable")
	}
	return f.Memory.Credit(ctx, owner, amount, idemKey)
}

func TestVoidRetriesFailedRefund(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("quinn", decimal.NewFromInt(100))
	fb := &flakyBalance{Memory: mem, creditFailures: 1}
	e, err := NewEngine(Options{Balance: fb})
	require.NoError(t, err)

	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindRouletteEuropean, Owner: "quinn", Bounds: testBounds()})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(40)})
	require.NoError(t, err)
	require.Equal(t, "60", mustBalance(t, mem, "quinn").String())

	// The refund bounces, so the void must not go through: money first,
	// terminal status second.
	err = e.Void(ctx, sid, "table closed")
	require.Error(t, err)

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionOpen, snap.Status)
	require.Equal(t, BetPending, snap.Bets[0].Status)
	require.Equal(t, "60", mustBalance(t, mem, "quinn").String())

	// Replaying Void re-drives the refund through the same key.
	require.NoError(t, e.Void(ctx, sid, "table closed"))
	require.Equal(t, "100", mustBalance(t, mem, "quinn").String())

	snap, err = e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionVoided, snap.Status)
	require.Equal(t, BetVoid, snap.Bets[0].Status)
	require.Equal(t, "40", snap.Bets[0].WinAmount.String())
}

func TestFairnessMismatchRefundRetry(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("ruth", decimal.NewFromInt(100))
	fb := &flakyBalance{Memory: mem, creditFailures: 1}
	e, err := NewEngine(Options{Balance: fb})
	require.NoError(t, err)

	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindRouletteEuropean, Owner: "ruth", Bounds: testBounds()})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(25)})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteOdd, Stake: decimal.NewFromInt(15)})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	e.mu.RLock()
	st := e.sessions[sid]
	e.mu.RUnlock()
	st.mu.Lock()
	st.serverSeed = "0000000000000000000000000000000000000000000000000000000000000000"
	st.mu.Unlock()

	// First refund bounces: the session stays Locked so Settle can retry.
	_, err = e.Settle(ctx, sid, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFairnessMismatch), "got %v", err)

	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionLocked, snap.Status)

	// Retry completes the refunds and only then voids the session.
	_, err = e.Settle(ctx, sid, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFairnessMismatch), "got %v", err)

	snap, err = e.Snapshot(sid)
	require.NoError(t, err)
	require.Equal(t, SessionVoided, snap.Status)
	require.Equal(t, "100", mustBalance(t, mem, "ruth").String())
	for _, b := range snap.Bets {
		require.Equal(t, BetVoid, b.Status)
		require.Equal(t, b.Stake.String(), b.WinAmount.String())
	}
}

func TestPersistRetry(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("oscar", decimal.NewFromInt(100))

	calls := 0
	persist := func(_ *Settlement) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("sink unavailable")
		}
		return nil
	}
	e, err := NewEngine(Options{Balance: mem, Persist: persist})
	require.NoError(t, err)

	sid, _, err := e.OpenSession(ctx, OpenRequest{
		Kind:     KindRouletteEuropean,
		Owner:    "oscar",
		Bounds:   testBounds(),
		TestMode: true,
	})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, sid, BetRequest{Kind: RouletteRed, Stake: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.NoError(t, e.Lock(sid))

	stl, err := e.Settle(ctx, sid, &Outcome{Kind: KindRouletteEuropean, Pocket: 1})
	require.Error(t, err)
	require.NotNil(t, stl, "settlement stands even when the callback fails")
	require.Equal(t, 1, calls)

	// The retry rides the next Settle and succeeds exactly once.
	again, err := e.Settle(ctx, sid, nil)
	require.NoError(t, err)
	require.Same(t, stl, again)
	require.Equal(t, 2, calls)

	_, err = e.Settle(ctx, sid, nil)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestSweepVoidsIdleSessions(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	mem.Deposit("pat", decimal.NewFromInt(100))
	e, clock := newTestEngine(t, mem)

	idle, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindKeno, Owner: "pat", Bounds: testBounds()})
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, idle, BetRequest{
		Kind:      KenoSpots,
		Selection: Selection{Numbers: []int{8}},
		Stake:     decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	active, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindKeno, Owner: "pat", Bounds: testBounds()})
	require.NoError(t, err)

	voided := e.Sweep(ctx, 5*time.Minute)
	require.Equal(t, 1, voided)

	snap, err := e.Snapshot(idle)
	require.NoError(t, err)
	require.Equal(t, SessionVoided, snap.Status)
	require.Equal(t, "100", mustBalance(t, mem, "pat").String())

	snap, err = e.Snapshot(active)
	require.NoError(t, err)
	require.Equal(t, SessionOpen, snap.Status)
}

func TestOpenSessionValidation(t *testing.T) {
	ctx := context.Background()
	mem := balance.NewMemory()
	e, _ := newTestEngine(t, mem)

	_, _, err := e.OpenSession(ctx, OpenRequest{Kind: Kind("poker"), Owner: "x", Bounds: testBounds()})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownGame), "got %v", err)

	_, _, err = e.OpenSession(ctx, OpenRequest{Kind: KindKeno, Bounds: testBounds()})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfigError), "got %v", err)

	_, _, err = e.OpenSession(ctx, OpenRequest{
		Kind:   KindKeno,
		Owner:  "x",
		Bounds: Bounds{MinBet: decimal.NewFromInt(10), MaxBet: decimal.NewFromInt(5)},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfigError), "got %v", err)

	// Slot sessions fall back to the built-in reel config.
	sid, _, err := e.OpenSession(ctx, OpenRequest{Kind: KindSlotClassic, Owner: "x", Bounds: testBounds()})
	require.NoError(t, err)
	snap, err := e.Snapshot(sid)
	require.NoError(t, err)
	require.NotNil(t, snap.Config.Slot)
	require.Equal(t, "classic-3x32-v1", snap.Config.Slot.Version)
}

func TestEngineRequiresBalance(t *testing.T) {
	_, err := NewEngine(Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfigError), "got %v", err)
}
