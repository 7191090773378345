package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/park285/gungi-arena/internal/gungi"
)

type recordingTelemetry struct {
	mu   sync.Mutex
	obs  []MoveObservation
	hook func(MoveObservation)
}

func (r *recordingTelemetry) ObserveMove(o MoveObservation) {
	if r.hook != nil {
		r.hook(o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, o)
}

func (r *recordingTelemetry) all() []MoveObservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MoveObservation(nil), r.obs...)
}

type fixture struct {
	clock *quartz.Mock
	store *Store
	coord *Coordinator
	tel   *recordingTelemetry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := quartz.NewMock(t)
	store := NewStore(StoreConfig{Clock: clock}, nil)
	tel := &recordingTelemetry{}
	coord, err := NewCoordinator(store, CoordinatorConfig{DefaultRegion: "eu-west"}, tel, nil)
	require.NoError(t, err)
	return &fixture{clock: clock, store: store, coord: coord, tel: tel}
}

func (f *fixture) think(t *testing.T) {
	t.Helper()
	f.clock.Advance(time.Second).MustWait(context.Background())
}

func pawnMove(col int) MoveData {
	return MoveData{From: gungi.Pos(6, col, 0), To: gungi.Pos(5, col, 0)}
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t)

	snap, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, gungi.Player1, snap.CurrentTurn)
	assert.Equal(t, "eu-west", snap.Region)
	assert.Equal(t, 0, snap.MoveNumber)
	assert.Len(t, snap.Board.ActivePieces(gungi.Player1), 26)

	m := f.coord.Metrics("s1")
	require.NotNil(t, m)
	assert.Equal(t, PerformanceMetrics{LastUpdateTime: f.clock.Now()}, *m)

	_, err = f.coord.CreateSession("s1", "carol", "dave", Config{}, "us-east")
	assert.ErrorIs(t, err, ErrSessionExists)

	_, err = f.coord.CreateSession("s2", "alice", "alice", Config{}, "")
	assert.ErrorIs(t, err, ErrInvalidArgs)

	generated, err := f.coord.CreateSession("", "alice", "bob", Config{}, "ap-south")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.Equal(t, "ap-south", generated.Region)
	assert.Equal(t, 2, f.store.Len())
}

func TestJoinSession(t *testing.T) {
	f := newFixture(t)
	snap, err := f.coord.CreateSession("lobby", "alice", "", Config{}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, snap.Status)

	f.think(t)
	_, err = f.coord.SubmitMove(context.Background(), "lobby", pawnMove(4), "alice", "")
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = f.coord.JoinSession("lobby", "alice")
	assert.ErrorIs(t, err, ErrInvalidArgs)

	snap, err = f.coord.JoinSession("lobby", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, "bob", snap.Player2)

	_, err = f.coord.JoinSession("lobby", "carol")
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = f.coord.JoinSession("missing", "carol")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitMoveAppliesToProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)

	f.think(t)
	res, err := f.coord.SubmitMove(ctx, "s1", pawnMove(4), "alice", "token")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.MoveHash, 64)
	assert.Equal(t, 1, res.MoveNumber)
	assert.False(t, res.Capture)

	snap, err := f.coord.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, gungi.Player2, snap.CurrentTurn)
	assert.Equal(t, 1, snap.MoveNumber)
	assert.Equal(t, f.clock.Now(), snap.LastMoveAt)
	assert.False(t, snap.Board.Occupied(gungi.Pos(6, 4, 0)))
	pawn, ok := snap.Board.At(gungi.Pos(5, 4, 0))
	require.True(t, ok)
	assert.Equal(t, 1, pawn.MoveCount)
	require.Len(t, snap.Moves, 1)
	assert.Equal(t, res.MoveHash, snap.Moves[0].Hash)

	_, err = f.coord.SubmitMove(ctx, "s1", pawnMove(3), "alice", "")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	m := f.coord.Metrics("s1")
	require.NotNil(t, m)
	assert.Equal(t, 1, m.TotalMoves)
	assert.Equal(t, 1, m.ErrorCount)
}

func TestSubmitMoveRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)

	_, err = f.coord.SubmitMove(ctx, "missing", pawnMove(4), "alice", "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.coord.SubmitMove(ctx, "s1", pawnMove(4), "alice", "")
	assert.ErrorIs(t, err, ErrTooFast)

	f.think(t)
	_, err = f.coord.SubmitMove(ctx, "s1", pawnMove(4), "mallory", "")
	assert.ErrorIs(t, err, ErrNotParticipant)

	before, err := f.coord.Session("s1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		move   MoveData
		reason gungi.Reason
	}{
		{"two rows", MoveData{From: gungi.Pos(6, 4, 0), To: gungi.Pos(4, 4, 0)}, gungi.ReasonIllegalPattern},
		{"empty source", MoveData{From: gungi.Pos(4, 4, 0), To: gungi.Pos(3, 4, 0)}, gungi.ReasonNoPieceAtSource},
		{"own capture", MoveData{From: gungi.Pos(8, 3, 0), To: gungi.Pos(7, 3, 0)}, gungi.ReasonCannotCaptureOwnPiece},
		{"off board", MoveData{From: gungi.Pos(6, 4, 0), To: gungi.Pos(5, 4, 3)}, gungi.ReasonOutOfBounds},
		{"opponent piece", MoveData{From: gungi.Pos(2, 4, 0), To: gungi.Pos(3, 4, 0)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.coord.SubmitMove(ctx, "s1", tt.move, "alice", "")
			require.ErrorIs(t, err, ErrInvalidMove)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, gungi.ReasonOf(err))
			}
		})
	}

	after, err := f.coord.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, before.Board.Fingerprint(gungi.Player1), after.Board.Fingerprint(gungi.Player1))
	assert.Equal(t, before.MoveNumber, after.MoveNumber)
	assert.Equal(t, before.CurrentTurn, after.CurrentTurn)

	m := f.coord.Metrics("s1")
	require.NotNil(t, m)
	assert.Equal(t, 0, m.TotalMoves)
	assert.Equal(t, 2+len(tests), m.ErrorCount)
}

func TestSuspiciousAccuracyIsFlaggedNotRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)

	f.think(t)
	move := pawnMove(4)
	move.Confidence = 0.99
	res, err := f.coord.SubmitMove(context.Background(), "s1", move, "alice", "")
	require.NoError(t, err)
	assert.True(t, res.Suspicious)

	obs := f.tel.all()
	require.Len(t, obs, 1)
	assert.True(t, obs[0].Suspicious)
	assert.True(t, obs[0].Accepted)
}

type denyAll struct{}

func (denyAll) Check(FraudInput) FraudVerdict {
	return FraudVerdict{Reject: errors.New("blocked")}
}

func TestPerSessionPolicy(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateSession("strict", "alice", "bob", Config{Policy: denyAll{}}, "")
	require.NoError(t, err)
	_, err = f.coord.CreateSession("lenient", "alice", "bob", Config{Policy: ThinkTimePolicy{}}, "")
	require.NoError(t, err)

	_, err = f.coord.SubmitMove(context.Background(), "strict", pawnMove(4), "alice", "")
	assert.EqualError(t, err, "blocked")

	_, err = f.coord.SubmitMove(context.Background(), "lenient", pawnMove(4), "alice", "")
	assert.NoError(t, err)
}

func TestMarshalCaptureCompletesSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)

	s, ok := f.store.Get("s1")
	require.True(t, ok)
	b := gungi.NewBoard()
	_, _ = b.Add(gungi.General, gungi.Player1, gungi.Pos(8, 3, 0))
	_, _ = b.Add(gungi.Marshal, gungi.Player1, gungi.Pos(8, 4, 0))
	_, _ = b.Add(gungi.Marshal, gungi.Player2, gungi.Pos(4, 3, 0))
	s.mu.Lock()
	s.board = b
	s.mu.Unlock()

	f.think(t)
	res, err := f.coord.SubmitMove(context.Background(), "s1",
		MoveData{From: gungi.Pos(8, 3, 0), To: gungi.Pos(4, 3, 0)}, "alice", "")
	require.NoError(t, err)
	assert.True(t, res.Capture)
	assert.True(t, res.Completed)
	assert.Equal(t, "alice", res.Winner)

	snap, err := f.coord.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	require.NotNil(t, snap.Moves[0].Captured)
	assert.Equal(t, gungi.Marshal, *snap.Moves[0].Captured)

	f.think(t)
	_, err = f.coord.SubmitMove(context.Background(), "s1",
		MoveData{From: gungi.Pos(8, 4, 0), To: gungi.Pos(7, 4, 0)}, "bob", "")
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestConcurrentSubmissionsAreSerialized(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)
	f.think(t)

	const racers = 9
	var (
		mu       sync.Mutex
		accepted []SubmitResult
	)
	g, ctx := errgroup.WithContext(context.Background())
	for col := 0; col < racers; col++ {
		move := pawnMove(col)
		g.Go(func() error {
			res, err := f.coord.SubmitMove(ctx, "s1", move, "alice", "")
			if err != nil {
				if errors.Is(err, ErrNotYourTurn) {
					return nil
				}
				return err
			}
			mu.Lock()
			accepted = append(accepted, res)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, accepted, 1)
	assert.Equal(t, 1, accepted[0].MoveNumber)

	snap, err := f.coord.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MoveNumber)
	assert.Equal(t, gungi.Player2, snap.CurrentTurn)
	assert.Len(t, snap.Board.ActivePieces(gungi.Player1), 26)

	m := f.coord.Metrics("s1")
	require.NotNil(t, m)
	assert.Equal(t, 1, m.TotalMoves)
	assert.Equal(t, racers-1, m.ErrorCount)
}

func TestSequentialMovesSeePriorEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)

	script := []struct {
		player   string
		from, to gungi.Position
	}{
		{"alice", gungi.Pos(6, 4, 0), gungi.Pos(5, 4, 0)},
		{"bob", gungi.Pos(2, 0, 0), gungi.Pos(3, 0, 0)},
		{"alice", gungi.Pos(5, 4, 0), gungi.Pos(4, 4, 0)},
		{"bob", gungi.Pos(2, 4, 0), gungi.Pos(3, 4, 0)},
		{"alice", gungi.Pos(4, 4, 0), gungi.Pos(3, 4, 0)},
	}
	for i, step := range script {
		f.think(t)
		res, err := f.coord.SubmitMove(ctx, "s1", MoveData{From: step.from, To: step.to}, step.player, "")
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, i+1, res.MoveNumber)
	}

	snap, err := f.coord.Session("s1")
	require.NoError(t, err)
	require.Len(t, snap.Moves, len(script))
	assert.NotNil(t, snap.Moves[4].Captured)
	assert.Len(t, snap.Board.ActivePieces(gungi.Player2), 25)
}

func TestTelemetryRunsOutsideSessionLock(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateSession("s1", "alice", "bob", Config{}, "")
	require.NoError(t, err)

	var seen Snapshot
	f.tel.hook = func(o MoveObservation) {
		seen, _ = f.coord.Session(o.SessionID)
	}
	f.think(t)
	_, err = f.coord.SubmitMove(context.Background(), "s1", pawnMove(4), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 1, seen.MoveNumber)
}

func TestMoveHashIsDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	a := MoveHash(gungi.Pos(6, 4, 0), gungi.Pos(5, 4, 0), at)
	assert.Equal(t, a, MoveHash(gungi.Pos(6, 4, 0), gungi.Pos(5, 4, 0), at))
	assert.NotEqual(t, a, MoveHash(gungi.Pos(6, 4, 0), gungi.Pos(5, 4, 1), at))
	assert.NotEqual(t, a, MoveHash(gungi.Pos(6, 4, 0), gungi.Pos(5, 4, 0), at.Add(time.Nanosecond)))
	assert.Len(t, a, 64)
}

func TestThinkTimePolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.ErrorIs(t, p.Check(FraudInput{ThinkTime: 50 * time.Millisecond}).Reject, ErrTooFast)
	assert.NoError(t, p.Check(FraudInput{ThinkTime: 100 * time.Millisecond}).Reject)
	assert.True(t, p.Check(FraudInput{ThinkTime: time.Second, Confidence: 0.96}).Suspicious)
	assert.False(t, p.Check(FraudInput{ThinkTime: time.Second, Confidence: 0.95}).Suspicious)
}
