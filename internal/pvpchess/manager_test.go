package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/park285/cheese-chess/internal/rules"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb, err := OpenRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	s := NewRedisStore(rdb, DefaultGameTTL)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func newTestManager(t *testing.T) (*Manager, *RedisStore) {
	t.Helper()
	s, _ := newTestRedis(t)
	return NewManager(s), s
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, recipient, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recipient+": "+message)
	return n.err
}

type recordingArchiver struct {
	mu      sync.Mutex
	methods map[string]string
}

func (a *recordingArchiver) SaveResult(_ context.Context, g *Game, method string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.methods == nil {
		a.methods = map[string]string{}
	}
	a.methods[g.ID] = method
	return nil
}

type staticMessages map[string]string

func (s staticMessages) Render(key string, data any) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	return fmt.Sprintf("%s %v", v, data.(map[string]any)["GameID"]), nil
}

var (
	alice = Player{ID: "u-alice", Name: "Alice"}
	bob   = Player{ID: "u-bob", Name: "Bob"}
	carol = Player{ID: "u-carol", Name: "Carol"}
)

func at(t *testing.T, name string) rules.Square {
	t.Helper()
	s, err := rules.ParseSquare(name)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", name, err)
	}
	return s
}

func wantCode(t *testing.T, err error, code Code, key string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected domain error %s, got %v", code, err)
	}
	if de.Code != code {
		t.Fatalf("code = %s (%v); want %s", de.Code, err, code)
	}
	if key != "" && de.Key != key {
		t.Fatalf("key = %s; want %s", de.Key, key)
	}
}

// startGame creates a game by alice and has bob join it.
func startGame(t *testing.T, m *Manager) *Game {
	t.Helper()
	ctx := context.Background()
	g, err := m.CreateGame(ctx, alice, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	g, err = m.JoinGame(ctx, bob, g.ID)
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	return g
}

// seedGame stores an in-progress game between alice (white) and bob with the
// given placement and side to move.
func seedGame(t *testing.T, s Store, placement string, turn rules.Color) *Game {
	t.Helper()
	b, err := rules.ParsePlacement(placement)
	if err != nil {
		t.Fatalf("ParsePlacement: %v", err)
	}
	g := &Game{
		ID:          "seed-" + placement,
		Player1:     alice.ID,
		Player2:     bob.ID,
		Board:       *b,
		CurrentTurn: turn,
		MoveHistory: []Move{},
		Status:      StatusInProgress,
	}
	if err := s.Insert(context.Background(), g); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return g
}

func mustGet(t *testing.T, m *Manager, id string) *Game {
	t.Helper()
	g, err := m.GetGame(context.Background(), id)
	if err != nil || g == nil {
		t.Fatalf("GetGame(%s) = %v, %v", id, g, err)
	}
	return g
}

func TestCreateGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	g, err := m.CreateGame(ctx, alice, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.Status != StatusWaiting || g.CurrentTurn != rules.White || g.Player1 != alice.ID || g.Player1Name != "Alice" {
		t.Fatalf("unexpected new game: %+v", g)
	}
	if g.Player2 != "" || g.InvitedPlayer != "" || len(g.MoveHistory) != 0 {
		t.Fatalf("new game should have no opponent or history: %+v", g)
	}

	stored := mustGet(t, m, g.ID)
	if stored.Board != rules.InitialBoard() {
		t.Errorf("stored board is not the initial position: %s", stored.Board.Placement())
	}

	_, err = m.CreateGame(ctx, Player{}, "")
	wantCode(t, err, CodeUnauthenticated, "")
	_, err = m.CreateGame(ctx, alice, alice.ID)
	wantCode(t, err, CodeBadRequest, "errors.self_invite")
}

func TestCreateGameInvitation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	n := &recordingNotifier{}
	m.AttachNotifier(n)
	m.AttachMessages(staticMessages{"notify.invite": "join"})

	g, err := m.CreateGame(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.InvitedPlayer != bob.ID {
		t.Fatalf("InvitedPlayer = %q", g.InvitedPlayer)
	}
	want := []string{bob.ID + ": join " + g.ID}
	if diff := cmp.Diff(want, n.sent); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.CreateGame(ctx, alice, ""); err != nil {
		t.Fatalf("CreateGame without invite: %v", err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("uninvited game sent a notification: %v", n.sent)
	}
}

func TestCreateGameNotifierFailureIsIgnored(t *testing.T) {
	m, _ := newTestManager(t)
	m.AttachNotifier(&recordingNotifier{err: errors.New("sink down")})

	g, err := m.CreateGame(context.Background(), alice, bob.ID)
	if err != nil {
		t.Fatalf("CreateGame returned notifier error: %v", err)
	}
	if mustGet(t, m, g.ID).Status != StatusWaiting {
		t.Fatalf("game not stored")
	}
}

func TestJoinGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	g, err := m.CreateGame(ctx, alice, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	_, err = m.JoinGame(ctx, alice, g.ID)
	wantCode(t, err, CodeBadRequest, "errors.self_join")

	joined, err := m.JoinGame(ctx, bob, g.ID)
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if joined.Status != StatusInProgress || joined.Player2 != bob.ID || joined.Player2Name != "Bob" {
		t.Fatalf("unexpected joined game: %+v", joined)
	}

	_, err = m.JoinGame(ctx, carol, g.ID)
	wantCode(t, err, CodeBadRequest, "errors.not_waiting")

	_, err = m.JoinGame(ctx, carol, "missing")
	wantCode(t, err, CodeNotFound, "")

	_, err = m.JoinGame(ctx, Player{}, g.ID)
	wantCode(t, err, CodeUnauthenticated, "")
}

func TestJoinGameInviteOnly(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	g, err := m.CreateGame(ctx, alice, bob.ID)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	_, err = m.JoinGame(ctx, carol, g.ID)
	wantCode(t, err, CodeForbidden, "errors.not_invited")
	if got := mustGet(t, m, g.ID); got.Status != StatusWaiting || got.Player2 != "" {
		t.Fatalf("rejected join changed the game: %+v", got)
	}
	if _, err := m.JoinGame(ctx, bob, g.ID); err != nil {
		t.Fatalf("invited player join: %v", err)
	}
}

func TestFoolsMate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	arch := &recordingArchiver{}
	m.AttachArchiver(arch)
	g := startGame(t, m)

	plies := []struct {
		who      Player
		from, to string
	}{
		{alice, "f2", "f3"},
		{bob, "e7", "e5"},
		{alice, "g2", "g4"},
		{bob, "d8", "h4"},
	}
	var last MoveOutcome
	for _, p := range plies {
		out, err := m.MakeMove(ctx, p.who, g.ID, at(t, p.from), at(t, p.to))
		if err != nil {
			t.Fatalf("%s %s-%s: %v", p.who.Name, p.from, p.to, err)
		}
		last = out
	}
	if !last.IsCheck || !last.IsCheckmate {
		t.Fatalf("final outcome = %+v; want check and mate", last)
	}

	done := mustGet(t, m, g.ID)
	if done.Status != StatusCompleted || done.Winner != bob.ID || done.CompletedAt == nil {
		t.Fatalf("game not completed for black: status=%s winner=%s", done.Status, done.Winner)
	}
	if !done.IsCheck || !done.IsCheckmate || done.CurrentTurn != rules.White {
		t.Fatalf("unexpected final flags: %+v", done)
	}
	var notations []string
	for _, mv := range done.MoveHistory {
		notations = append(notations, mv.Notation())
	}
	if diff := cmp.Diff([]string{"f2-f3", "e7-e5", "g2-g4", "Qd8-h4#"}, notations); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if arch.methods[g.ID] != "checkmate" {
		t.Errorf("archive method = %q; want checkmate", arch.methods[g.ID])
	}

	// Terminal games are immutable.
	_, err := m.MakeMove(ctx, alice, g.ID, at(t, "e2"), at(t, "e3"))
	wantCode(t, err, CodeBadRequest, "errors.not_in_progress")
	err = m.CancelGame(ctx, alice, g.ID)
	wantCode(t, err, CodeBadRequest, "errors.already_terminal")
	if diff := cmp.Diff(done, mustGet(t, m, g.ID)); diff != "" {
		t.Fatalf("terminal game changed (-before +after):\n%s", diff)
	}
}

func TestTurnEnforcement(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := startGame(t, m)

	_, err := m.MakeMove(ctx, bob, g.ID, at(t, "e7"), at(t, "e5"))
	wantCode(t, err, CodeBadRequest, "errors.not_your_turn")

	if _, err := m.MakeMove(ctx, alice, g.ID, at(t, "e2"), at(t, "e4")); err != nil {
		t.Fatalf("first move: %v", err)
	}
	before := mustGet(t, m, g.ID)
	_, err = m.MakeMove(ctx, alice, g.ID, at(t, "d2"), at(t, "d4"))
	wantCode(t, err, CodeBadRequest, "errors.not_your_turn")

	after := mustGet(t, m, g.ID)
	if after.CurrentTurn != rules.Black {
		t.Fatalf("currentTurn = %v; want black", after.CurrentTurn)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("rejected move changed the game (-before +after):\n%s", diff)
	}
}

func TestMakeMoveRejections(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := startGame(t, m)
	waiting, err := m.CreateGame(ctx, carol, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	tests := []struct {
		name     string
		who      Player
		id       string
		from, to rules.Square
		code     Code
		key      string
	}{
		{"waiting game", carol, waiting.ID, at(t, "e2"), at(t, "e4"), CodeBadRequest, "errors.not_in_progress"},
		{"outsider", carol, g.ID, at(t, "e2"), at(t, "e4"), CodeForbidden, "errors.not_participant"},
		{"empty square", alice, g.ID, at(t, "e4"), at(t, "e5"), CodeBadRequest, "errors.empty_square"},
		{"opponent piece", alice, g.ID, at(t, "e7"), at(t, "e6"), CodeBadRequest, "errors.not_your_piece"},
		{"illegal geometry", alice, g.ID, at(t, "b1"), at(t, "b3"), CodeBadRequest, "errors.illegal_move"},
		{"blocked rook", alice, g.ID, at(t, "a1"), at(t, "a4"), CodeBadRequest, "errors.illegal_move"},
		{"off board", alice, g.ID, at(t, "e2"), rules.Square{Row: 8, Col: 4}, CodeBadRequest, "errors.out_of_bounds"},
		{"unknown game", alice, "missing", at(t, "e2"), at(t, "e4"), CodeNotFound, ""},
		{"anonymous", Player{}, g.ID, at(t, "e2"), at(t, "e4"), CodeUnauthenticated, ""},
	}
	before := mustGet(t, m, g.ID)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.MakeMove(ctx, tt.who, tt.id, tt.from, tt.to)
			wantCode(t, err, tt.code, tt.key)
		})
	}
	if diff := cmp.Diff(before, mustGet(t, m, g.ID)); diff != "" {
		t.Fatalf("rejected moves changed the game (-before +after):\n%s", diff)
	}
}

func TestSelfCheckRejected(t *testing.T) {
	m, s := newTestManager(t)
	ctx := context.Background()
	g := seedGame(t, s, "4k3/8/8/8/4r3/8/4N3/4K3", rules.White)
	before := mustGet(t, m, g.ID)

	_, err := m.MakeMove(ctx, alice, g.ID, at(t, "e2"), at(t, "c3"))
	wantCode(t, err, CodeBadRequest, "errors.self_check")

	after := mustGet(t, m, g.ID)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("board changed after rejected self-check (-before +after):\n%s", diff)
	}

	// The king may still step out of the line.
	out, err := m.MakeMove(ctx, alice, g.ID, at(t, "e1"), at(t, "d1"))
	if err != nil {
		t.Fatalf("king move: %v", err)
	}
	if out.IsCheck || out.IsCheckmate {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestMoveRecordsCaptureAndCheck(t *testing.T) {
	m, s := newTestManager(t)
	ctx := context.Background()
	g := seedGame(t, s, "4k3/8/8/8/4p3/8/8/4R1K1", rules.White)

	out, err := m.MakeMove(ctx, alice, g.ID, at(t, "e1"), at(t, "e4"))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !out.IsCheck || out.IsCheckmate {
		t.Fatalf("outcome = %+v; want check without mate", out)
	}
	got := mustGet(t, m, g.ID)
	mv := got.MoveHistory[0]
	if mv.PieceKind != rules.Rook || mv.CapturedKind != rules.Pawn || !mv.ResultingCheck {
		t.Fatalf("history entry = %+v", mv)
	}
	if mv.Notation() != "Re1xe4+" {
		t.Errorf("Notation() = %q", mv.Notation())
	}
	if p, _ := got.Board.At(at(t, "e4")); !p.HasMoved || p.Kind != rules.Rook {
		t.Errorf("rook on e4 = %+v", p)
	}
	if !got.IsCheck || got.CurrentTurn != rules.Black {
		t.Errorf("game flags not updated: check=%v turn=%v", got.IsCheck, got.CurrentTurn)
	}
}

func TestCancelGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	arch := &recordingArchiver{}
	m.AttachArchiver(arch)

	waiting, err := m.CreateGame(ctx, alice, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	wantCode(t, m.CancelGame(ctx, bob, waiting.ID), CodeForbidden, "errors.not_participant")
	if err := m.CancelGame(ctx, alice, waiting.ID); err != nil {
		t.Fatalf("cancel waiting game: %v", err)
	}

	g := startGame(t, m)
	if err := m.CancelGame(ctx, bob, g.ID); err != nil {
		t.Fatalf("cancel by player2: %v", err)
	}
	cancelled := mustGet(t, m, g.ID)
	if cancelled.Status != StatusCancelled || cancelled.CompletedAt == nil || cancelled.Winner != "" {
		t.Fatalf("unexpected cancelled game: %+v", cancelled)
	}
	if arch.methods[g.ID] != "cancelled" {
		t.Errorf("archive method = %q; want cancelled", arch.methods[g.ID])
	}

	wantCode(t, m.CancelGame(ctx, alice, g.ID), CodeBadRequest, "errors.already_terminal")
	_, err = m.MakeMove(ctx, alice, g.ID, at(t, "e2"), at(t, "e4"))
	wantCode(t, err, CodeBadRequest, "errors.not_in_progress")
	wantCode(t, m.CancelGame(ctx, alice, "missing"), CodeNotFound, "")
	if diff := cmp.Diff(cancelled, mustGet(t, m, g.ID)); diff != "" {
		t.Fatalf("cancelled game changed (-before +after):\n%s", diff)
	}
}

func TestGetGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	g, err := m.GetGame(ctx, "missing")
	if err != nil || g != nil {
		t.Fatalf("GetGame(missing) = %v, %v; want nil, nil", g, err)
	}

	started := startGame(t, m)
	first := mustGet(t, m, started.ID)
	second := mustGet(t, m, started.ID)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated reads differ (-first +second):\n%s", diff)
	}
	if first.Player1Name != "Alice" || first.Player2Name != "Bob" {
		t.Errorf("display names = %q/%q", first.Player1Name, first.Player2Name)
	}
}

func TestListings(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	open, err := m.CreateGame(ctx, carol, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	started := startGame(t, m)

	active, err := m.GetActiveGames(ctx)
	if err != nil {
		t.Fatalf("GetActiveGames: %v", err)
	}
	if len(active) != 1 || active[0].ID != open.ID {
		t.Fatalf("active games = %v; want only %s", ids(active), open.ID)
	}

	mine, err := m.GetMyGames(ctx, bob)
	if err != nil {
		t.Fatalf("GetMyGames: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != started.ID {
		t.Fatalf("bob's games = %v; want %s", ids(mine), started.ID)
	}

	if err := m.CancelGame(ctx, carol, open.ID); err != nil {
		t.Fatalf("CancelGame: %v", err)
	}
	active, err = m.GetActiveGames(ctx)
	if err != nil || len(active) != 0 {
		t.Fatalf("active after cancel = %v, %v", ids(active), err)
	}

	_, err = m.GetMyGames(ctx, Player{})
	wantCode(t, err, CodeUnauthenticated, "")
}

func TestListLimit(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	m.SetListLimit(2)
	for i := 0; i < 4; i++ {
		if _, err := m.CreateGame(ctx, alice, ""); err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
	}
	active, err := m.GetActiveGames(ctx)
	if err != nil {
		t.Fatalf("GetActiveGames: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("len(active) = %d; want 2", len(active))
	}
	if active[0].UpdatedAt.Before(active[1].UpdatedAt) {
		t.Errorf("active games not sorted most recent first")
	}
}

func TestLegalMoves(t *testing.T) {
	m, s := newTestManager(t)
	ctx := context.Background()
	g := startGame(t, m)

	got, err := m.LegalMoves(ctx, g.ID, at(t, "b1"))
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if diff := cmp.Diff([]rules.Square{at(t, "a3"), at(t, "c3")}, got); diff != "" {
		t.Errorf("b1 destinations (-want +got):\n%s", diff)
	}

	pinned := seedGame(t, s, "4k3/8/8/8/4r3/8/4N3/4K3", rules.White)
	got, err = m.LegalMoves(ctx, pinned.ID, at(t, "e2"))
	if err != nil || len(got) != 0 {
		t.Fatalf("pinned knight destinations = %v, %v", got, err)
	}

	_, err = m.LegalMoves(ctx, g.ID, at(t, "e4"))
	wantCode(t, err, CodeBadRequest, "errors.empty_square")
	_, err = m.LegalMoves(ctx, g.ID, rules.Square{Row: -1})
	wantCode(t, err, CodeBadRequest, "errors.out_of_bounds")
	_, err = m.LegalMoves(ctx, "missing", at(t, "e2"))
	wantCode(t, err, CodeNotFound, "")

	waiting, err := m.CreateGame(ctx, carol, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	_, err = m.LegalMoves(ctx, waiting.ID, at(t, "b1"))
	wantCode(t, err, CodeBadRequest, "errors.not_in_progress")

	if err := m.CancelGame(ctx, alice, g.ID); err != nil {
		t.Fatalf("CancelGame: %v", err)
	}
	_, err = m.LegalMoves(ctx, g.ID, at(t, "b1"))
	wantCode(t, err, CodeBadRequest, "errors.not_in_progress")
}

func TestConcurrentMovesApplyOnce(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := startGame(t, m)

	const workers = 8
	e2, e4 := at(t, "e2"), at(t, "e4")
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.MakeMove(ctx, alice, g.ID, e2, e4)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case errors.Is(err, ErrConcurrentUpdate), CodeOf(err) == CodeBadRequest:
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("accepted = %d; want exactly 1", accepted)
	}
	if got := mustGet(t, m, g.ID); len(got.MoveHistory) != 1 || got.CurrentTurn != rules.Black {
		t.Fatalf("history = %d, turn = %v", len(got.MoveHistory), got.CurrentTurn)
	}
}

func ids(games []*Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.ID
	}
	return out
}
