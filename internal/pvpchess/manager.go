package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/internal/rules"
)

// Notifier delivers a text message to a player.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string) error
}

// Archiver records games that reached a terminal state.
type Archiver interface {
	SaveResult(ctx context.Context, g *Game, method string) error
}

// MessageRenderer renders catalog templates by key.
type MessageRenderer interface {
	Render(key string, data any) (string, error)
}

// DefaultListLimit bounds list queries when no limit is configured.
const DefaultListLimit = 50

// Manager owns the PvP game lifecycle. All rule checks run inside the store's
// per-game Update so a rejected request never changes the stored record.
type Manager struct {
	store     Store
	notifier  Notifier
	archive   Archiver
	messages  MessageRenderer
	listLimit int

	now   func() time.Time
	newID func() string
}

func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		listLimit: DefaultListLimit,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// AttachNotifier wires the sink used for invitations.
func (m *Manager) AttachNotifier(n Notifier) {
	if m != nil {
		m.notifier = n
	}
}

// AttachArchiver wires a repository for persisting finished games.
func (m *Manager) AttachArchiver(a Archiver) {
	if m != nil {
		m.archive = a
	}
}

// AttachMessages wires the catalog used for notification text.
func (m *Manager) AttachMessages(r MessageRenderer) {
	if m != nil {
		m.messages = r
	}
}

// SetListLimit bounds GetActiveGames and GetMyGames.
func (m *Manager) SetListLimit(n int) {
	if m != nil && n > 0 {
		m.listLimit = n
	}
}

// CreateGame opens a waiting game with creator as player1 (white). A non-empty
// invited id restricts who may join and triggers an invitation.
func (m *Manager) CreateGame(ctx context.Context, creator Player, invited string) (*Game, error) {
	creator.ID = strings.TrimSpace(creator.ID)
	if creator.ID == "" {
		return nil, errUnauthenticated()
	}
	invited = strings.TrimSpace(invited)
	if invited == creator.ID {
		return nil, newErr(CodeBadRequest, "errors.self_invite", "cannot invite yourself")
	}

	now := m.now()
	g := &Game{
		ID:            m.newID(),
		Player1:       creator.ID,
		Player1Name:   strings.TrimSpace(creator.Name),
		InvitedPlayer: invited,
		Board:         rules.InitialBoard(),
		CurrentTurn:   rules.White,
		MoveHistory:   []Move{},
		Status:        StatusWaiting,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.Insert(ctx, g); err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	obslog.L().Info("pvp_game_create",
		zap.String("game_id", g.ID),
		zap.String("player1", g.Player1),
		zap.String("invited", g.InvitedPlayer),
	)
	if invited != "" {
		m.notifyInvite(ctx, g)
	}
	return g, nil
}

// JoinGame seats joiner as player2 (black) and starts the game.
func (m *Manager) JoinGame(ctx context.Context, joiner Player, id string) (*Game, error) {
	joiner.ID = strings.TrimSpace(joiner.ID)
	if joiner.ID == "" {
		return nil, errUnauthenticated()
	}
	g, err := m.store.Update(ctx, id, func(g *Game) error {
		switch {
		case g.Status != StatusWaiting:
			return newErr(CodeBadRequest, "errors.not_waiting", "game is not waiting for players")
		case joiner.ID == g.Player1:
			return newErr(CodeBadRequest, "errors.self_join", "cannot join your own game")
		case g.InvitedPlayer != "" && joiner.ID != g.InvitedPlayer:
			return newErr(CodeForbidden, "errors.not_invited", "game is reserved for an invited player")
		}
		g.Player2 = joiner.ID
		g.Player2Name = strings.TrimSpace(joiner.Name)
		g.Status = StatusInProgress
		g.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, m.storeErr(id, err)
	}
	obslog.L().Info("pvp_game_join",
		zap.String("game_id", g.ID),
		zap.String("player1", g.Player1),
		zap.String("player2", g.Player2),
	)
	return g, nil
}

// MakeMove validates and applies from->to for mover.
func (m *Manager) MakeMove(ctx context.Context, mover Player, id string, from, to rules.Square) (MoveOutcome, error) {
	mover.ID = strings.TrimSpace(mover.ID)
	if mover.ID == "" {
		return MoveOutcome{}, errUnauthenticated()
	}
	if !from.InBounds() || !to.InBounds() {
		return MoveOutcome{}, newErr(CodeBadRequest, "errors.out_of_bounds", "square outside the board")
	}

	var (
		outcome MoveOutcome
		played  Move
	)
	g, err := m.store.Update(ctx, id, func(g *Game) error {
		color, ok := g.ColorOf(mover.ID)
		switch {
		case g.Status != StatusInProgress:
			return newErr(CodeBadRequest, "errors.not_in_progress", "game is not in progress")
		case !ok:
			return newErr(CodeForbidden, "errors.not_participant", "not a participant of this game")
		case color != g.CurrentTurn:
			return newErr(CodeBadRequest, "errors.not_your_turn", "not your turn")
		}
		piece, ok := g.Board.At(from)
		if !ok {
			return newErr(CodeBadRequest, "errors.empty_square", "no piece on %s", from)
		}
		if piece.Color != color {
			return newErr(CodeBadRequest, "errors.not_your_piece", "piece on %s is not yours", from)
		}
		if !rules.IsLegalMove(&g.Board, from, to) {
			return newErr(CodeBadRequest, "errors.illegal_move", "illegal move %s-%s", from, to)
		}
		if rules.LeavesKingInCheck(&g.Board, from, to) {
			return newErr(CodeBadRequest, "errors.self_check", "move leaves your king in check")
		}

		captured := g.Board.Apply(from, to)
		opp := color.Opponent()
		check := rules.IsInCheck(&g.Board, opp)
		mate := check && rules.IsCheckmate(&g.Board, opp)
		now := m.now()

		played = Move{
			From:               from,
			To:                 to,
			PieceKind:          piece.Kind,
			CapturedKind:       captured.Kind,
			ResultingCheck:     check,
			ResultingCheckmate: mate,
		}
		g.MoveHistory = append(g.MoveHistory, played)
		g.CurrentTurn = opp
		g.IsCheck = check
		g.IsCheckmate = mate
		g.UpdatedAt = now
		if mate {
			g.Status = StatusCompleted
			g.Winner = mover.ID
			g.CompletedAt = &now
		}
		outcome = MoveOutcome{IsCheck: check, IsCheckmate: mate}
		return nil
	})
	if err != nil {
		return MoveOutcome{}, m.storeErr(id, err)
	}

	obslog.L().Info("pvp_move",
		zap.String("game_id", g.ID),
		zap.String("player_id", mover.ID),
		zap.String("move", played.Notation()),
		zap.Int("ply", len(g.MoveHistory)),
		zap.String("status", string(g.Status)),
	)
	if g.Status == StatusCompleted {
		m.persistIfFinal(ctx, g, "checkmate")
	}
	return outcome, nil
}

// CancelGame ends a non-terminal game on behalf of a participant.
func (m *Manager) CancelGame(ctx context.Context, requester Player, id string) error {
	requester.ID = strings.TrimSpace(requester.ID)
	if requester.ID == "" {
		return errUnauthenticated()
	}
	g, err := m.store.Update(ctx, id, func(g *Game) error {
		if !g.IsParticipant(requester.ID) {
			return newErr(CodeForbidden, "errors.not_participant", "not a participant of this game")
		}
		if g.Status.Terminal() {
			return newErr(CodeBadRequest, "errors.already_terminal", "game already %s", g.Status)
		}
		now := m.now()
		g.Status = StatusCancelled
		g.CompletedAt = &now
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return m.storeErr(id, err)
	}
	obslog.L().Info("pvp_game_cancel",
		zap.String("game_id", g.ID),
		zap.String("requester", requester.ID),
		zap.Int("ply", len(g.MoveHistory)),
	)
	m.persistIfFinal(ctx, g, "cancelled")
	return nil
}

// GetGame returns the game, or nil when no such game exists.
func (m *Manager) GetGame(ctx context.Context, id string) (*Game, error) {
	g, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrGameNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return g, nil
}

// GetActiveGames lists waiting games, most recent first.
func (m *Manager) GetActiveGames(ctx context.Context) ([]*Game, error) {
	games, err := m.store.ListWaiting(ctx, m.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list waiting games: %w", err)
	}
	return games, nil
}

// GetMyGames lists games the caller participates in, most recent first.
func (m *Manager) GetMyGames(ctx context.Context, caller Player) ([]*Game, error) {
	if strings.TrimSpace(caller.ID) == "" {
		return nil, errUnauthenticated()
	}
	games, err := m.store.ListByPlayer(ctx, caller.ID, m.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list games of %s: %w", caller.ID, err)
	}
	return games, nil
}

// LegalMoves lists where the piece on from may go without exposing its king.
// Either side's pieces may be inspected, but only while the game is in progress.
func (m *Manager) LegalMoves(ctx context.Context, id string, from rules.Square) ([]rules.Square, error) {
	if !from.InBounds() {
		return nil, newErr(CodeBadRequest, "errors.out_of_bounds", "square outside the board")
	}
	g, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, m.storeErr(id, err)
	}
	if g.Status != StatusInProgress {
		return nil, newErr(CodeBadRequest, "errors.not_in_progress", "game is not in progress")
	}
	if _, ok := g.Board.At(from); !ok {
		return nil, newErr(CodeBadRequest, "errors.empty_square", "no piece on %s", from)
	}
	return rules.LegalDestinations(&g.Board, from), nil
}

func (m *Manager) storeErr(id string, err error) error {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return errNotFound(id)
	case CodeOf(err) != "", errors.Is(err, ErrConcurrentUpdate):
		return err
	default:
		return fmt.Errorf("game %s: %w", id, err)
	}
}

// notifyInvite asks the notifier to tell the invited player. Failures are
// logged and never fail the creation.
func (m *Manager) notifyInvite(ctx context.Context, g *Game) {
	if m.notifier == nil {
		return
	}
	inviter := g.Player1Name
	if inviter == "" {
		inviter = g.Player1
	}
	text := fmt.Sprintf("%s invited you to a chess game (%s)", inviter, g.ID)
	if m.messages != nil {
		if s, err := m.messages.Render("notify.invite", map[string]any{"Inviter": inviter, "GameID": g.ID}); err == nil {
			text = s
		} else {
			obslog.L().Warn("pvp_invite_template_error", zap.String("game_id", g.ID), zap.Error(err))
		}
	}
	if err := m.notifier.Notify(ctx, g.InvitedPlayer, text); err != nil {
		obslog.L().Error("pvp_invite_notify_error",
			zap.String("game_id", g.ID),
			zap.String("recipient", g.InvitedPlayer),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("pvp_invite_notify", zap.String("game_id", g.ID), zap.String("recipient", g.InvitedPlayer))
}

// persistIfFinal saves a terminal game to the archive if one is attached.
func (m *Manager) persistIfFinal(ctx context.Context, g *Game, method string) {
	if m.archive == nil || g == nil || !g.Status.Terminal() {
		return
	}
	if err := m.archive.SaveResult(ctx, g, method); err != nil {
		obslog.L().Error("pvp_result_persist_error", zap.String("game_id", g.ID), zap.String("method", method), zap.Error(err))
		return
	}
	obslog.L().Info("pvp_result_persist", zap.String("game_id", g.ID), zap.String("method", method))
}
