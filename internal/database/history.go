// internal/database/history.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/wordchain/internal/cache"
)

// Standing is one seat's final line in a finished game.
type Standing struct {
	Seat     int
	Username string
	Score    int
	Lives    int
	IsAI     bool
	DidWin   bool
}

// HistoryStore writes room action logs and final results.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// InsertActions persists a batch in one transaction. Rows already present are skipped,
// so a batch replayed after a partial failure is harmless.
func (s *HistoryStore) InsertActions(ctx context.Context, records []cache.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert actions: %w", err)
	}
	return nil
}

// MarkAbandoned closes out a game that stopped producing actions.
func (s *HistoryStore) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		UPDATE word_games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := s.pool.Exec(ctx, q, gameID); err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertGameQ := `
		INSERT INTO word_games (id, room_code, status)
		VALUES ($1, $2, 'in_progress')
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.RoomCode); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	actionQ := `
		INSERT INTO word_game_actions (game_id, action_index, actor, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	at := time.UnixMilli(rec.Timestamp).UTC()
	if _, err := tx.Exec(ctx, actionQ, rec.GameID, rec.ActionIndex, rec.Actor, rec.ActionType, payload, at); err != nil {
		return err
	}

	if rec.ActionType == "game_over" {
		return finalizeGameTx(ctx, tx, rec)
	}
	return nil
}

func finalizeGameTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	mode, _ := rec.Payload["gameMode"].(string)
	winner, _ := rec.Payload["winner"].(string)

	finalizeQ := `
		UPDATE word_games
		SET status = 'completed', end_time = $2, game_mode = NULLIF($3, ''), winner = NULLIF($4, '')
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, time.UnixMilli(rec.Timestamp).UTC(), mode, winner); err != nil {
		return err
	}

	resultQ := `
		INSERT INTO word_game_results (game_id, seat, username, score, lives, is_ai, did_win)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, seat)
		DO UPDATE SET username = $3, score = $4, lives = $5, is_ai = $6, did_win = $7
	`
	for _, st := range ParseStandings(rec.Payload) {
		if _, err := tx.Exec(ctx, resultQ, rec.GameID, st.Seat, st.Username, st.Score, st.Lives, st.IsAI, st.DidWin); err != nil {
			return err
		}
	}
	return nil
}

// ParseStandings reads the standings list of a decoded game_over payload.
// Numbers arrive as float64 after a JSON round trip.
func ParseStandings(payload map[string]interface{}) []Standing {
	raw, ok := payload["standings"].([]interface{})
	if !ok {
		return nil
	}
	winner, _ := payload["winner"].(string)

	out := make([]Standing, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		st := Standing{
			Seat:  toInt(m["seat"]),
			Score: toInt(m["score"]),
			Lives: toInt(m["lives"]),
		}
		st.Username, _ = m["username"].(string)
		st.IsAI, _ = m["isAI"].(bool)
		st.DidWin = winner != "" && st.Username == winner
		out = append(out, st)
	}
	return out
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
