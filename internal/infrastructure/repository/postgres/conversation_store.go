package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// ConversationStore keeps one session's turns in conversation_turns, so the
// transcript survives restarts and is shared by every API replica. The
// session generation lives in conversation_sessions; a missing row is
// generation 0. Every operation runs under a per-session advisory lock.
type ConversationStore struct {
	db        *sql.DB
	sessionID string
}

func NewConversationStore(db *sql.DB, sessionID string) *ConversationStore {
	return &ConversationStore{db: db, sessionID: sessionID}
}

func (s *ConversationStore) Snapshot(ctx context.Context) (domain.ConversationSnapshot, error) {
	var snap domain.ConversationSnapshot
	err := s.withSessionLock(ctx, "snapshot", func(tx *sql.Tx) error {
		generation, err := s.generation(ctx, tx)
		if err != nil {
			return err
		}
		snap.Generation = generation

		rows, err := tx.QueryContext(ctx, `
SELECT question, answer, created_at
FROM conversation_turns
WHERE session_id = $1
ORDER BY turn_index ASC
`, s.sessionID)
		if err != nil {
			return fmt.Errorf("list turns: %w", err)
		}
		defer rows.Close()

		snap.Turns = make([]domain.ConversationTurn, 0)
		for rows.Next() {
			var turn domain.ConversationTurn
			if err := rows.Scan(&turn.Question, &turn.Answer, &turn.CreatedAt); err != nil {
				return fmt.Errorf("scan turn: %w", err)
			}
			snap.Turns = append(snap.Turns, turn)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate turns: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ConversationSnapshot{}, err
	}
	return snap, nil
}

// Append adds a turn at the next index unless the session was reset after
// generation was read.
func (s *ConversationStore) Append(ctx context.Context, generation int64, turn domain.ConversationTurn) (bool, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	appended := false
	err := s.withSessionLock(ctx, "append", func(tx *sql.Tx) error {
		current, err := s.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO conversation_turns (session_id, turn_index, question, answer, created_at)
SELECT $1, COALESCE(MAX(turn_index), 0) + 1, $2, $3, $4
FROM conversation_turns
WHERE session_id = $1
`, s.sessionID, turn.Question, turn.Answer, turn.CreatedAt); err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
		appended = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return appended, nil
}

// Reset deletes the turns and bumps the generation in one transaction.
func (s *ConversationStore) Reset(ctx context.Context) error {
	return s.withSessionLock(ctx, "reset", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_turns WHERE session_id = $1`, s.sessionID); err != nil {
			return fmt.Errorf("reset turns: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO conversation_sessions (session_id, generation)
VALUES ($1, 1)
ON CONFLICT (session_id) DO UPDATE SET generation = conversation_sessions.generation + 1
`, s.sessionID); err != nil {
			return fmt.Errorf("bump session generation: %w", err)
		}
		return nil
	})
}

func (s *ConversationStore) generation(ctx context.Context, tx *sql.Tx) (int64, error) {
	var generation int64
	err := tx.QueryRowContext(ctx, `
SELECT COALESCE((SELECT generation FROM conversation_sessions WHERE session_id = $1), 0)
`, s.sessionID).Scan(&generation)
	if err != nil {
		return 0, fmt.Errorf("read session generation: %w", err)
	}
	return generation, nil
}

func (s *ConversationStore) withSessionLock(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", operation, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.sessionID); err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", operation, err)
	}
	return nil
}
