package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"contentplanner/internal/diagnostic"
)

// DiagnosticStore persists diagnostic sessions in SQL.
type DiagnosticStore struct {
	Repo Repo
}

var _ diagnostic.Store = DiagnosticStore{}

func (s DiagnosticStore) Load(ctx context.Context, id string) (diagnostic.Session, error) {
	var sess diagnostic.Session
	var answers, createdAt, updatedAt string
	var completed int
	err := s.Repo.DB.QueryRowContext(ctx, `SELECT id,owner_id,step,answers_json,completed,created_at,updated_at FROM diagnostic_sessions WHERE id=?`, id).
		Scan(&sess.ID, &sess.OwnerID, &sess.Step, &answers, &completed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return sess, ErrNotFound
	}
	if err != nil {
		return sess, err
	}
	sess.Answers = map[string]string{}
	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		return sess, fmt.Errorf("decode answers for %s: %w", id, err)
	}
	sess.Completed = completed != 0
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return sess, err
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return sess, err
	}
	return sess, nil
}

func (s DiagnosticStore) Save(ctx context.Context, sess diagnostic.Session) error {
	answers := sess.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.Repo.DB.ExecContext(ctx, `INSERT INTO diagnostic_sessions(id,owner_id,step,answers_json,completed,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET step=excluded.step, answers_json=excluded.answers_json, completed=excluded.completed, updated_at=excluded.updated_at`,
		sess.ID, sess.OwnerID, sess.Step, string(data), boolInt(sess.Completed), formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt))
	return err
}

func (s DiagnosticStore) Delete(ctx context.Context, id string) error {
	res, err := s.Repo.DB.ExecContext(ctx, `DELETE FROM diagnostic_sessions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
