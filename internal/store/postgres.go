package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/logger"
)

const challengeColumns = `challenge_id, creator_id, theme, team_size, duration_hours, difficulty, state, degraded, workspace_ref, created_at, activated_at, closes_at, closed_at`

type Postgres struct {
	db  *sqlx.DB
	log *logger.Logger
}

func NewPostgres(dbURL string, log *logger.Logger) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Postgres{db: db, log: log.With("component", "store")}, nil
}

func (s *Postgres) DB() *sqlx.DB {
	return s.db
}

func (s *Postgres) CreateChallenge(ctx context.Context, ch *domain.Challenge) error {
	_, err := s.db.ExecContext(ctx, `
       INSERT INTO challenges (challenge_id, creator_id, theme, team_size, duration_hours, difficulty, state, created_at)
       VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ch.ID, ch.CreatorID, ch.Theme, ch.TeamSize, ch.DurationHours, ch.Difficulty, ch.State, ch.CreatedAt)
	return err
}

func (s *Postgres) GetChallenge(ctx context.Context, id domain.ChallengeID) (*domain.Challenge, []domain.Membership, error) {
	var ch domain.Challenge
	err := s.db.GetContext(ctx, &ch, `SELECT `+challengeColumns+` FROM challenges WHERE challenge_id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	var members []domain.Membership
	err = s.db.SelectContext(ctx, &members, `SELECT challenge_id, user_id, joined_at FROM memberships WHERE challenge_id = $1 ORDER BY joined_at ASC`, id)
	if err != nil {
		return &ch, nil, err
	}
	return &ch, members, nil
}

func (s *Postgres) ActiveChallengeByUser(ctx context.Context, userID domain.UserID) (*domain.Challenge, int, error) {
	var ch domain.Challenge
	err := s.db.GetContext(ctx, &ch, `
       SELECT c.challenge_id, c.creator_id, c.theme, c.team_size, c.duration_hours, c.difficulty, c.state, c.degraded, c.workspace_ref, c.created_at, c.activated_at, c.closes_at, c.closed_at
       FROM challenges c
       JOIN memberships m ON m.challenge_id = c.challenge_id
       WHERE m.user_id = $1 AND c.state IN ('RECRUITING','ACTIVE')
       LIMIT 1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNoActiveChallenge
		}
		return nil, 0, err
	}
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memberships WHERE challenge_id = $1`, ch.ID); err != nil {
		return nil, 0, err
	}
	return &ch, count, nil
}

func (s *Postgres) LatestRecruiting(ctx context.Context) (domain.ChallengeID, error) {
	var id domain.ChallengeID
	err := s.db.GetContext(ctx, &id, `SELECT challenge_id FROM challenges WHERE state = 'RECRUITING' ORDER BY created_at DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoActiveChallenge
		}
		return "", err
	}
	return id, nil
}

func (s *Postgres) JoinChallenge(ctx context.Context, id domain.ChallengeID, userID domain.UserID) (bool, error) {
	// Serializable so the cross-challenge enrollment check cannot miss a
	// concurrent join to a different challenge. Serialization aborts are
	// retried a few times before giving up.
	for attempt := 0; ; attempt++ {
		filled, err := s.joinOnce(ctx, id, userID)
		if isSerializationFailure(err) && attempt < 10 {
			continue
		}
		return filled, err
	}
}

func (s *Postgres) joinOnce(ctx context.Context, id domain.ChallengeID, userID domain.UserID) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, err
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.log.Warn("rollback failed in JoinChallenge", "challenge_id", id, "error", rollbackErr)
		}
	}()

	var ch struct {
		State         domain.State `db:"state"`
		TeamSize      int          `db:"team_size"`
		DurationHours int          `db:"duration_hours"`
	}
	if err := tx.GetContext(ctx, &ch, `SELECT state, team_size, duration_hours FROM challenges WHERE challenge_id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}

	var existing domain.ChallengeID
	err = tx.GetContext(ctx, &existing, `
       SELECT c.challenge_id FROM memberships m
       JOIN challenges c ON c.challenge_id = m.challenge_id
       WHERE m.user_id = $1 AND c.state IN ('RECRUITING','ACTIVE')
       LIMIT 1`, userID)
	switch {
	case err == nil && existing == id:
		return false, ErrDuplicateMembership
	case err == nil:
		return false, ErrAlreadyEnrolled
	case !errors.Is(err, sql.ErrNoRows):
		return false, err
	}

	if ch.State != domain.StateRecruiting {
		return false, ErrNotJoinable
	}

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM memberships WHERE challenge_id = $1`, id); err != nil {
		return false, err
	}
	if count >= ch.TeamSize {
		return false, ErrTeamFull
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO memberships (challenge_id, user_id, joined_at) VALUES ($1,$2,$3)`, id, userID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateMembership
		}
		return false, err
	}
	count++

	filled := count == ch.TeamSize
	if filled {
		activatedAt := time.Now().UTC()
		closesAt := activatedAt.Add(time.Duration(ch.DurationHours) * time.Hour)
		res, err := tx.ExecContext(ctx, `
          UPDATE challenges SET state = 'ACTIVE', activated_at = $2, closes_at = $3
          WHERE challenge_id = $1 AND state = 'RECRUITING'`, id, activatedAt, closesAt)
		if err != nil {
			return false, err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return false, ErrStateConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return filled, nil
}

func (s *Postgres) SetWorkspaceRef(ctx context.Context, id domain.ChallengeID, ref string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE challenges SET workspace_ref = $2 WHERE challenge_id = $1 AND workspace_ref = ''`, id, ref)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var exists domain.ChallengeID
	if err := s.db.GetContext(ctx, &exists, `SELECT challenge_id FROM challenges WHERE challenge_id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrStateConflict
}

func (s *Postgres) MarkDegraded(ctx context.Context, id domain.ChallengeID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE challenges SET degraded = true WHERE challenge_id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CloseDue(ctx context.Context, now time.Time) ([]domain.Challenge, error) {
	var due []domain.ChallengeID
	err := s.db.SelectContext(ctx, &due, `SELECT challenge_id FROM challenges WHERE state = 'ACTIVE' AND closes_at <= $1`, now)
	if err != nil {
		return nil, err
	}

	var closed []domain.Challenge
	for _, id := range due {
		res, err := s.db.ExecContext(ctx, `
          UPDATE challenges SET state = 'CLOSED', closed_at = $2
          WHERE challenge_id = $1 AND state = 'ACTIVE'`, id, now)
		if err != nil {
			return closed, err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			// another sweep won the race for this one
			s.log.Debug("close lost race", "challenge_id", id)
			continue
		}
		ch, _, err := s.GetChallenge(ctx, id)
		if err != nil {
			return closed, err
		}
		closed = append(closed, *ch)
	}
	return closed, nil
}

func (s *Postgres) CancelChallenge(ctx context.Context, id domain.ChallengeID, requester domain.UserID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.log.Warn("rollback failed in CancelChallenge", "challenge_id", id, "error", rollbackErr)
		}
	}()

	var row struct {
		CreatorID domain.UserID `db:"creator_id"`
		State     domain.State  `db:"state"`
	}
	if err := tx.GetContext(ctx, &row, `SELECT creator_id, state FROM challenges WHERE challenge_id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if row.CreatorID != requester {
		return ErrForbidden
	}
	if row.State != domain.StateRecruiting {
		return ErrNotCancellable
	}

	if _, err := tx.ExecContext(ctx, `UPDATE challenges SET state = 'CANCELLED', closed_at = $2 WHERE challenge_id = $1`, id, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}
