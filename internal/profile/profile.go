// internal/profile/profile.go
//
// SQLite-backed player profiles and match history.
// Responsibilities:
//   - Load/save {username, avatar, wallet} rows keyed by wallet address.
//   - Record finished matches and bump the per-profile counters
//     (games played, wins, streak, best WPM) in one transaction.

package profile

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/marksoc/spelling-nads/server/internal/game"
)

// ErrNotFound is returned when no profile exists for a wallet address.
var ErrNotFound = errors.New("profile not found")

// Profile is one player identity.
type Profile struct {
	Wallet      string    `json:"walletAddress"`
	Username    string    `json:"username"`
	Avatar      string    `json:"pfpUrl"`
	GamesPlayed int       `json:"gamesPlayed"`
	Wins        int       `json:"wins"`
	Streak      int       `json:"streak"`
	BestWPM     int       `json:"bestWpm"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MatchRow is one finished game in the history listing.
type MatchRow struct {
	ID         int64  `json:"id"`
	Winner     string `json:"winner"`
	Won        bool   `json:"won"`
	TopWPM     int    `json:"topWpm"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// NewStore builds a profile store over an opened database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Get loads a profile by wallet address.
func (s *Store) Get(ctx context.Context, wallet string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT wallet, username, pfp_url, games_played, wins, streak, best_wpm, created_at
		FROM profiles WHERE lower(wallet)=lower(?)`, wallet)
	var p Profile
	var created string
	if err := row.Scan(&p.Wallet, &p.Username, &p.Avatar, &p.GamesPlayed, &p.Wins, &p.Streak, &p.BestWPM, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

// Upsert creates or updates the identity fields for a wallet. Counter
// columns are untouched on update.
func (s *Store) Upsert(ctx context.Context, wallet, username, avatar string) (*Profile, error) {
	wallet = strings.TrimSpace(wallet)
	username = strings.TrimSpace(username)
	if wallet == "" {
		return nil, errors.New("wallet address required")
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (wallet, username, pfp_url, created_at)
		VALUES (?,?,?,?)
		ON CONFLICT(wallet) DO UPDATE SET username=excluded.username, pfp_url=excluded.pfp_url`,
		wallet, username, avatar, now)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, wallet)
}

// RecordMatch persists a finished game for a wallet and bumps the profile
// counters in the same transaction. A missing profile is not an error; the
// match is simply not recorded (guest play).
func (s *Store) RecordMatch(ctx context.Context, wallet string, res game.Result) error {
	if wallet == "" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var gp, wins, streak, best int
	row := tx.QueryRow(`SELECT games_played, wins, streak, best_wpm FROM profiles WHERE lower(wallet)=lower(?)`, wallet)
	if err := row.Scan(&gp, &wins, &streak, &best); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO matches (wallet, winner, won, top_wpm, started_at, finished_at)
		VALUES (?,?,?,?,?,?)`,
		wallet, res.Winner, res.HumanWon, res.TopWPM,
		res.StartedAt.UTC().Format(time.RFC3339), res.FinishedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	gp++
	if res.HumanWon {
		wins++
		streak++
	} else {
		streak = 0
	}
	if res.TopWPM > best {
		best = res.TopWPM
	}
	if _, err := tx.Exec(`UPDATE profiles SET games_played=?, wins=?, streak=?, best_wpm=? WHERE lower(wallet)=lower(?)`,
		gp, wins, streak, best, wallet); err != nil {
		return err
	}
	return tx.Commit()
}

// RecentMatches lists the latest finished games for a wallet, newest first.
func (s *Store) RecentMatches(ctx context.Context, wallet string, limit int) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, winner, won, top_wpm, started_at, finished_at
		FROM matches WHERE lower(wallet)=lower(?)
		ORDER BY finished_at DESC LIMIT ?`, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchRow, 0, limit)
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.ID, &m.Winner, &m.Won, &m.TopWPM, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// validateUsername enforces the same shape the client input allows.
func validateUsername(u string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	return nil
}
