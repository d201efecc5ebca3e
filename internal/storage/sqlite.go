// Package storage persists clan snapshots, rosters and war logs in a single
// SQLite database.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339Nano

// Store wraps the sqlite handle. Safe for concurrent use; writes serialize
// on the single connection.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates or opens the database at cfg.Path and applies migrations.
func Open(cfg Config, log zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendClanSnapshot inserts one clan_info row; snapshots are never updated.
func (s *Store) AppendClanSnapshot(ctx context.Context, snap ClanSnapshot) error {
	if snap.LoggedAt.IsZero() {
		snap.LoggedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clan_info(clan_tag, season, logged_at, name, level, points, member_count, war_wins, war_losses, war_ties)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		snap.ClanTag, nullStr(snap.Season), snap.LoggedAt.Format(timeLayout),
		snap.Name, snap.Level, snap.Points, snap.MemberCount,
		nullInt(snap.WarWins), nullInt(snap.WarLosses), nullInt(snap.WarTies),
	)
	return err
}

// LatestClanSnapshot returns the most recent snapshot for the clan, or nil
// when none exists yet.
func (s *Store) LatestClanSnapshot(ctx context.Context, clanTag string) (*ClanSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT clan_tag, season, logged_at, name, level, points, member_count, war_wins, war_losses, war_ties
		 FROM clan_info WHERE clan_tag = ? ORDER BY logged_at DESC, id DESC LIMIT 1`,
		clanTag,
	)
	var (
		snap     ClanSnapshot
		season   sql.NullString
		loggedAt string
		wins     sql.NullInt64
		losses   sql.NullInt64
		ties     sql.NullInt64
	)
	err := row.Scan(&snap.ClanTag, &season, &loggedAt, &snap.Name, &snap.Level, &snap.Points, &snap.MemberCount, &wins, &losses, &ties)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Season = season.String
	if t, perr := time.Parse(timeLayout, loggedAt); perr == nil {
		snap.LoggedAt = t
	}
	snap.WarWins = intPtr(wins)
	snap.WarLosses = intPtr(losses)
	snap.WarTies = intPtr(ties)
	return &snap, nil
}

// UpsertMembers writes the current roster in one transaction. Existing rows
// keep their first_seen and get departed_at cleared, covering players who
// left and came back.
func (s *Store) UpsertMembers(ctx context.Context, members []MemberRecord) error {
	if len(members) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clan_members(clan_tag, member_tag, name, role, exp_level, trophies, clan_rank, donations, donations_received, first_seen, last_seen, departed_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,NULL)
		 ON CONFLICT(clan_tag, member_tag) DO UPDATE SET
		   name=excluded.name, role=excluded.role, exp_level=excluded.exp_level,
		   trophies=excluded.trophies, clan_rank=excluded.clan_rank,
		   donations=excluded.donations, donations_received=excluded.donations_received,
		   last_seen=excluded.last_seen, departed_at=NULL`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range members {
		if m.FirstSeen.IsZero() {
			m.FirstSeen = time.Now()
		}
		if m.LastSeen.IsZero() {
			m.LastSeen = m.FirstSeen
		}
		if _, err := stmt.ExecContext(ctx,
			m.ClanTag, m.MemberTag, m.Name, m.Role, m.ExpLevel, m.Trophies,
			m.ClanRank, m.Donations, m.DonationsReceived,
			m.FirstSeen.Format(timeLayout), m.LastSeen.Format(timeLayout),
		); err != nil {
			return fmt.Errorf("storage: upsert member %s: %w", m.MemberTag, err)
		}
	}
	return tx.Commit()
}

// ActiveMembers returns the roster rows not yet marked departed, rank
// ascending.
func (s *Store) ActiveMembers(ctx context.Context, clanTag string) ([]MemberRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT clan_tag, member_tag, name, role, exp_level, trophies, clan_rank, donations, donations_received, first_seen, last_seen
		 FROM clan_members WHERE clan_tag = ? AND departed_at IS NULL ORDER BY clan_rank`,
		clanTag,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberRecord
	for rows.Next() {
		var (
			m                   MemberRecord
			firstSeen, lastSeen string
		)
		if err := rows.Scan(&m.ClanTag, &m.MemberTag, &m.Name, &m.Role, &m.ExpLevel, &m.Trophies, &m.ClanRank, &m.Donations, &m.DonationsReceived, &firstSeen, &lastSeen); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(timeLayout, firstSeen); perr == nil {
			m.FirstSeen = t
		}
		if t, perr := time.Parse(timeLayout, lastSeen); perr == nil {
			m.LastSeen = t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkDeparted stamps departed_at on the given members.
func (s *Store) MarkDeparted(ctx context.Context, clanTag string, memberTags []string, at time.Time) error {
	if len(memberTags) == 0 {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, tag := range memberTags {
		if _, err := tx.ExecContext(ctx,
			`UPDATE clan_members SET departed_at = ? WHERE clan_tag = ? AND member_tag = ?`,
			at.Format(timeLayout), clanTag, tag,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertCWLWar writes one league war row and returns the state it was
// previously stored with, or "" when the war is new. League wars mutate while
// running (stars, state), so unlike war_log rows they are updated in place.
func (s *Store) UpsertCWLWar(ctx context.Context, rec CWLWarRecord) (string, error) {
	var prevState sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM cwl_wars WHERE clan_tag = ? AND war_tag = ?`,
		rec.ClanTag, rec.WarTag,
	).Scan(&prevState)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cwl_wars(clan_tag, war_tag, season, round, state, team_size, prep_start_time, start_time, end_time,
		                      clan1_tag, clan1_name, clan1_stars, clan1_destruction, clan1_attacks,
		                      clan2_tag, clan2_name, clan2_stars, clan2_destruction, clan2_attacks, winner_tag)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(clan_tag, war_tag) DO UPDATE SET
		   season=excluded.season, round=excluded.round, state=excluded.state,
		   team_size=excluded.team_size, prep_start_time=excluded.prep_start_time,
		   start_time=excluded.start_time, end_time=excluded.end_time,
		   clan1_tag=excluded.clan1_tag, clan1_name=excluded.clan1_name,
		   clan1_stars=excluded.clan1_stars, clan1_destruction=excluded.clan1_destruction,
		   clan1_attacks=excluded.clan1_attacks,
		   clan2_tag=excluded.clan2_tag, clan2_name=excluded.clan2_name,
		   clan2_stars=excluded.clan2_stars, clan2_destruction=excluded.clan2_destruction,
		   clan2_attacks=excluded.clan2_attacks, winner_tag=excluded.winner_tag`,
		rec.ClanTag, rec.WarTag, rec.Season, rec.Round, rec.State, rec.TeamSize,
		nullStr(rec.PrepStartTime), nullStr(rec.StartTime), nullStr(rec.EndTime),
		nullStr(rec.Clan1Tag), nullStr(rec.Clan1Name), rec.Clan1Stars, rec.Clan1Destruction, rec.Clan1Attacks,
		nullStr(rec.Clan2Tag), nullStr(rec.Clan2Name), rec.Clan2Stars, rec.Clan2Destruction, rec.Clan2Attacks,
		nullStr(rec.WinnerTag),
	)
	if err != nil {
		return "", err
	}
	return prevState.String, nil
}

// InsertCWLAttacks records attacks not seen before and reports how many were
// new. An attack never changes once it exists, so duplicates are ignored.
func (s *Store) InsertCWLAttacks(ctx context.Context, attacks []CWLAttackRecord) (int, error) {
	if len(attacks) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, a := range attacks {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO cwl_attacks(clan_tag, war_tag, season, attacker_tag, attacker_name, attacker_th, attacker_position, defender_tag, stars, destruction, attack_order, duration)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			a.ClanTag, a.WarTag, nullStr(a.Season), a.AttackerTag, nullStr(a.AttackerName),
			a.AttackerTH, a.AttackerPosition, a.DefenderTag, a.Stars, a.Destruction,
			a.Order, a.Duration,
		)
		if err != nil {
			return inserted, fmt.Errorf("storage: insert cwl attack %s->%s: %w", a.AttackerTag, a.DefenderTag, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// InsertWarLogEntries inserts entries not seen before, keyed by
// (clan_tag, end_time), and reports how many were new.
func (s *Store) InsertWarLogEntries(ctx context.Context, entries []WarRecord) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, e := range entries {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO war_log(clan_tag, end_time, result, team_size, clan_stars, clan_destruction, clan_attacks, opponent_tag, opponent_name, opponent_stars, opponent_destruction)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			e.ClanTag, e.EndTime, nullStrPtr(e.Result), e.TeamSize,
			e.ClanStars, e.ClanDestruction, nullInt(e.ClanAttacks),
			nullStr(e.OpponentTag), nullStr(e.OpponentName),
			e.OpponentStars, e.OpponentDestruction,
		)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullStrPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
