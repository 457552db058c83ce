// Package store provides storage backends for CradleLog.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NestNote/CradleLog/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists all CradleLog entities in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// The containing directory is created if missing and migrations are applied.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddProfile(p models.Profile) (string, error) {
	fillProfileDefaults(&p)
	_, err := s.db.Exec(`INSERT OR REPLACE INTO profiles (id, role, name, phone, timezone, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Role, p.Name, nilIfEmpty(p.Phone), nilIfEmpty(p.Timezone), p.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddProfile failed", "error", err, "id", p.ID)
		return "", fmt.Errorf("failed to insert profile: %w", err)
	}
	return p.ID, nil
}

func (s *SQLiteStore) GetProfile(id string) (*models.Profile, error) {
	row := s.db.QueryRow(`SELECT id, role, name, phone, timezone, created_at FROM profiles WHERE id = ?`, id)
	p, err := scanProfileRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "id", id)
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) ListCaregivers() ([]models.Profile, error) {
	rows, err := s.db.Query(`SELECT id, role, name, phone, timezone, created_at FROM profiles WHERE role = ? ORDER BY id`, models.RoleCaregiver)
	if err != nil {
		slog.Error("SQLiteStore ListCaregivers query failed", "error", err)
		return nil, fmt.Errorf("failed to query caregivers: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (s *SQLiteStore) AddChild(c models.Child) (string, error) {
	fillChildDefaults(&c)
	_, err := s.db.Exec(`INSERT OR REPLACE INTO children (id, caregiver_id, name, birth_date, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.CaregiverID, c.Name, c.BirthDate, c.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddChild failed", "error", err, "id", c.ID)
		return "", fmt.Errorf("failed to insert child: %w", err)
	}
	return c.ID, nil
}

func (s *SQLiteStore) GetChild(id string) (*models.Child, error) {
	var c models.Child
	err := s.db.QueryRow(`SELECT id, caregiver_id, name, birth_date, created_at FROM children WHERE id = ?`, id).
		Scan(&c.ID, &c.CaregiverID, &c.Name, &c.BirthDate, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrChildNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetChild failed", "error", err, "id", id)
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) AddFeeding(rec models.FeedingRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO feeding_records
		(id, child_id, kind, start_time, end_time, amount_ml, amount_oz, left_duration, right_duration, total_duration, feeding_order, food_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChildID, rec.Kind, rec.StartTime, nullTime(rec.EndTime), rec.AmountML, rec.AmountOz,
		rec.LeftDuration, rec.RightDuration, rec.TotalDuration, encodeOrder(rec.FeedingOrder),
		nilIfEmpty(rec.FoodType), nilIfEmpty(rec.Notes), rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddFeeding failed", "error", err, "child", rec.ChildID)
		return "", fmt.Errorf("failed to insert feeding record: %w", err)
	}
	slog.Debug("SQLiteStore AddFeeding succeeded", "id", rec.ID, "child", rec.ChildID, "kind", rec.Kind)
	return rec.ID, nil
}

func (s *SQLiteStore) ListFeedings(childID string) ([]models.FeedingRecord, error) {
	rows, err := s.db.Query(`SELECT id, child_id, kind, start_time, end_time, amount_ml, amount_oz, left_duration, right_duration, total_duration, feeding_order, food_type, notes, created_at
		FROM feeding_records WHERE child_id = ? ORDER BY start_time`, childID)
	if err != nil {
		slog.Error("SQLiteStore ListFeedings query failed", "error", err, "child", childID)
		return nil, fmt.Errorf("failed to query feeding records: %w", err)
	}
	defer rows.Close()
	return scanFeedings(rows)
}

func (s *SQLiteStore) AddNap(rec models.NapRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO nap_records
		(id, child_id, start_time, end_time, location, environment, onset, sleep_latency, restfulness, sleep_debt, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChildID, rec.StartTime, rec.EndTime, rec.Location, rec.Environment, rec.Onset,
		rec.SleepLatency, rec.Restfulness, rec.SleepDebt, nilIfEmpty(rec.Notes), rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddNap failed", "error", err, "child", rec.ChildID)
		return "", fmt.Errorf("failed to insert nap record: %w", err)
	}
	slog.Debug("SQLiteStore AddNap succeeded", "id", rec.ID, "child", rec.ChildID)
	return rec.ID, nil
}

func (s *SQLiteStore) ListNaps(childID string) ([]models.NapRecord, error) {
	rows, err := s.db.Query(`SELECT id, child_id, start_time, end_time, location, environment, onset, sleep_latency, restfulness, sleep_debt, notes, created_at
		FROM nap_records WHERE child_id = ? ORDER BY start_time`, childID)
	if err != nil {
		slog.Error("SQLiteStore ListNaps query failed", "error", err, "child", childID)
		return nil, fmt.Errorf("failed to query nap records: %w", err)
	}
	defer rows.Close()
	return scanNaps(rows)
}

func (s *SQLiteStore) AddSleep(rec models.SleepRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO sleep_records
		(id, child_id, start_time, end_time, location, environment, onset, sleep_latency, night_wakings, restfulness, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChildID, rec.StartTime, rec.EndTime, rec.Location, rec.Environment, rec.Onset,
		rec.SleepLatency, rec.NightWakings, rec.Restfulness, nilIfEmpty(rec.Notes), rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddSleep failed", "error", err, "child", rec.ChildID)
		return "", fmt.Errorf("failed to insert sleep record: %w", err)
	}
	slog.Debug("SQLiteStore AddSleep succeeded", "id", rec.ID, "child", rec.ChildID)
	return rec.ID, nil
}

func (s *SQLiteStore) ListSleeps(childID string) ([]models.SleepRecord, error) {
	rows, err := s.db.Query(`SELECT id, child_id, start_time, end_time, location, environment, onset, sleep_latency, night_wakings, restfulness, notes, created_at
		FROM sleep_records WHERE child_id = ? ORDER BY start_time`, childID)
	if err != nil {
		slog.Error("SQLiteStore ListSleeps query failed", "error", err, "child", childID)
		return nil, fmt.Errorf("failed to query sleep records: %w", err)
	}
	defer rows.Close()
	return scanSleeps(rows)
}

// ResolveRoom finds or creates the room for a pair. The UNIQUE constraint on
// (specialist_id, caregiver_id) keeps resolution idempotent under races.
func (s *SQLiteStore) ResolveRoom(specialistID, caregiverID string) (models.ChatRoom, error) {
	if specialistID == "" || caregiverID == "" {
		return models.ChatRoom{}, models.ErrEmptyParticipant
	}
	room := models.ChatRoom{ID: uuid.NewString(), SpecialistID: specialistID, CaregiverID: caregiverID, CreatedAt: nowFunc()}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO chat_rooms (id, specialist_id, caregiver_id, created_at) VALUES (?, ?, ?, ?)`,
		room.ID, room.SpecialistID, room.CaregiverID, room.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore ResolveRoom insert failed", "error", err)
		return models.ChatRoom{}, fmt.Errorf("failed to resolve chat room: %w", err)
	}
	err = s.db.QueryRow(`SELECT id, specialist_id, caregiver_id, created_at FROM chat_rooms WHERE specialist_id = ? AND caregiver_id = ?`,
		specialistID, caregiverID).Scan(&room.ID, &room.SpecialistID, &room.CaregiverID, &room.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore ResolveRoom select failed", "error", err)
		return models.ChatRoom{}, fmt.Errorf("failed to resolve chat room: %w", err)
	}
	slog.Debug("SQLiteStore ResolveRoom succeeded", "room", room.ID)
	return room, nil
}

func (s *SQLiteStore) AddMessage(m models.ChatMessage) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = nowFunc()
	}
	_, err := s.db.Exec(`INSERT INTO chat_messages (id, room_id, sender_id, content, created_at, edited, deleted, read) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.SenderID, m.Content, m.CreatedAt, m.Edited, m.Deleted, m.Read)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "room", m.RoomID)
		return "", fmt.Errorf("failed to insert chat message: %w", err)
	}
	slog.Debug("SQLiteStore AddMessage succeeded", "id", m.ID, "room", m.RoomID)
	return m.ID, nil
}

// ListMessages returns a room's messages in arrival order.
func (s *SQLiteStore) ListMessages(roomID string) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(`SELECT id, room_id, sender_id, content, created_at, edited, deleted, read FROM chat_messages WHERE room_id = ? ORDER BY arrival`, roomID)
	if err != nil {
		slog.Error("SQLiteStore ListMessages query failed", "error", err, "room", roomID)
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *SQLiteStore) MarkMessagesRead(roomID, readerID string) error {
	_, err := s.db.Exec(`UPDATE chat_messages SET read = 1 WHERE room_id = ? AND sender_id != ?`, roomID, readerID)
	if err != nil {
		slog.Error("SQLiteStore MarkMessagesRead failed", "error", err, "room", roomID)
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
