package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/NestNote/CradleLog/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists all CradleLog entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN and
// applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run PostgreSQL migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddProfile(p models.Profile) (string, error) {
	fillProfileDefaults(&p)
	_, err := s.db.Exec(`INSERT INTO profiles (id, role, name, phone, timezone, created_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, name = EXCLUDED.name, phone = EXCLUDED.phone, timezone = EXCLUDED.timezone`,
		p.ID, p.Role, p.Name, nilIfEmpty(p.Phone), nilIfEmpty(p.Timezone), p.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddProfile failed", "error", err, "id", p.ID)
		return "", fmt.Errorf("failed to insert profile: %w", err)
	}
	return p.ID, nil
}

func (s *PostgresStore) GetProfile(id string) (*models.Profile, error) {
	row := s.db.QueryRow(`SELECT id, role, name, phone, timezone, created_at FROM profiles WHERE id = $1`, id)
	p, err := scanProfileRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "id", id)
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListCaregivers() ([]models.Profile, error) {
	rows, err := s.db.Query(`SELECT id, role, name, phone, timezone, created_at FROM profiles WHERE role = $1 ORDER BY id`, models.RoleCaregiver)
	if err != nil {
		slog.Error("PostgresStore ListCaregivers query failed", "error", err)
		return nil, fmt.Errorf("failed to query caregivers: %w", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (s *PostgresStore) AddChild(c models.Child) (string, error) {
	fillChildDefaults(&c)
	_, err := s.db.Exec(`INSERT INTO children (id, caregiver_id, name, birth_date, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET caregiver_id = EXCLUDED.caregiver_id, name = EXCLUDED.name, birth_date = EXCLUDED.birth_date`,
		c.ID, c.CaregiverID, c.Name, c.BirthDate, c.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddChild failed", "error", err, "id", c.ID)
		return "", fmt.Errorf("failed to insert child: %w", err)
	}
	return c.ID, nil
}

func (s *PostgresStore) GetChild(id string) (*models.Child, error) {
	var c models.Child
	err := s.db.QueryRow(`SELECT id, caregiver_id, name, birth_date, created_at FROM children WHERE id = $1`, id).
		Scan(&c.ID, &c.CaregiverID, &c.Name, &c.BirthDate, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrChildNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetChild failed", "error", err, "id", id)
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) AddFeeding(rec models.FeedingRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO feeding_records
		(id, child_id, kind, start_time, end_time, amount_ml, amount_oz, left_duration, right_duration, total_duration, feeding_order, food_type, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.ChildID, rec.Kind, rec.StartTime, nullTime(rec.EndTime), rec.AmountML, rec.AmountOz,
		rec.LeftDuration, rec.RightDuration, rec.TotalDuration, encodeOrder(rec.FeedingOrder),
		nilIfEmpty(rec.FoodType), nilIfEmpty(rec.Notes), rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddFeeding failed", "error", err, "child", rec.ChildID)
		return "", fmt.Errorf("failed to insert feeding record: %w", err)
	}
	slog.Debug("PostgresStore AddFeeding succeeded", "id", rec.ID, "child", rec.ChildID, "kind", rec.Kind)
	return rec.ID, nil
}

func (s *PostgresStore) ListFeedings(childID string) ([]models.FeedingRecord, error) {
	rows, err := s.db.Query(`SELECT id, child_id, kind, start_time, end_time, amount_ml, amount_oz, left_duration, right_duration, total_duration, feeding_order, food_type, notes, created_at
		FROM feeding_records WHERE child_id = $1 ORDER BY start_time`, childID)
	if err != nil {
		slog.Error("PostgresStore ListFeedings query failed", "error", err, "child", childID)
		return nil, fmt.Errorf("failed to query feeding records: %w", err)
	}
	defer rows.Close()
	return scanFeedings(rows)
}

func (s *PostgresStore) AddNap(rec models.NapRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO nap_records
		(id, child_id, start_time, end_time, location, environment, onset, sleep_latency, restfulness, sleep_debt, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.ChildID, rec.StartTime, rec.EndTime, rec.Location, rec.Environment, rec.Onset,
		rec.SleepLatency, rec.Restfulness, rec.SleepDebt, nilIfEmpty(rec.Notes), rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddNap failed", "error", err, "child", rec.ChildID)
		return "", fmt.Errorf("failed to insert nap record: %w", err)
	}
	slog.Debug("PostgresStore AddNap succeeded", "id", rec.ID, "child", rec.ChildID)
	return rec.ID, nil
}

func (s *PostgresStore) ListNaps(childID string) ([]models.NapRecord, error) {
	rows, err := s.db.Query(`SELECT id, child_id, start_time, end_time, location, environment, onset, sleep_latency, restfulness, sleep_debt, notes, created_at
		FROM nap_records WHERE child_id = $1 ORDER BY start_time`, childID)
	if err != nil {
		slog.Error("PostgresStore ListNaps query failed", "error", err, "child", childID)
		return nil, fmt.Errorf("failed to query nap records: %w", err)
	}
	defer rows.Close()
	return scanNaps(rows)
}

func (s *PostgresStore) AddSleep(rec models.SleepRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO sleep_records
		(id, child_id, start_time, end_time, location, environment, onset, sleep_latency, night_wakings, restfulness, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.ChildID, rec.StartTime, rec.EndTime, rec.Location, rec.Environment, rec.Onset,
		rec.SleepLatency, rec.NightWakings, rec.Restfulness, nilIfEmpty(rec.Notes), rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddSleep failed", "error", err, "child", rec.ChildID)
		return "", fmt.Errorf("failed to insert sleep record: %w", err)
	}
	slog.Debug("PostgresStore AddSleep succeeded", "id", rec.ID, "child", rec.ChildID)
	return rec.ID, nil
}

func (s *PostgresStore) ListSleeps(childID string) ([]models.SleepRecord, error) {
	rows, err := s.db.Query(`SELECT id, child_id, start_time, end_time, location, environment, onset, sleep_latency, night_wakings, restfulness, notes, created_at
		FROM sleep_records WHERE child_id = $1 ORDER BY start_time`, childID)
	if err != nil {
		slog.Error("PostgresStore ListSleeps query failed", "error", err, "child", childID)
		return nil, fmt.Errorf("failed to query sleep records: %w", err)
	}
	defer rows.Close()
	return scanSleeps(rows)
}

// ResolveRoom finds or creates the room for a pair. ON CONFLICT DO NOTHING
// keeps resolution idempotent under races.
func (s *PostgresStore) ResolveRoom(specialistID, caregiverID string) (models.ChatRoom, error) {
	if specialistID == "" || caregiverID == "" {
		return models.ChatRoom{}, models.ErrEmptyParticipant
	}
	room := models.ChatRoom{ID: uuid.NewString(), SpecialistID: specialistID, CaregiverID: caregiverID, CreatedAt: nowFunc()}
	_, err := s.db.Exec(`INSERT INTO chat_rooms (id, specialist_id, caregiver_id, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (specialist_id, caregiver_id) DO NOTHING`,
		room.ID, room.SpecialistID, room.CaregiverID, room.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore ResolveRoom insert failed", "error", err)
		return models.ChatRoom{}, fmt.Errorf("failed to resolve chat room: %w", err)
	}
	err = s.db.QueryRow(`SELECT id, specialist_id, caregiver_id, created_at FROM chat_rooms WHERE specialist_id = $1 AND caregiver_id = $2`,
		specialistID, caregiverID).Scan(&room.ID, &room.SpecialistID, &room.CaregiverID, &room.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore ResolveRoom select failed", "error", err)
		return models.ChatRoom{}, fmt.Errorf("failed to resolve chat room: %w", err)
	}
	slog.Debug("PostgresStore ResolveRoom succeeded", "room", room.ID)
	return room, nil
}

func (s *PostgresStore) AddMessage(m models.ChatMessage) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = nowFunc()
	}
	_, err := s.db.Exec(`INSERT INTO chat_messages (id, room_id, sender_id, content, created_at, edited, deleted, read) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.RoomID, m.SenderID, m.Content, m.CreatedAt, m.Edited, m.Deleted, m.Read)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "room", m.RoomID)
		return "", fmt.Errorf("failed to insert chat message: %w", err)
	}
	slog.Debug("PostgresStore AddMessage succeeded", "id", m.ID, "room", m.RoomID)
	return m.ID, nil
}

// ListMessages returns a room's messages in arrival order.
func (s *PostgresStore) ListMessages(roomID string) ([]models.ChatMessage, error) {
	rows, err := s.db.Query(`SELECT id, room_id, sender_id, content, created_at, edited, deleted, read FROM chat_messages WHERE room_id = $1 ORDER BY arrival`, roomID)
	if err != nil {
		slog.Error("PostgresStore ListMessages query failed", "error", err, "room", roomID)
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *PostgresStore) MarkMessagesRead(roomID, readerID string) error {
	_, err := s.db.Exec(`UPDATE chat_messages SET read = TRUE WHERE room_id = $1 AND sender_id != $2`, roomID, readerID)
	if err != nil {
		slog.Error("PostgresStore MarkMessagesRead failed", "error", err, "room", roomID)
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
