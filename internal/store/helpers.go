package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/NestNote/CradleLog/internal/models"
)

// nowFunc allows tests to pin time.
var nowFunc = time.Now

// nilIfEmpty converts empty strings to nil for database insertion.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullTime converts zero times to nil for database insertion.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// encodeOrder serializes a feeding order list as JSON text. An empty order
// stores as nil.
func encodeOrder(order []string) interface{} {
	if len(order) == 0 {
		return nil
	}
	b, err := json.Marshal(order)
	if err != nil {
		return nil
	}
	return string(b)
}

// decodeOrder parses a JSON feeding order column back into a slice.
func decodeOrder(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var order []string
	if err := json.Unmarshal([]byte(raw.String), &order); err != nil {
		return nil
	}
	return order
}

func fillProfileDefaults(p *models.Profile) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = nowFunc()
	}
}

func fillChildDefaults(c *models.Child) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowFunc()
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfileRow(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var phone, timezone sql.NullString
	if err := row.Scan(&p.ID, &p.Role, &p.Name, &phone, &timezone, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Phone = phone.String
	p.Timezone = timezone.String
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]models.Profile, error) {
	var out []models.Profile
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanFeedings(rows *sql.Rows) ([]models.FeedingRecord, error) {
	var out []models.FeedingRecord
	for rows.Next() {
		var r models.FeedingRecord
		var end sql.NullTime
		var amountML, amountOz sql.NullFloat64
		var left, right, total sql.NullInt64
		var order, foodType, notes sql.NullString
		if err := rows.Scan(&r.ID, &r.ChildID, &r.Kind, &r.StartTime, &end, &amountML, &amountOz,
			&left, &right, &total, &order, &foodType, &notes, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.EndTime = end.Time
		r.AmountML = amountML.Float64
		r.AmountOz = amountOz.Float64
		r.LeftDuration = int(left.Int64)
		r.RightDuration = int(right.Int64)
		r.TotalDuration = int(total.Int64)
		r.FeedingOrder = decodeOrder(order)
		r.FoodType = foodType.String
		r.Notes = notes.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanNaps(rows *sql.Rows) ([]models.NapRecord, error) {
	var out []models.NapRecord
	for rows.Next() {
		var r models.NapRecord
		var notes sql.NullString
		if err := rows.Scan(&r.ID, &r.ChildID, &r.StartTime, &r.EndTime, &r.Location, &r.Environment,
			&r.Onset, &r.SleepLatency, &r.Restfulness, &r.SleepDebt, &notes, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Notes = notes.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanSleeps(rows *sql.Rows) ([]models.SleepRecord, error) {
	var out []models.SleepRecord
	for rows.Next() {
		var r models.SleepRecord
		var notes sql.NullString
		if err := rows.Scan(&r.ID, &r.ChildID, &r.StartTime, &r.EndTime, &r.Location, &r.Environment,
			&r.Onset, &r.SleepLatency, &r.NightWakings, &r.Restfulness, &notes, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Notes = notes.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.CreatedAt,
			&m.Edited, &m.Deleted, &m.Read); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
