package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/ridematch/internal/models"
)

// PostgresStore persists entities in a remote Postgres database. Ids
// and timestamps are server-assigned and read back from RETURNING
// clauses; nothing is fabricated locally on failure.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// wrapPgErr maps undefined-table/column failures to ErrSchemaMissing so
// the caller can tell "run the setup SQL" apart from a real outage.
func wrapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01", "42703": // undefined_table, undefined_column
			return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
		}
	}
	return err
}

// Row shapes as they come back from the database, mapped to domain
// entities by the rowTo* functions below. Nullable columns use sql.Null
// types so absent values map to the zero value, not a scan error.

type driverRow struct {
	id        string
	eventID   string
	name      string
	phone     string
	seats     sql.NullInt64
	notes     sql.NullString
	userID    sql.NullString
	createdAt sql.NullTime
}

func rowToDriver(r driverRow) models.Driver {
	seats := int(r.seats.Int64)
	if seats < 1 {
		seats = 1
	}
	return models.Driver{
		ID:          r.id,
		EventID:     r.eventID,
		Name:        r.name,
		Phone:       r.phone,
		Seats:       seats,
		Notes:       r.notes.String,
		OwnerUserID: r.userID.String,
		CreatedAt:   r.createdAt.Time,
	}
}

type studentRow struct {
	id        string
	eventID   string
	name      string
	phone     string
	pickup    sql.NullString
	notes     sql.NullString
	userID    sql.NullString
	createdAt sql.NullTime
}

func rowToStudent(r studentRow) models.Student {
	return models.Student{
		ID:          r.id,
		EventID:     r.eventID,
		Name:        r.name,
		Phone:       r.phone,
		Pickup:      r.pickup.String,
		Notes:       r.notes.String,
		OwnerUserID: r.userID.String,
		CreatedAt:   r.createdAt.Time,
	}
}

type eventRow struct {
	id        string
	name      string
	date      string
	startTime sql.NullString
	endTime   sql.NullString
	location  sql.NullString
}

func rowToEvent(r eventRow) models.Event {
	return models.Event{
		ID:        r.id,
		Name:      r.name,
		Date:      r.date,
		StartTime: r.startTime.String,
		EndTime:   r.endTime.String,
		Location:  r.location.String,
	}
}

func (p *PostgresStore) CreateEvent(e models.Event) (models.Event, error) {
	var r eventRow
	err := p.db.QueryRow(
		`INSERT INTO events(name, date, time, end_time, location) VALUES($1,$2,$3,$4,$5)
		 RETURNING id, name, date, time, end_time, location`,
		e.Name, e.Date, e.StartTime, e.EndTime, e.Location,
	).Scan(&r.id, &r.name, &r.date, &r.startTime, &r.endTime, &r.location)
	if err != nil {
		return models.Event{}, wrapPgErr(err)
	}
	return rowToEvent(r), nil
}

func (p *PostgresStore) ListEvents() ([]models.Event, error) {
	rows, err := p.db.Query(
		`SELECT id, name, date, time, end_time, location FROM events ORDER BY created_at ASC`)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.id, &r.name, &r.date, &r.startTime, &r.endTime, &r.location); err != nil {
			return nil, err
		}
		out = append(out, rowToEvent(r))
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetEvent(id string) (models.Event, bool) {
	var r eventRow
	err := p.db.QueryRow(
		`SELECT id, name, date, time, end_time, location FROM events WHERE id=$1`, id,
	).Scan(&r.id, &r.name, &r.date, &r.startTime, &r.endTime, &r.location)
	if err != nil {
		return models.Event{}, false
	}
	return rowToEvent(r), true
}

func (p *PostgresStore) CreateDriver(d models.Driver) (models.Driver, error) {
	var r driverRow
	err := p.db.QueryRow(
		`INSERT INTO drivers(event_id, name, phone, seats, notes, user_id) VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING id, event_id, name, phone, seats, notes, user_id, created_at`,
		d.EventID, d.Name, d.Phone, d.Seats, d.Notes, nullIfEmpty(d.OwnerUserID),
	).Scan(&r.id, &r.eventID, &r.name, &r.phone, &r.seats, &r.notes, &r.userID, &r.createdAt)
	if err != nil {
		return models.Driver{}, wrapPgErr(err)
	}
	return rowToDriver(r), nil
}

func (p *PostgresStore) DriversByEvent(eventID string) ([]models.Driver, error) {
	rows, err := p.db.Query(
		`SELECT id, event_id, name, phone, seats, notes, user_id, created_at
		 FROM drivers WHERE event_id=$1 ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()
	var out []models.Driver
	for rows.Next() {
		var r driverRow
		if err := rows.Scan(&r.id, &r.eventID, &r.name, &r.phone, &r.seats, &r.notes, &r.userID, &r.createdAt); err != nil {
			return nil, err
		}
		out = append(out, rowToDriver(r))
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateStudent(s models.Student) (models.Student, error) {
	var r studentRow
	err := p.db.QueryRow(
		`INSERT INTO students(event_id, name, phone, pickup, notes, user_id) VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING id, event_id, name, phone, pickup, notes, user_id, created_at`,
		s.EventID, s.Name, s.Phone, s.Pickup, s.Notes, nullIfEmpty(s.OwnerUserID),
	).Scan(&r.id, &r.eventID, &r.name, &r.phone, &r.pickup, &r.notes, &r.userID, &r.createdAt)
	if err != nil {
		return models.Student{}, wrapPgErr(err)
	}
	return rowToStudent(r), nil
}

func (p *PostgresStore) StudentsByEvent(eventID string) ([]models.Student, error) {
	rows, err := p.db.Query(
		`SELECT id, event_id, name, phone, pickup, notes, user_id, created_at
		 FROM students WHERE event_id=$1 ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()
	var out []models.Student
	for rows.Next() {
		var r studentRow
		if err := rows.Scan(&r.id, &r.eventID, &r.name, &r.phone, &r.pickup, &r.notes, &r.userID, &r.createdAt); err != nil {
			return nil, err
		}
		out = append(out, rowToStudent(r))
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateMatch(driverID, studentID, eventID string) (*models.Match, error) {
	var m models.Match
	err := p.db.QueryRow(
		`INSERT INTO matches(driver_id, student_id, event_id, status) VALUES($1,$2,$3,$4)
		 ON CONFLICT (driver_id, student_id, event_id) DO NOTHING
		 RETURNING driver_id, student_id, event_id, status, created_at`,
		driverID, studentID, eventID, models.MatchPending,
	).Scan(&m.DriverID, &m.StudentID, &m.EventID, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// triple already present
		return nil, nil
	}
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &m, nil
}

func (p *PostgresStore) ConfirmMatch(driverID, studentID, eventID string) error {
	_, err := p.db.Exec(
		`UPDATE matches SET status=$1 WHERE driver_id=$2 AND student_id=$3 AND event_id=$4`,
		models.MatchConfirmed, driverID, studentID, eventID)
	return wrapPgErr(err)
}

func (p *PostgresStore) MatchesByEvent(eventID string) ([]models.Match, error) {
	rows, err := p.db.Query(
		`SELECT driver_id, student_id, event_id, status, created_at
		 FROM matches WHERE event_id=$1 ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()
	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.DriverID, &m.StudentID, &m.EventID, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
