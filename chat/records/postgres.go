package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresStore implements PatronDirectory and AppointmentBook on bun.
type PostgresStore struct {
	db *bun.DB
}

var (
	_ contractx.PatronDirectory = (*PostgresStore)(nil)
	_ contractx.AppointmentBook = (*PostgresStore)(nil)
)

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Seed creates the tables if needed and inserts the sample rows, skipping ids
// that already exist.
func (s *PostgresStore) Seed(ctx context.Context, now time.Time) error {
	if _, err := s.db.NewCreateTable().Model((*PatientRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create patients table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*AppointmentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create appointments table: %w", err)
	}

	patients := SamplePatients()
	if _, err := s.db.NewInsert().Model(&patients).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	appointments := SampleAppointments(now)
	if _, err := s.db.NewInsert().Model(&appointments).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyPatron(ctx context.Context, fullName, phoneNumber, dateOfBirth string) (contractx.Verification, error) {
	var row PatientRow
	err := s.db.NewSelect().
		Model(&row).
		Where("full_name = ?", fullName).
		Where("phone_number = ?", phoneNumber).
		Where("date_of_birth = ?", dateOfBirth).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Verification{Verified: false}, nil
	}
	if err != nil {
		return contractx.Verification{}, fmt.Errorf("%w: verify patron: %v", contractx.ErrStoreUnavailable, err)
	}
	return contractx.Verification{
		Verified: true,
		PatronID: row.ID,
		FullName: row.FullName,
	}, nil
}

func (s *PostgresStore) ListAppointments(ctx context.Context, patronID int64) ([]contractx.Appointment, error) {
	var rows []AppointmentRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patronID).
		Order("appointment_date ASC", "appointment_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %v", contractx.ErrStoreUnavailable, err)
	}

	appointments := make([]contractx.Appointment, 0, len(rows))
	for _, row := range rows {
		appointments = append(appointments, row.toAppointment())
	}
	return appointments, nil
}

func (s *PostgresStore) UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status contractx.AppointmentStatus) error {
	res, err := s.db.NewUpdate().
		Model((*AppointmentRow)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: update appointment status: %v", contractx.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update appointment status: %v", contractx.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id=%d", contractx.ErrAppointmentNotFound, appointmentID)
	}
	return nil
}
