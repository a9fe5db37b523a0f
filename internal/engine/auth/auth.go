package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// ForbiddenError indicates the acting user lacks the role or ownership the
// operation requires.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	return e.Reason
}

// Service provides role and ownership checks backed by SQL.
type Service struct {
	DB *sql.DB
}

func (s Service) queryRow(ctx context.Context, tx *sql.Tx, query string, args ...any) *sql.Row {
	if tx != nil {
		return tx.QueryRowContext(ctx, query, args...)
	}
	return s.DB.QueryRowContext(ctx, query, args...)
}

// UserHasType reports whether the user exists with the given type.
func (s Service) UserHasType(ctx context.Context, tx *sql.Tx, userID int64, userType string) (bool, error) {
	row := s.queryRow(ctx, tx, `SELECT 1 FROM users WHERE id=? AND user_type=? LIMIT 1`, userID, userType)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// RequireType returns a ForbiddenError unless the user carries the type.
func (s Service) RequireType(ctx context.Context, tx *sql.Tx, userID int64, userType string) error {
	ok, err := s.UserHasType(ctx, tx, userID, userType)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Reason: fmt.Sprintf("%s role required", userType)}
	}
	return nil
}

// DoctorHasSpeciality reports whether the doctor is registered for the
// specialty.
func (s Service) DoctorHasSpeciality(ctx context.Context, tx *sql.Tx, doctorID, specialityID int64) (bool, error) {
	row := s.queryRow(ctx, tx, `SELECT 1 FROM user_specialities WHERE user_id=? AND speciality_id=? LIMIT 1`, doctorID, specialityID)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// OwnsConsultation reports whether the patient created the consultation.
func (s Service) OwnsConsultation(ctx context.Context, tx *sql.Tx, consultationID, patientID int64) (bool, error) {
	row := s.queryRow(ctx, tx, `SELECT 1 FROM consultations WHERE id=? AND patient_id=? LIMIT 1`, consultationID, patientID)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// AssignedToConsultation reports whether the doctor currently holds the
// consultation.
func (s Service) AssignedToConsultation(ctx context.Context, tx *sql.Tx, consultationID, doctorID int64) (bool, error) {
	row := s.queryRow(ctx, tx, `SELECT 1 FROM consultations WHERE id=? AND doctor_id=? LIMIT 1`, consultationID, doctorID)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
