package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"teleconsult/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertConsultation(ctx context.Context, tx *sql.Tx, c domain.Consultation) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO consultations(date,title,description,severity,patient_id,speciality_id,doctor_id,status,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		c.Date, c.Title, nullable(c.Description), c.Severity, c.PatientID, c.SpecialityID, nullableInt64Ptr(c.DoctorID), c.Status, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanConsultation(scan func(...any) error) (domain.Consultation, error) {
	var c domain.Consultation
	var description sql.NullString
	var doctorID sql.NullInt64
	err := scan(&c.ID, &c.Date, &c.Title, &description, &c.Severity, &c.PatientID, &c.SpecialityID, &doctorID, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if description.Valid {
		c.Description = description.String
	}
	if doctorID.Valid {
		c.DoctorID = &doctorID.Int64
	}
	return c, nil
}

const consultationColumns = `id,date,title,description,severity,patient_id,speciality_id,doctor_id,status,created_at`

func (r Repo) GetConsultation(ctx context.Context, id int64) (domain.Consultation, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+consultationColumns+` FROM consultations WHERE id=?`, id)
	return scanConsultation(row.Scan)
}

func (r Repo) GetConsultationTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Consultation, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+consultationColumns+` FROM consultations WHERE id=?`, id)
	return scanConsultation(row.Scan)
}

// GetConsultationByDateAndPatient is a lookup convenience, not a uniqueness
// constraint: callers use it to warn about duplicate bookings.
func (r Repo) GetConsultationByDateAndPatient(ctx context.Context, date string, patientID int64) (domain.Consultation, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+consultationColumns+` FROM consultations WHERE date=? AND patient_id=?`, date, patientID)
	return scanConsultation(row.Scan)
}

// SetConsultationDoctor records the assignment. Returns the number of rows
// touched; zero means the consultation id does not exist. Re-assignment
// overwrites the previous doctor, last writer wins.
func (r Repo) SetConsultationDoctor(ctx context.Context, tx *sql.Tx, consultationID, doctorID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE consultations SET doctor_id=? WHERE id=?`, doctorID, consultationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) SetConsultationStatus(ctx context.Context, tx *sql.Tx, id int64, status string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE consultations SET status=? WHERE id=?`, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateConsultationFields patches title/description/severity; nil pointers
// are left untouched.
func (r Repo) UpdateConsultationFields(ctx context.Context, tx *sql.Tx, id int64, title, description, severity *string) error {
	var (
		fields []string
		args   []any
	)
	if title != nil {
		fields = append(fields, "title=?")
		args = append(args, *title)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*description))
	}
	if severity != nil {
		fields = append(fields, "severity=?")
		args = append(args, *severity)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE consultations SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UnassignedFilters narrow the pool query; empty strings leave the predicate
// unconstrained. All matches are case-insensitive substring matches.
type UnassignedFilters struct {
	Title          string
	Severity       string
	PatientName    string
	SpecialityName string
}

// ListUnassigned returns the unassigned pool for the given specialties:
// pending consultations with no doctor recorded, ordered ascending by id,
// one representative row per consultation.
func (r Repo) ListUnassigned(ctx context.Context, specialityIDs []int64, f UnassignedFilters) ([]domain.UnassignedConsultation, error) {
	if len(specialityIDs) == 0 {
		return nil, nil
	}
	clauses := []string{"c.doctor_id IS NULL", "c.status=?"}
	args := []any{domain.StatusPending}
	placeholders := make([]string, len(specialityIDs))
	for i, id := range specialityIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	clauses = append(clauses, "c.speciality_id IN ("+strings.Join(placeholders, ",")+")")
	addLike(&clauses, &args, "c.title", f.Title)
	addLike(&clauses, &args, "c.severity", f.Severity)
	addLike(&clauses, &args, patientNameExpr, f.PatientName)
	addLike(&clauses, &args, "s.name", f.SpecialityName)

	query := `SELECT
    c.id, c.date, c.title, c.description, c.severity,
    c.speciality_id, s.name,
    c.patient_id, ` + patientNameExpr + `, p.avatar
FROM consultations c
LEFT JOIN users p ON c.patient_id = p.id
LEFT JOIN files_consultations fc ON fc.consultation_id = c.id
JOIN specialities s ON c.speciality_id = s.id
WHERE ` + strings.Join(clauses, " AND ") + `
ORDER BY c.id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.UnassignedConsultation
	for rows.Next() {
		var u domain.UnassignedConsultation
		var description, avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.Date, &u.Title, &description, &u.Severity,
			&u.SpecialityID, &u.SpecialityName, &u.PatientID, &u.PatientName, &avatar); err != nil {
			return nil, err
		}
		if description.Valid {
			u.Description = description.String
		}
		if avatar.Valid {
			u.PatientAvatar = &avatar.String
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return CollapseByID(res, func(u domain.UnassignedConsultation) int64 { return u.ID }), nil
}

const (
	patientNameExpr = `TRIM(p.first_name || ' ' || COALESCE(p.last_name,''))`
	doctorNameExpr  = `TRIM(d.first_name || ' ' || COALESCE(d.last_name,''))`
)

// ConsultationQuery drives every joined view query: exactly one ownership
// scope (patient id or specialty set) plus optional filters and sort.
type ConsultationQuery struct {
	PatientID     int64
	DoctorID      int64
	SpecialityIDs []int64

	Status     string
	FutureFrom string // exclusive lower bound on c.date

	Title          string
	Severity       string
	PatientName    string
	DoctorName     string
	SpecialityName string
	StartDate      string
	EndDate        string

	SortBy    string
	SortOrder string

	DefaultSortBy    string
	DefaultSortOrder string
}

const viewSelect = `SELECT
    c.id, c.date, c.title, c.severity, c.description, c.status,
    ` + patientNameExpr + ` AS patient_name,
    p.avatar AS patient_avatar,
    COALESCE(p.email,'') AS patient_email,
    CASE WHEN d.id IS NULL THEN NULL ELSE ` + doctorNameExpr + ` END AS doctor_name,
    d.avatar AS doctor_avatar,
    s.name AS speciality_name,
    r.rating,
    fc.file_name, fc.file_path,
    fr.file_name, fr.file_path
FROM consultations c
LEFT JOIN files_consultations fc ON fc.consultation_id = c.id
LEFT JOIN responses r ON r.consultation_id = c.id
LEFT JOIN files_responses fr ON fr.response_id = r.id
LEFT JOIN users p ON c.patient_id = p.id
LEFT JOIN users d ON c.doctor_id = d.id
JOIN specialities s ON c.speciality_id = s.id`

// ListConsultationViews runs the shared join projection under the query's
// scope and collapses join duplicates to one row per consultation.
func (r Repo) ListConsultationViews(ctx context.Context, q ConsultationQuery) ([]domain.ConsultationView, error) {
	clauses, args, err := q.where()
	if err != nil {
		return nil, err
	}
	if q.DefaultSortBy == "" {
		q.DefaultSortBy = "id"
	}
	if q.DefaultSortOrder == "" {
		q.DefaultSortOrder = "asc"
	}
	order, err := orderBy(q.SortBy, q.SortOrder, q.DefaultSortBy, q.DefaultSortOrder)
	if err != nil {
		return nil, err
	}
	query := viewSelect + "\nWHERE " + strings.Join(clauses, " AND ") + "\n" + order
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ConsultationView
	for rows.Next() {
		v, err := scanConsultationView(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return CollapseByID(res, func(v domain.ConsultationView) int64 { return v.ID }), nil
}

func (q ConsultationQuery) where() ([]string, []any, error) {
	var clauses []string
	var args []any
	switch {
	case q.PatientID != 0:
		clauses = append(clauses, "c.patient_id=?")
		args = append(args, q.PatientID)
	case q.DoctorID != 0:
		clauses = append(clauses, "c.doctor_id=?")
		args = append(args, q.DoctorID)
	case len(q.SpecialityIDs) > 0:
		placeholders := make([]string, len(q.SpecialityIDs))
		for i, id := range q.SpecialityIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, "c.speciality_id IN ("+strings.Join(placeholders, ",")+")")
	default:
		return nil, nil, errors.New("consultation query requires an ownership scope")
	}
	if q.Status != "" {
		clauses = append(clauses, "c.status=?")
		args = append(args, q.Status)
	}
	if q.FutureFrom != "" {
		clauses = append(clauses, "c.date > ?")
		args = append(args, q.FutureFrom)
	}
	if q.StartDate != "" {
		clauses = append(clauses, "c.date >= ?")
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		clauses = append(clauses, "c.date <= ?")
		args = append(args, q.EndDate)
	}
	addLike(&clauses, &args, "c.title", q.Title)
	addLike(&clauses, &args, "c.severity", q.Severity)
	addLike(&clauses, &args, patientNameExpr, q.PatientName)
	addLike(&clauses, &args, doctorNameExpr, q.DoctorName)
	addLike(&clauses, &args, "s.name", q.SpecialityName)
	return clauses, args, nil
}

// GetConsultationViewForPatient returns the detail view when the consultation
// belongs to the patient.
func (r Repo) GetConsultationViewForPatient(ctx context.Context, id, patientID int64) (domain.ConsultationView, error) {
	return r.getConsultationView(ctx, "c.id=? AND c.patient_id=?", id, patientID)
}

// GetConsultationViewForDoctor returns the detail view when the consultation
// is assigned to the doctor.
func (r Repo) GetConsultationViewForDoctor(ctx context.Context, id, doctorID int64) (domain.ConsultationView, error) {
	return r.getConsultationView(ctx, "c.id=? AND c.doctor_id=?", id, doctorID)
}

func (r Repo) getConsultationView(ctx context.Context, where string, args ...any) (domain.ConsultationView, error) {
	query := viewSelect + "\nWHERE " + where + "\nORDER BY c.id ASC"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ConsultationView{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.ConsultationView{}, err
		}
		return domain.ConsultationView{}, ErrNotFound
	}
	return scanConsultationView(rows)
}

func scanConsultationView(rows *sql.Rows) (domain.ConsultationView, error) {
	var v domain.ConsultationView
	var description sql.NullString
	var patientAvatar, doctorName, doctorAvatar sql.NullString
	var rating sql.NullInt64
	var cfName, cfPath, rfName, rfPath sql.NullString
	err := rows.Scan(&v.ID, &v.Date, &v.Title, &v.Severity, &description, &v.Status,
		&v.PatientName, &patientAvatar, &v.PatientEmail,
		&doctorName, &doctorAvatar, &v.SpecialityName, &rating,
		&cfName, &cfPath, &rfName, &rfPath)
	if err != nil {
		return v, err
	}
	if description.Valid {
		v.Description = description.String
	}
	if patientAvatar.Valid {
		v.PatientAvatar = &patientAvatar.String
	}
	if doctorName.Valid {
		v.DoctorName = &doctorName.String
	}
	if doctorAvatar.Valid {
		v.DoctorAvatar = &doctorAvatar.String
	}
	if rating.Valid {
		n := int(rating.Int64)
		v.Rating = &n
	}
	if cfName.Valid {
		v.ConsultationFileName = &cfName.String
	}
	if cfPath.Valid {
		v.ConsultationFilePath = &cfPath.String
	}
	if rfName.Valid {
		v.ResponseFileName = &rfName.String
	}
	if rfPath.Valid {
		v.ResponseFilePath = &rfPath.String
	}
	return v, nil
}

func addLike(clauses *[]string, args *[]any, expr, value string) {
	if value == "" {
		return
	}
	*clauses = append(*clauses, expr+" LIKE '%' || ? || '%'")
	*args = append(*args, value)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
