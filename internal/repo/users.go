package repo

import (
	"context"
	"database/sql"

	"teleconsult/internal/domain"
)

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO users(first_name,last_name,email,password,user_type,user_name,biography,avatar,experience,validation_code,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.FirstName, nullable(u.LastName), u.Email, u.PasswordHash, u.UserType, u.UserName,
		nullable(u.Biography), nullableStrPtr(u.Avatar), nullableIntPtr(u.Experience), nullableIntPtr(u.ValidationCode), u.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) AddUserSpecialities(ctx context.Context, tx *sql.Tx, userID int64, specialityIDs []int64) error {
	for _, sid := range specialityIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO user_specialities(user_id,speciality_id) VALUES (?,?)`, userID, sid); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id,first_name,last_name,email,password,user_type,user_name,biography,avatar,experience,validation_code,created_at`

func scanUser(scan func(...any) error) (domain.User, error) {
	var u domain.User
	var lastName, biography, avatar sql.NullString
	var experience, validationCode sql.NullInt64
	err := scan(&u.ID, &u.FirstName, &lastName, &u.Email, &u.PasswordHash, &u.UserType, &u.UserName,
		&biography, &avatar, &experience, &validationCode, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if lastName.Valid {
		u.LastName = lastName.String
	}
	if biography.Valid {
		u.Biography = biography.String
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	if experience.Valid {
		n := int(experience.Int64)
		u.Experience = &n
	}
	if validationCode.Valid {
		n := int(validationCode.Int64)
		u.ValidationCode = &n
	}
	return u, nil
}

func (r Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	u, err := scanUser(row.Scan)
	if err != nil {
		return u, err
	}
	u.SpecialityIDs, err = r.ListUserSpecialities(ctx, u.ID)
	return u, err
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email)
	u, err := scanUser(row.Scan)
	if err != nil {
		return u, err
	}
	u.SpecialityIDs, err = r.ListUserSpecialities(ctx, u.ID)
	return u, err
}

func (r Repo) GetUserByUserName(ctx context.Context, userName string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_name=?`, userName)
	u, err := scanUser(row.Scan)
	if err != nil {
		return u, err
	}
	u.SpecialityIDs, err = r.ListUserSpecialities(ctx, u.ID)
	return u, err
}

// GetDoctor resolves the user and verifies it is a doctor; a patient id
// yields ErrNotFound the same as a missing row.
func (r Repo) GetDoctor(ctx context.Context, id int64) (domain.User, error) {
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return u, err
	}
	if u.UserType != domain.UserTypeDoctor {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (r Repo) ListUserSpecialities(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT speciality_id FROM user_specialities WHERE user_id=? ORDER BY speciality_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) DoctorHasSpeciality(ctx context.Context, doctorID, specialityID int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_specialities WHERE user_id=? AND speciality_id=?`, doctorID, specialityID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) ClearValidationCode(ctx context.Context, userID int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET validation_code=NULL WHERE id=?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) EmailInUse(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email=?`, email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) UserNameInUse(ctx context.Context, userName string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE user_name=?`, userName).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) ListUsers(ctx context.Context, userType string) ([]domain.User, error) {
	clauses := []string{"1=1"}
	var args []any
	if userType != "" {
		clauses[0] = "user_type=?"
		args = append(args, userType)
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+clauses[0]+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableStrPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
