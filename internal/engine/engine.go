package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teleconsult/internal/config"
	"teleconsult/internal/domain"
	"teleconsult/internal/engine/auth"
	"teleconsult/internal/events"
	"teleconsult/internal/mailer"
	"teleconsult/internal/repo"
)

// ConflictError indicates the operation collided with existing state, such
// as re-rating a response.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Mail   mailer.Mailer
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, mail mailer.Mailer) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.Service{DB: db},
		Config: cfg,
		Mail:   mail,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func actorID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// RegisterUserOptions are parameters for registering a patient or doctor.
type RegisterUserOptions struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	UserType      string
	UserName      string
	Biography     string
	Avatar        *string
	Experience    *int
	SpecialityIDs []int64
	DoctorCode    string
}

func (e Engine) RegisterUser(ctx context.Context, opts RegisterUserOptions) (domain.User, error) {
	if opts.FirstName == "" {
		return domain.User{}, errors.New("first_name is required")
	}
	if opts.Email == "" || !strings.Contains(opts.Email, "@") {
		return domain.User{}, errors.New("invalid email")
	}
	if len(opts.Password) < 6 {
		return domain.User{}, errors.New("invalid password: 6 characters minimum")
	}
	if opts.UserName == "" {
		return domain.User{}, errors.New("user_name is required")
	}
	if opts.UserType != domain.UserTypePatient && opts.UserType != domain.UserTypeDoctor {
		return domain.User{}, errors.New("invalid user_type")
	}
	if opts.UserType == domain.UserTypeDoctor {
		if e.Config == nil || e.Config.Registration.DoctorCode == "" || opts.DoctorCode != e.Config.Registration.DoctorCode {
			return domain.User{}, auth.ForbiddenError{Reason: "doctor registration code rejected"}
		}
		if len(opts.SpecialityIDs) == 0 {
			return domain.User{}, errors.New("speciality_ids are required for doctors")
		}
		for _, sid := range opts.SpecialityIDs {
			if _, err := e.Repo.GetSpeciality(ctx, sid); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return domain.User{}, fmt.Errorf("invalid speciality %d", sid)
				}
				return domain.User{}, err
			}
		}
	}
	if inUse, err := e.Repo.EmailInUse(ctx, opts.Email); err != nil {
		return domain.User{}, err
	} else if inUse {
		return domain.User{}, ConflictError{Reason: "email already registered"}
	}
	if inUse, err := e.Repo.UserNameInUse(ctx, opts.UserName); err != nil {
		return domain.User{}, err
	} else if inUse {
		return domain.User{}, ConflictError{Reason: "user_name already taken"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	code := 100000 + rand.Intn(900000)
	u := domain.User{
		FirstName:      opts.FirstName,
		LastName:       opts.LastName,
		Email:          opts.Email,
		UserType:       opts.UserType,
		UserName:       opts.UserName,
		Biography:      opts.Biography,
		Avatar:         opts.Avatar,
		Experience:     opts.Experience,
		PasswordHash:   string(hash),
		ValidationCode: &code,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	u.ID, err = e.Repo.InsertUser(ctx, tx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if opts.UserType == domain.UserTypeDoctor {
		if err := e.Repo.AddUserSpecialities(ctx, tx, u.ID, opts.SpecialityIDs); err != nil {
			return domain.User{}, fmt.Errorf("insert user specialities: %w", err)
		}
		u.SpecialityIDs = opts.SpecialityIDs
	}
	if err := e.Events.Append(ctx, tx, events.UserRegistered, "user", actorID(u.ID), actorID(u.ID), events.EventPayload{"user_type": u.UserType}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	if e.Mail != nil {
		// Best effort. Registration stands even when mail delivery fails.
		_ = e.Mail.SendValidationCode(u.Email, u.FullName(), code)
	}
	return u, nil
}

// ConfirmUser clears the validation code once the user presents it back.
func (e Engine) ConfirmUser(ctx context.Context, email string, code int) error {
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.ValidationCode == nil {
		return nil
	}
	if *u.ValidationCode != code {
		return errors.New("invalid validation code")
	}
	return e.Repo.ClearValidationCode(ctx, u.ID)
}

// Authenticate checks the password against the stored bcrypt hash.
func (e Engine) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, errors.New("invalid credentials")
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	return u, nil
}

// ConsultationCreateOptions are parameters for opening a consultation.
type ConsultationCreateOptions struct {
	PatientID    int64
	Date         string
	Title        string
	Description  string
	Severity     string
	SpecialityID int64
}

func (e Engine) CreateConsultation(ctx context.Context, opts ConsultationCreateOptions) (domain.Consultation, error) {
	if opts.Title == "" {
		return domain.Consultation{}, errors.New("title is required")
	}
	if opts.Date == "" {
		return domain.Consultation{}, errors.New("date is required")
	}
	if _, err := time.Parse(time.RFC3339, opts.Date); err != nil {
		return domain.Consultation{}, errors.New("invalid date: RFC 3339 expected")
	}
	if opts.Severity == "" {
		opts.Severity = domain.SeverityLow
	}
	if !domain.ValidSeverity(opts.Severity) {
		return domain.Consultation{}, errors.New("invalid severity")
	}
	if err := e.Auth.RequireType(ctx, nil, opts.PatientID, domain.UserTypePatient); err != nil {
		return domain.Consultation{}, err
	}
	if _, err := e.Repo.GetSpeciality(ctx, opts.SpecialityID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Consultation{}, fmt.Errorf("invalid speciality %d", opts.SpecialityID)
		}
		return domain.Consultation{}, err
	}

	c := domain.Consultation{
		Date:         opts.Date,
		Title:        opts.Title,
		Description:  opts.Description,
		Severity:     opts.Severity,
		PatientID:    opts.PatientID,
		SpecialityID: opts.SpecialityID,
		Status:       domain.StatusPending,
		CreatedAt:    e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	c.ID, err = e.Repo.InsertConsultation(ctx, tx, c)
	if err != nil {
		return domain.Consultation{}, fmt.Errorf("insert consultation: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ConsultationCreated, "consultation", actorID(c.ID), actorID(opts.PatientID), events.EventPayload{
		"speciality_id": c.SpecialityID,
		"severity":      c.Severity,
	}); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	return c, nil
}

// FindBooking looks up a consultation by exact date and patient. Duplicate
// booking per (date, patient) is a lookup concern only, never a constraint.
func (e Engine) FindBooking(ctx context.Context, date string, patientID int64) (domain.Consultation, error) {
	return e.Repo.GetConsultationByDateAndPatient(ctx, date, patientID)
}

// ListUnassigned returns the pool of pending consultations matching the
// doctor's specialties. An empty pool is reported as not found so callers
// can tell "no work" apart from a working pool.
func (e Engine) ListUnassigned(ctx context.Context, doctorID int64, f repo.UnassignedFilters) ([]domain.UnassignedConsultation, error) {
	if err := e.Auth.RequireType(ctx, nil, doctorID, domain.UserTypeDoctor); err != nil {
		return nil, err
	}
	ids, err := e.Repo.ListUserSpecialities(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	rows, err := e.Repo.ListUnassigned(ctx, ids, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no unassigned consultations: %w", repo.ErrNotFound)
	}
	return rows, nil
}

// Assign records the doctor on the consultation. The doctor must exist, be
// doctor-typed and be registered for the consultation's specialty.
// Re-assignment overwrites the previous doctor, last writer wins.
func (e Engine) Assign(ctx context.Context, consultationID, doctorID int64) (domain.Consultation, error) {
	if _, err := e.Repo.GetDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Consultation{}, fmt.Errorf("doctor %d: %w", doctorID, repo.ErrNotFound)
		}
		return domain.Consultation{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	c, err := e.Repo.GetConsultationTx(ctx, tx, consultationID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if c.Status != domain.StatusPending {
		return domain.Consultation{}, ConflictError{Reason: "consultation is " + c.Status}
	}
	ok, err := e.Auth.DoctorHasSpeciality(ctx, tx, doctorID, c.SpecialityID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if !ok {
		return domain.Consultation{}, fmt.Errorf("invalid assignment: doctor %d is not registered for speciality %d", doctorID, c.SpecialityID)
	}
	n, err := e.Repo.SetConsultationDoctor(ctx, tx, consultationID, doctorID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if n == 0 {
		return domain.Consultation{}, repo.ErrNotFound
	}
	payload := events.EventPayload{"doctor_id": doctorID}
	if c.DoctorID != nil {
		payload["previous_doctor_id"] = *c.DoctorID
	}
	if err := e.Events.Append(ctx, tx, events.ConsultationAssigned, "consultation", actorID(c.ID), actorID(doctorID), payload); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	c.DoctorID = &doctorID
	return c, nil
}

// ListOptions carry the optional filters and sort shared by the projection
// queries.
type ListOptions struct {
	Title          string
	Severity       string
	PatientName    string
	DoctorName     string
	SpecialityName string
	StartDate      string
	EndDate        string
	SortBy         string
	SortOrder      string
}

func (o ListOptions) query() repo.ConsultationQuery {
	return repo.ConsultationQuery{
		Title:          o.Title,
		Severity:       o.Severity,
		PatientName:    o.PatientName,
		DoctorName:     o.DoctorName,
		SpecialityName: o.SpecialityName,
		StartDate:      o.StartDate,
		EndDate:        o.EndDate,
		SortBy:         o.SortBy,
		SortOrder:      o.SortOrder,
	}
}

func (e Engine) scopeQuery(ctx context.Context, q *repo.ConsultationQuery, userID int64, userType string) (bool, error) {
	switch userType {
	case domain.UserTypePatient:
		q.PatientID = userID
		return true, nil
	case domain.UserTypeDoctor:
		ids, err := e.Repo.ListUserSpecialities(ctx, userID)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return false, nil
		}
		q.SpecialityIDs = ids
		return true, nil
	default:
		return false, errors.New("invalid user_type")
	}
}

// ListForPatient returns the patient's consultations, newest bookings last.
func (e Engine) ListForPatient(ctx context.Context, patientID int64, opts ListOptions) ([]domain.ConsultationView, error) {
	q := opts.query()
	q.PatientID = patientID
	return e.Repo.ListConsultationViews(ctx, q)
}

// ListForDoctor returns consultations in the doctor's specialties.
func (e Engine) ListForDoctor(ctx context.Context, doctorID int64, opts ListOptions) ([]domain.ConsultationView, error) {
	q := opts.query()
	ok, err := e.scopeQuery(ctx, &q, doctorID, domain.UserTypeDoctor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.Repo.ListConsultationViews(ctx, q)
}

// ListFinished returns completed consultations within the caller's scope,
// most recent first.
func (e Engine) ListFinished(ctx context.Context, userID int64, userType string, opts ListOptions) ([]domain.ConsultationView, error) {
	q := opts.query()
	ok, err := e.scopeQuery(ctx, &q, userID, userType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	q.Status = domain.StatusCompleted
	q.DefaultSortBy = "date"
	q.DefaultSortOrder = "desc"
	return e.Repo.ListConsultationViews(ctx, q)
}

// ListFuture returns pending consultations dated after now within the
// caller's scope, soonest first.
func (e Engine) ListFuture(ctx context.Context, userID int64, userType string, opts ListOptions) ([]domain.ConsultationView, error) {
	q := opts.query()
	ok, err := e.scopeQuery(ctx, &q, userID, userType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	q.Status = domain.StatusPending
	q.FutureFrom = e.now().UTC().Format(time.RFC3339)
	q.DefaultSortBy = "date"
	q.DefaultSortOrder = "asc"
	return e.Repo.ListConsultationViews(ctx, q)
}

// GetForPatient returns the detail view when the patient owns the
// consultation.
func (e Engine) GetForPatient(ctx context.Context, consultationID, patientID int64) (domain.ConsultationView, error) {
	return e.Repo.GetConsultationViewForPatient(ctx, consultationID, patientID)
}

// GetForDoctor returns the detail view when the consultation is assigned to
// the doctor.
func (e Engine) GetForDoctor(ctx context.Context, consultationID, doctorID int64) (domain.ConsultationView, error) {
	return e.Repo.GetConsultationViewForDoctor(ctx, consultationID, doctorID)
}

// Cancel forces the consultation to cancelled. Calling it on an already
// cancelled consultation is a no-op.
func (e Engine) Cancel(ctx context.Context, consultationID, patientID int64) (domain.Consultation, error) {
	ok, err := e.Auth.OwnsConsultation(ctx, nil, consultationID, patientID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if !ok {
		return domain.Consultation{}, fmt.Errorf("consultation %d: %w", consultationID, repo.ErrNotFound)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	c, err := e.Repo.GetConsultationTx(ctx, tx, consultationID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if c.Status == domain.StatusCancelled {
		return c, nil
	}
	if _, err := e.Repo.SetConsultationStatus(ctx, tx, consultationID, domain.StatusCancelled); err != nil {
		return domain.Consultation{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ConsultationCancelled, "consultation", actorID(c.ID), actorID(patientID), events.EventPayload{
		"previous_status": c.Status,
	}); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	c.Status = domain.StatusCancelled
	return c, nil
}

// ConsultationUpdateOptions patch a pending consultation. Nil fields are
// left untouched.
type ConsultationUpdateOptions struct {
	ConsultationID int64
	PatientID      int64
	Title          *string
	Description    *string
	Severity       *string
}

func (e Engine) UpdateConsultation(ctx context.Context, opts ConsultationUpdateOptions) (domain.Consultation, error) {
	if opts.Title != nil && *opts.Title == "" {
		return domain.Consultation{}, errors.New("title is required")
	}
	if opts.Severity != nil && !domain.ValidSeverity(*opts.Severity) {
		return domain.Consultation{}, errors.New("invalid severity")
	}
	ok, err := e.Auth.OwnsConsultation(ctx, nil, opts.ConsultationID, opts.PatientID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if !ok {
		return domain.Consultation{}, fmt.Errorf("consultation %d: %w", opts.ConsultationID, repo.ErrNotFound)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	c, err := e.Repo.GetConsultationTx(ctx, tx, opts.ConsultationID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if c.Status != domain.StatusPending {
		return domain.Consultation{}, ConflictError{Reason: "consultation is " + c.Status}
	}
	if err := e.Repo.UpdateConsultationFields(ctx, tx, opts.ConsultationID, opts.Title, opts.Description, opts.Severity); err != nil {
		return domain.Consultation{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ConsultationUpdated, "consultation", actorID(c.ID), actorID(opts.PatientID), nil); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	if opts.Title != nil {
		c.Title = *opts.Title
	}
	if opts.Description != nil {
		c.Description = *opts.Description
	}
	if opts.Severity != nil {
		c.Severity = *opts.Severity
	}
	return c, nil
}

// ResponseCreateOptions are parameters for answering a consultation.
type ResponseCreateOptions struct {
	ConsultationID int64
	DoctorID       int64
	Content        string
}

// CreateResponse records the assigned doctor's answer and completes the
// consultation in the same transaction.
func (e Engine) CreateResponse(ctx context.Context, opts ResponseCreateOptions) (domain.Response, error) {
	if opts.Content == "" {
		return domain.Response{}, errors.New("content is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Response{}, err
	}
	defer tx.Rollback()
	c, err := e.Repo.GetConsultationTx(ctx, tx, opts.ConsultationID)
	if err != nil {
		return domain.Response{}, err
	}
	if c.Status != domain.StatusPending {
		return domain.Response{}, ConflictError{Reason: "consultation is " + c.Status}
	}
	if c.DoctorID == nil || *c.DoctorID != opts.DoctorID {
		return domain.Response{}, auth.ForbiddenError{Reason: "consultation is not assigned to you"}
	}
	resp := domain.Response{
		Content:        opts.Content,
		ConsultationID: opts.ConsultationID,
		DoctorID:       opts.DoctorID,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	resp.ID, err = e.Repo.InsertResponse(ctx, tx, resp)
	if err != nil {
		return domain.Response{}, fmt.Errorf("insert response: %w", err)
	}
	if _, err := e.Repo.SetConsultationStatus(ctx, tx, opts.ConsultationID, domain.StatusCompleted); err != nil {
		return domain.Response{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ResponseCreated, "response", actorID(resp.ID), actorID(opts.DoctorID), events.EventPayload{
		"consultation_id": opts.ConsultationID,
	}); err != nil {
		return domain.Response{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ConsultationCompleted, "consultation", actorID(c.ID), actorID(opts.DoctorID), nil); err != nil {
		return domain.Response{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Response{}, err
	}
	return resp, nil
}

// RateResponse sets the rating exactly once. The authoring doctor can never
// rate their own response.
func (e Engine) RateResponse(ctx context.Context, responseID, raterID int64, rating int) (domain.Response, error) {
	if rating < 1 || rating > 5 {
		return domain.Response{}, errors.New("invalid rating: 1 to 5 expected")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Response{}, err
	}
	defer tx.Rollback()
	resp, err := e.Repo.GetResponseTx(ctx, tx, responseID)
	if err != nil {
		return domain.Response{}, err
	}
	if resp.DoctorID == raterID {
		return domain.Response{}, ConflictError{Reason: "self-rating forbidden"}
	}
	if resp.Rating != nil {
		return domain.Response{}, ConflictError{Reason: "already rated"}
	}
	if err := e.Repo.SetResponseRating(ctx, tx, responseID, rating); err != nil {
		return domain.Response{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ResponseRated, "response", actorID(resp.ID), actorID(raterID), events.EventPayload{
		"rating": rating,
	}); err != nil {
		return domain.Response{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Response{}, err
	}
	resp.Rating = &rating
	return resp, nil
}

// AttachConsultationFile records file metadata against a consultation the
// patient owns.
func (e Engine) AttachConsultationFile(ctx context.Context, consultationID, patientID int64, fileName, filePath string) (domain.ConsultationFile, error) {
	if fileName == "" || filePath == "" {
		return domain.ConsultationFile{}, errors.New("file_name and file_path are required")
	}
	ok, err := e.Auth.OwnsConsultation(ctx, nil, consultationID, patientID)
	if err != nil {
		return domain.ConsultationFile{}, err
	}
	if !ok {
		return domain.ConsultationFile{}, fmt.Errorf("consultation %d: %w", consultationID, repo.ErrNotFound)
	}
	f := domain.ConsultationFile{
		ConsultationID: consultationID,
		FileName:       fileName,
		FilePath:       filePath,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ConsultationFile{}, err
	}
	defer tx.Rollback()
	f.ID, err = e.Repo.InsertConsultationFile(ctx, tx, f)
	if err != nil {
		return domain.ConsultationFile{}, err
	}
	if err := e.Events.Append(ctx, tx, events.FileAttached, "consultation", actorID(consultationID), actorID(patientID), events.EventPayload{
		"file_name": fileName,
	}); err != nil {
		return domain.ConsultationFile{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ConsultationFile{}, err
	}
	return f, nil
}

// RemoveConsultationFile deletes file metadata by consultation and name.
func (e Engine) RemoveConsultationFile(ctx context.Context, consultationID, patientID int64, fileName string) error {
	ok, err := e.Auth.OwnsConsultation(ctx, nil, consultationID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("consultation %d: %w", consultationID, repo.ErrNotFound)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteConsultationFileByName(ctx, tx, consultationID, fileName); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.FileRemoved, "consultation", actorID(consultationID), actorID(patientID), events.EventPayload{
		"file_name": fileName,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// AttachResponseFile records file metadata against a response authored by
// the doctor.
func (e Engine) AttachResponseFile(ctx context.Context, responseID, doctorID int64, fileName, filePath string) (domain.ResponseFile, error) {
	if fileName == "" || filePath == "" {
		return domain.ResponseFile{}, errors.New("file_name and file_path are required")
	}
	resp, err := e.Repo.GetResponse(ctx, responseID)
	if err != nil {
		return domain.ResponseFile{}, err
	}
	if resp.DoctorID != doctorID {
		return domain.ResponseFile{}, auth.ForbiddenError{Reason: "response is not yours"}
	}
	f := domain.ResponseFile{
		ResponseID: responseID,
		FileName:   fileName,
		FilePath:   filePath,
		CreatedAt:  e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ResponseFile{}, err
	}
	defer tx.Rollback()
	f.ID, err = e.Repo.InsertResponseFile(ctx, tx, f)
	if err != nil {
		return domain.ResponseFile{}, err
	}
	if err := e.Events.Append(ctx, tx, events.FileAttached, "response", actorID(responseID), actorID(doctorID), events.EventPayload{
		"file_name": fileName,
	}); err != nil {
		return domain.ResponseFile{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ResponseFile{}, err
	}
	return f, nil
}

// CreateAPIKey issues a new API key for the user and returns the plaintext
// once. Only the hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID int64, name string) (string, domain.APIKey, error) {
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return "", domain.APIKey{}, err
	}
	raw := "tc_" + uuid.NewString()
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return "", domain.APIKey{}, err
	}
	return raw, key, nil
}
