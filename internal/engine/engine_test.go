package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"teleconsult/internal/config"
	"teleconsult/internal/db"
	"teleconsult/internal/domain"
	"teleconsult/internal/engine"
	"teleconsult/internal/engine/auth"
	"teleconsult/internal/mailer"
	"teleconsult/internal/migrate"
	"teleconsult/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("Test Clinic")
	eng := engine.New(conn, cfg, mailer.Noop{})
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if err := eng.Repo.SeedSpecialities(ctx, cfg.Specialities.Catalog); err != nil {
		t.Fatalf("seed specialities: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) patient(t *testing.T, userName string) domain.User {
	t.Helper()
	u, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{
		FirstName: "Pat",
		LastName:  userName,
		Email:     userName + "@example.com",
		Password:  "secret-pass",
		UserType:  domain.UserTypePatient,
		UserName:  userName,
	})
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return u
}

func (env testEnv) doctor(t *testing.T, userName string, specialityIDs ...int64) domain.User {
	t.Helper()
	u, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{
		FirstName:     "Doc",
		LastName:      userName,
		Email:         userName + "@example.com",
		Password:      "secret-pass",
		UserType:      domain.UserTypeDoctor,
		UserName:      userName,
		SpecialityIDs: specialityIDs,
		DoctorCode:    env.Engine.Config.Registration.DoctorCode,
	})
	if err != nil {
		t.Fatalf("register doctor: %v", err)
	}
	return u
}

func (env testEnv) speciality(t *testing.T, name string) domain.Speciality {
	t.Helper()
	s, err := env.Engine.Repo.GetSpecialityByName(env.Ctx, name)
	if err != nil {
		t.Fatalf("speciality %s: %v", name, err)
	}
	return s
}

func (env testEnv) consultation(t *testing.T, patientID, specialityID int64, title string) domain.Consultation {
	t.Helper()
	c, err := env.Engine.CreateConsultation(env.Ctx, engine.ConsultationCreateOptions{
		PatientID:    patientID,
		Date:         "2026-02-01T10:00:00Z",
		Title:        title,
		Severity:     domain.SeverityHigh,
		SpecialityID: specialityID,
	})
	if err != nil {
		t.Fatalf("create consultation: %v", err)
	}
	return c
}

func TestUnassignedPoolLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	doctor := env.doctor(t, "drluis", cardio.ID)

	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	pool, err := env.Engine.ListUnassigned(env.Ctx, doctor.ID, repo.UnassignedFilters{})
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != c.ID {
		t.Fatalf("expected consultation %d in pool, got %+v", c.ID, pool)
	}

	if _, err := env.Engine.Assign(env.Ctx, c.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Assigned consultations leave the pool; an empty pool reads as not found.
	_, err = env.Engine.ListUnassigned(env.Ctx, doctor.ID, repo.UnassignedFilters{})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for empty pool, got %v", err)
	}
}

func TestUnassignedPoolFilters(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	doctor := env.doctor(t, "drluis", cardio.ID)

	env.consultation(t, patient.ID, cardio.ID, "Chest pain")
	env.consultation(t, patient.ID, cardio.ID, "Palpitations")

	pool, err := env.Engine.ListUnassigned(env.Ctx, doctor.ID, repo.UnassignedFilters{Title: "chest"})
	if err != nil {
		t.Fatalf("list unassigned filtered: %v", err)
	}
	if len(pool) != 1 || pool[0].Title != "Chest pain" {
		t.Fatalf("title filter failed, got %+v", pool)
	}
}

func TestAssignRequiresDoctorTypedUser(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	other := env.patient(t, "bob")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	if _, err := env.Engine.Assign(env.Ctx, c.ID, other.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("patient-typed assignee must read as not found, got %v", err)
	}
	if _, err := env.Engine.Assign(env.Ctx, c.ID, 9999); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown assignee must read as not found, got %v", err)
	}
}

func TestAssignEnforcesSpecialtyMatch(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	derma := env.speciality(t, "Dermatología")
	patient := env.patient(t, "ana")
	dermatologist := env.doctor(t, "drskin", derma.ID)
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	_, err := env.Engine.Assign(env.Ctx, c.ID, dermatologist.ID)
	if err == nil {
		t.Fatal("expected specialty mismatch to fail")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("mismatch should read as invalid input, got %v", err)
	}
}

func TestAssignLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	first := env.doctor(t, "drone", cardio.ID)
	second := env.doctor(t, "drtwo", cardio.ID)
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	if _, err := env.Engine.Assign(env.Ctx, c.ID, first.ID); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	got, err := env.Engine.Assign(env.Ctx, c.ID, second.ID)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if got.DoctorID == nil || *got.DoctorID != second.ID {
		t.Fatalf("expected doctor %d recorded, got %+v", second.ID, got.DoctorID)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	got, err := env.Engine.Cancel(env.Ctx, c.ID, patient.ID)
	if err != nil || got.Status != domain.StatusCancelled {
		t.Fatalf("first cancel: %v status=%s", err, got.Status)
	}
	got, err = env.Engine.Cancel(env.Ctx, c.ID, patient.ID)
	if err != nil || got.Status != domain.StatusCancelled {
		t.Fatalf("second cancel must be a no-op: %v status=%s", err, got.Status)
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	other := env.patient(t, "bob")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	if _, err := env.Engine.Cancel(env.Ctx, c.ID, other.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("foreign consultation must read as not found, got %v", err)
	}
}

func TestResponseCompletesConsultation(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	doctor := env.doctor(t, "drluis", cardio.ID)
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")
	if _, err := env.Engine.Assign(env.Ctx, c.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		ConsultationID: c.ID,
		DoctorID:       doctor.ID,
		Content:        "Rest and schedule an ECG.",
	})
	if err != nil {
		t.Fatalf("create response: %v", err)
	}
	if resp.Rating != nil {
		t.Fatal("new response must be unrated")
	}
	got, err := env.Engine.Repo.GetConsultation(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("get consultation: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}

	// A second response on the completed consultation collides.
	_, err = env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		ConsultationID: c.ID,
		DoctorID:       doctor.ID,
		Content:        "Follow-up.",
	})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestResponseRequiresAssignedDoctor(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	assigned := env.doctor(t, "drone", cardio.ID)
	intruder := env.doctor(t, "drtwo", cardio.ID)
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")
	if _, err := env.Engine.Assign(env.Ctx, c.ID, assigned.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		ConsultationID: c.ID,
		DoctorID:       intruder.ID,
		Content:        "Not my patient.",
	})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func respondedConsultation(t *testing.T, env testEnv) (domain.User, domain.User, domain.Response) {
	t.Helper()
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	doctor := env.doctor(t, "drluis", cardio.ID)
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")
	if _, err := env.Engine.Assign(env.Ctx, c.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		ConsultationID: c.ID,
		DoctorID:       doctor.ID,
		Content:        "Rest and schedule an ECG.",
	})
	if err != nil {
		t.Fatalf("create response: %v", err)
	}
	return patient, doctor, resp
}

func TestRatingSetExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	patient, _, resp := respondedConsultation(t, env)

	got, err := env.Engine.RateResponse(env.Ctx, resp.ID, patient.ID, 3)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got.Rating == nil || *got.Rating != 3 {
		t.Fatalf("expected rating 3, got %+v", got.Rating)
	}

	_, err = env.Engine.RateResponse(env.Ctx, resp.ID, patient.ID, 1)
	var ce engine.ConflictError
	if !errors.As(err, &ce) || ce.Reason != "already rated" {
		t.Fatalf("expected already-rated conflict, got %v", err)
	}
}

func TestSelfRatingForbiddenRegardlessOfState(t *testing.T) {
	env := newTestEnv(t)
	patient, doctor, resp := respondedConsultation(t, env)

	_, err := env.Engine.RateResponse(env.Ctx, resp.ID, doctor.ID, 5)
	var ce engine.ConflictError
	if !errors.As(err, &ce) || ce.Reason != "self-rating forbidden" {
		t.Fatalf("expected self-rating conflict, got %v", err)
	}

	// Rating unaffected; the patient can still rate.
	if _, err := env.Engine.RateResponse(env.Ctx, resp.ID, patient.ID, 4); err != nil {
		t.Fatalf("patient rate after self-rating attempt: %v", err)
	}
	// And the author is rejected even once rated.
	_, err = env.Engine.RateResponse(env.Ctx, resp.ID, doctor.ID, 5)
	if !errors.As(err, &ce) || ce.Reason != "self-rating forbidden" {
		t.Fatalf("expected self-rating conflict after rating, got %v", err)
	}
}

func TestRateResponseValidation(t *testing.T) {
	env := newTestEnv(t)
	patient, _, resp := respondedConsultation(t, env)

	if _, err := env.Engine.RateResponse(env.Ctx, resp.ID, patient.ID, 6); err == nil {
		t.Fatal("expected out-of-range rating rejection")
	}
	if _, err := env.Engine.RateResponse(env.Ctx, 9999, patient.ID, 3); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown response must read as not found, got %v", err)
	}
}

func TestListFinishedAndFuture(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	doctor := env.doctor(t, "drluis", cardio.ID)

	done := env.consultation(t, patient.ID, cardio.ID, "Chest pain")
	if _, err := env.Engine.Assign(env.Ctx, done.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		ConsultationID: done.ID, DoctorID: doctor.ID, Content: "ECG ordered.",
	}); err != nil {
		t.Fatalf("respond: %v", err)
	}
	upcoming := env.consultation(t, patient.ID, cardio.ID, "Follow-up")

	finished, err := env.Engine.ListFinished(env.Ctx, patient.ID, domain.UserTypePatient, engine.ListOptions{})
	if err != nil {
		t.Fatalf("list finished: %v", err)
	}
	if len(finished) != 1 || finished[0].ID != done.ID {
		t.Fatalf("expected finished [%d], got %+v", done.ID, finished)
	}

	future, err := env.Engine.ListFuture(env.Ctx, patient.ID, domain.UserTypePatient, engine.ListOptions{})
	if err != nil {
		t.Fatalf("list future: %v", err)
	}
	if len(future) != 1 || future[0].ID != upcoming.ID {
		t.Fatalf("expected future [%d], got %+v", upcoming.ID, future)
	}
}

func TestListForDoctorScopedBySpecialties(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	derma := env.speciality(t, "Dermatología")
	patient := env.patient(t, "ana")
	cardiologist := env.doctor(t, "drheart", cardio.ID)

	inScope := env.consultation(t, patient.ID, cardio.ID, "Chest pain")
	env.consultation(t, patient.ID, derma.ID, "Rash")

	items, err := env.Engine.ListForDoctor(env.Ctx, cardiologist.ID, engine.ListOptions{})
	if err != nil {
		t.Fatalf("list for doctor: %v", err)
	}
	if len(items) != 1 || items[0].ID != inScope.ID {
		t.Fatalf("expected [%d], got %+v", inScope.ID, items)
	}
}

func TestUpdateConsultationOnlyWhilePending(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	title := "Chest pain at rest"
	got, err := env.Engine.UpdateConsultation(env.Ctx, engine.ConsultationUpdateOptions{
		ConsultationID: c.ID, PatientID: patient.ID, Title: &title,
	})
	if err != nil || got.Title != title {
		t.Fatalf("update: %v title=%s", err, got.Title)
	}

	if _, err := env.Engine.Cancel(env.Ctx, c.ID, patient.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = env.Engine.UpdateConsultation(env.Ctx, engine.ConsultationUpdateOptions{
		ConsultationID: c.ID, PatientID: patient.ID, Title: &title,
	})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict on cancelled consultation, got %v", err)
	}
}

func TestCreateConsultationValidation(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")

	cases := []struct {
		name string
		opts engine.ConsultationCreateOptions
	}{
		{"missing title", engine.ConsultationCreateOptions{PatientID: patient.ID, Date: "2026-02-01T10:00:00Z", SpecialityID: cardio.ID}},
		{"bad date", engine.ConsultationCreateOptions{PatientID: patient.ID, Date: "tomorrow", Title: "x", SpecialityID: cardio.ID}},
		{"bad severity", engine.ConsultationCreateOptions{PatientID: patient.ID, Date: "2026-02-01T10:00:00Z", Title: "x", Severity: "urgent", SpecialityID: cardio.ID}},
		{"unknown speciality", engine.ConsultationCreateOptions{PatientID: patient.ID, Date: "2026-02-01T10:00:00Z", Title: "x", SpecialityID: 999}},
	}
	for _, tc := range cases {
		if _, err := env.Engine.CreateConsultation(env.Ctx, tc.opts); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	// Severity defaults to low when omitted.
	c, err := env.Engine.CreateConsultation(env.Ctx, engine.ConsultationCreateOptions{
		PatientID: patient.ID, Date: "2026-02-01T10:00:00Z", Title: "x", SpecialityID: cardio.ID,
	})
	if err != nil || c.Severity != domain.SeverityLow {
		t.Fatalf("default severity: %v severity=%s", err, c.Severity)
	}
}

func TestRegisterUserRules(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	env.patient(t, "ana")

	// Duplicate email collides.
	_, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{
		FirstName: "Ana", Email: "ana@example.com", Password: "secret-pass",
		UserType: domain.UserTypePatient, UserName: "ana2",
	})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected email conflict, got %v", err)
	}

	// Doctors need the registration code.
	_, err = env.Engine.RegisterUser(env.Ctx, engine.RegisterUserOptions{
		FirstName: "Luis", Email: "luis@example.com", Password: "secret-pass",
		UserType: domain.UserTypeDoctor, UserName: "drluis",
		SpecialityIDs: []int64{cardio.ID}, DoctorCode: "wrong",
	})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for bad doctor code, got %v", err)
	}
}

func TestFindBookingIsLookupOnly(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	got, err := env.Engine.FindBooking(env.Ctx, c.Date, patient.ID)
	if err != nil || got.ID != c.ID {
		t.Fatalf("lookup: %v got=%+v", err, got)
	}

	// Same slot can be booked again: a convenience lookup, not a constraint.
	if _, err := env.Engine.CreateConsultation(env.Ctx, engine.ConsultationCreateOptions{
		PatientID: patient.ID, Date: c.Date, Title: "Second opinion", SpecialityID: cardio.ID,
	}); err != nil {
		t.Fatalf("duplicate slot must be allowed: %v", err)
	}
}

func TestConsultationFiles(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	f, err := env.Engine.AttachConsultationFile(env.Ctx, c.ID, patient.ID, "ecg.pdf", "/files/ecg.pdf")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if f.ID == 0 {
		t.Fatal("expected file id")
	}
	files, err := env.Engine.Repo.ListConsultationFiles(env.Ctx, c.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("list files: %v %+v", err, files)
	}
	if err := env.Engine.RemoveConsultationFile(env.Ctx, c.ID, patient.ID, "ecg.pdf"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.Engine.RemoveConsultationFile(env.Ctx, c.ID, patient.ID, "ecg.pdf"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second removal must read as not found, got %v", err)
	}
}

func TestListDeduplicatesJoinRows(t *testing.T) {
	env := newTestEnv(t)
	cardio := env.speciality(t, "Cardiología")
	patient := env.patient(t, "ana")
	c := env.consultation(t, patient.ID, cardio.ID, "Chest pain")

	// Two attachments fan the join out to multiple rows per consultation.
	if _, err := env.Engine.AttachConsultationFile(env.Ctx, c.ID, patient.ID, "ecg.pdf", "/files/ecg.pdf"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := env.Engine.AttachConsultationFile(env.Ctx, c.ID, patient.ID, "xray.png", "/files/xray.png"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	items, err := env.Engine.ListForPatient(env.Ctx, patient.ID, engine.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one row after dedup, got %d", len(items))
	}
	if items[0].ConsultationFileName == nil || *items[0].ConsultationFileName != "ecg.pdf" {
		t.Fatalf("expected first-seen attachment ecg.pdf, got %+v", items[0].ConsultationFileName)
	}
}
