package domain

// Consultation statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Severity levels.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// User types.
const (
	UserTypePatient = "patient"
	UserTypeDoctor  = "doctor"
)

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

type Consultation struct {
	ID           int64  `json:"id"`
	Date         string `json:"date" format:"date-time"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Severity     string `json:"severity" enum:"high,medium,low"`
	PatientID    int64  `json:"patient_id"`
	SpecialityID int64  `json:"speciality_id"`
	DoctorID     *int64 `json:"doctor_id,omitempty"`
	Status       string `json:"status" enum:"pending,completed,cancelled"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

// ConsultationView is the joined projection every list/detail query returns:
// one row per consultation with display fields pulled from users,
// specialities, responses and the file tables.
type ConsultationView struct {
	ID             int64   `json:"id"`
	Date           string  `json:"date" format:"date-time"`
	Title          string  `json:"title"`
	Severity       string  `json:"severity" enum:"high,medium,low"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status" enum:"pending,completed,cancelled"`
	PatientName    string  `json:"patient_name,omitempty"`
	PatientAvatar  *string `json:"patient_avatar,omitempty"`
	PatientEmail   string  `json:"patient_email,omitempty"`
	DoctorName     *string `json:"doctor_name,omitempty"`
	DoctorAvatar   *string `json:"doctor_avatar,omitempty"`
	SpecialityName string  `json:"speciality_name"`
	Rating         *int    `json:"rating,omitempty"`

	ConsultationFileName *string `json:"consultation_file_name,omitempty"`
	ConsultationFilePath *string `json:"consultation_file_path,omitempty"`
	ResponseFileName     *string `json:"response_file_name,omitempty"`
	ResponseFilePath     *string `json:"response_file_path,omitempty"`
}

// UnassignedConsultation is the pool row served to doctors: no doctor fields
// by definition, join duplicates collapsed to one representative per id.
type UnassignedConsultation struct {
	ID             int64   `json:"id"`
	Date           string  `json:"date" format:"date-time"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Severity       string  `json:"severity" enum:"high,medium,low"`
	SpecialityID   int64   `json:"speciality_id"`
	SpecialityName string  `json:"speciality_name"`
	PatientID      int64   `json:"patient_id"`
	PatientName    string  `json:"patient_name"`
	PatientAvatar  *string `json:"patient_avatar,omitempty"`
}

type Response struct {
	ID             int64  `json:"id"`
	ConsultationID int64  `json:"consultation_id"`
	DoctorID       int64  `json:"doctor_id"`
	Content        string `json:"content"`
	Rating         *int   `json:"rating,omitempty"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

type Speciality struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type User struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name,omitempty"`
	Email          string  `json:"email"`
	UserName       string  `json:"user_name"`
	UserType       string  `json:"user_type" enum:"patient,doctor"`
	Biography      string  `json:"biography,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
	Experience     *int    `json:"experience,omitempty"`
	PasswordHash   string  `json:"-"`
	ValidationCode *int    `json:"-"`
	SpecialityIDs  []int64 `json:"speciality_ids,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

// FullName renders the display name the way the joined queries do.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ConsultationFile is an attachment metadata row; the bytes live elsewhere.
type ConsultationFile struct {
	ID             int64  `json:"id"`
	ConsultationID int64  `json:"consultation_id"`
	FileName       string `json:"file_name"`
	FilePath       string `json:"file_path"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

type ResponseFile struct {
	ID         int64  `json:"id"`
	ResponseID int64  `json:"response_id"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
