package server

import (
	"teleconsult/internal/domain"
)

// Request payloads

type RegisterUserRequest struct {
	FirstName     string  `json:"first_name"`
	LastName      *string `json:"last_name,omitempty"`
	Email         string  `json:"email" format:"email"`
	Password      string  `json:"password"`
	UserType      string  `json:"user_type" enum:"patient,doctor"`
	UserName      string  `json:"user_name"`
	Biography     *string `json:"biography,omitempty"`
	Avatar        *string `json:"avatar,omitempty"`
	Experience    *int    `json:"experience,omitempty"`
	SpecialityIDs []int64 `json:"speciality_ids,omitempty"`
	DoctorCode    *string `json:"doctor_code,omitempty"`
}

type ConfirmUserRequest struct {
	Email string `json:"email" format:"email"`
	Code  int    `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type CreateConsultationRequest struct {
	Date         string  `json:"date" format:"date-time"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	Severity     *string `json:"severity,omitempty" enum:"high,medium,low"`
	SpecialityID int64   `json:"speciality_id"`
}

type UpdateConsultationRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Severity    *string `json:"severity,omitempty" enum:"high,medium,low"`
}

type CreateResponseRequest struct {
	Content string `json:"content"`
}

type RateResponseRequest struct {
	Rating int `json:"rating" minimum:"1" maximum:"5"`
}

type AttachFileRequest struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}

// Response payloads

type UserResponse struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name,omitempty"`
	Email         string  `json:"email"`
	UserType      string  `json:"user_type"`
	UserName      string  `json:"user_name"`
	Biography     string  `json:"biography,omitempty"`
	Avatar        *string `json:"avatar,omitempty"`
	Experience    *int    `json:"experience,omitempty"`
	SpecialityIDs []int64 `json:"speciality_ids,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		UserType:      u.UserType,
		UserName:      u.UserName,
		Biography:     u.Biography,
		Avatar:        u.Avatar,
		Experience:    u.Experience,
		SpecialityIDs: u.SpecialityIDs,
		CreatedAt:     u.CreatedAt,
	}
}

type ConsultationResponse struct {
	ID           int64  `json:"id"`
	Date         string `json:"date" format:"date-time"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Severity     string `json:"severity"`
	PatientID    int64  `json:"patient_id"`
	SpecialityID int64  `json:"speciality_id"`
	DoctorID     *int64 `json:"doctor_id,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

func consultationResponse(c domain.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:           c.ID,
		Date:         c.Date,
		Title:        c.Title,
		Description:  c.Description,
		Severity:     c.Severity,
		PatientID:    c.PatientID,
		SpecialityID: c.SpecialityID,
		DoctorID:     c.DoctorID,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
	}
}

type ConsultationViewResponse struct {
	ID                   int64   `json:"id"`
	Date                 string  `json:"date" format:"date-time"`
	Title                string  `json:"title"`
	Severity             string  `json:"severity"`
	Description          string  `json:"description,omitempty"`
	Status               string  `json:"status"`
	PatientName          string  `json:"patient_name"`
	PatientAvatar        *string `json:"patient_avatar,omitempty"`
	PatientEmail         string  `json:"patient_email,omitempty"`
	DoctorName           *string `json:"doctor_name,omitempty"`
	DoctorAvatar         *string `json:"doctor_avatar,omitempty"`
	SpecialityName       string  `json:"speciality_name"`
	Rating               *int    `json:"rating,omitempty"`
	ConsultationFileName *string `json:"consultation_file_name,omitempty"`
	ConsultationFilePath *string `json:"consultation_file_path,omitempty"`
	ResponseFileName     *string `json:"response_file_name,omitempty"`
	ResponseFilePath     *string `json:"response_file_path,omitempty"`
}

func consultationViewResponse(v domain.ConsultationView) ConsultationViewResponse {
	return ConsultationViewResponse{
		ID:                   v.ID,
		Date:                 v.Date,
		Title:                v.Title,
		Severity:             v.Severity,
		Description:          v.Description,
		Status:               v.Status,
		PatientName:          v.PatientName,
		PatientAvatar:        v.PatientAvatar,
		PatientEmail:         v.PatientEmail,
		DoctorName:           v.DoctorName,
		DoctorAvatar:         v.DoctorAvatar,
		SpecialityName:       v.SpecialityName,
		Rating:               v.Rating,
		ConsultationFileName: v.ConsultationFileName,
		ConsultationFilePath: v.ConsultationFilePath,
		ResponseFileName:     v.ResponseFileName,
		ResponseFilePath:     v.ResponseFilePath,
	}
}

func mapConsultationViews(items []domain.ConsultationView) []ConsultationViewResponse {
	res := make([]ConsultationViewResponse, 0, len(items))
	for _, v := range items {
		res = append(res, consultationViewResponse(v))
	}
	return res
}

type UnassignedConsultationResponse struct {
	ID             int64   `json:"id"`
	Date           string  `json:"date" format:"date-time"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Severity       string  `json:"severity"`
	SpecialityID   int64   `json:"speciality_id"`
	SpecialityName string  `json:"speciality_name"`
	PatientID      int64   `json:"patient_id"`
	PatientName    string  `json:"patient_name"`
	PatientAvatar  *string `json:"patient_avatar,omitempty"`
}

func mapUnassigned(items []domain.UnassignedConsultation) []UnassignedConsultationResponse {
	res := make([]UnassignedConsultationResponse, 0, len(items))
	for _, u := range items {
		res = append(res, UnassignedConsultationResponse{
			ID:             u.ID,
			Date:           u.Date,
			Title:          u.Title,
			Description:    u.Description,
			Severity:       u.Severity,
			SpecialityID:   u.SpecialityID,
			SpecialityName: u.SpecialityName,
			PatientID:      u.PatientID,
			PatientName:    u.PatientName,
			PatientAvatar:  u.PatientAvatar,
		})
	}
	return res
}

type ResponseResponse struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	ConsultationID int64  `json:"consultation_id"`
	DoctorID       int64  `json:"doctor_id"`
	Rating         *int   `json:"rating,omitempty"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

func responseResponse(r domain.Response) ResponseResponse {
	return ResponseResponse{
		ID:             r.ID,
		Content:        r.Content,
		ConsultationID: r.ConsultationID,
		DoctorID:       r.DoctorID,
		Rating:         r.Rating,
		CreatedAt:      r.CreatedAt,
	}
}

type SpecialityResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func mapSpecialities(items []domain.Speciality) []SpecialityResponse {
	res := make([]SpecialityResponse, 0, len(items))
	for _, s := range items {
		res = append(res, SpecialityResponse{ID: s.ID, Name: s.Name})
	}
	return res
}

type FileResponse struct {
	ID        int64  `json:"id"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

func mapEvents(items []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(items))
	for _, e := range items {
		res = append(res, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return res
}
