package teleconsultsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Teleconsult HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Consultation is the API consultation model.
type Consultation struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Severity     string `json:"severity"`
	PatientID    int64  `json:"patient_id"`
	SpecialityID int64  `json:"speciality_id"`
	DoctorID     *int64 `json:"doctor_id,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

// ConsultationView is the joined projection returned by list and detail
// queries.
type ConsultationView struct {
	ID             int64   `json:"id"`
	Date           string  `json:"date"`
	Title          string  `json:"title"`
	Severity       string  `json:"severity"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status"`
	PatientName    string  `json:"patient_name"`
	DoctorName     *string `json:"doctor_name,omitempty"`
	SpecialityName string  `json:"speciality_name"`
	Rating         *int    `json:"rating,omitempty"`
}

// UnassignedConsultation is a pool entry for doctors.
type UnassignedConsultation struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	SpecialityID   int64  `json:"speciality_id"`
	SpecialityName string `json:"speciality_name"`
	PatientID      int64  `json:"patient_id"`
	PatientName    string `json:"patient_name"`
}

// Response is a doctor's answer to a consultation.
type Response struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	ConsultationID int64  `json:"consultation_id"`
	DoctorID       int64  `json:"doctor_id"`
	Rating         *int   `json:"rating,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// Speciality is a catalog entry.
type Speciality struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the API user model.
type User struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name,omitempty"`
	Email         string  `json:"email"`
	UserType      string  `json:"user_type"`
	UserName      string  `json:"user_name"`
	SpecialityIDs []int64 `json:"speciality_ids,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges credentials for a bearer token and stores it on the
// client for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "users/login",
		map[string]any{"email": email, "password": password}, &resp)
	if err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// CreateConsultationOptions are the fields for CreateConsultation.
type CreateConsultationOptions struct {
	Date         string `json:"date"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Severity     string `json:"severity,omitempty"`
	SpecialityID int64  `json:"speciality_id"`
}

// CreateConsultation opens a consultation for the authenticated patient.
func (c *Client) CreateConsultation(ctx context.Context, opts CreateConsultationOptions) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, "consultations", opts, &resp)
	return resp, err
}

// ListConsultations lists consultations in the caller's scope.
func (c *Client) ListConsultations(ctx context.Context) ([]ConsultationView, error) {
	var resp []ConsultationView
	err := c.do(ctx, http.MethodGet, "consultations", nil, &resp)
	return resp, err
}

// ListUnassigned returns the unassigned pool for the authenticated doctor.
func (c *Client) ListUnassigned(ctx context.Context) ([]UnassignedConsultation, error) {
	var resp []UnassignedConsultation
	err := c.do(ctx, http.MethodGet, "consultations/unassigned", nil, &resp)
	return resp, err
}

// ListFinished lists completed consultations in the caller's scope.
func (c *Client) ListFinished(ctx context.Context) ([]ConsultationView, error) {
	var resp []ConsultationView
	err := c.do(ctx, http.MethodGet, "consultations/finished", nil, &resp)
	return resp, err
}

// ListFuture lists upcoming pending consultations in the caller's scope.
func (c *Client) ListFuture(ctx context.Context) ([]ConsultationView, error) {
	var resp []ConsultationView
	err := c.do(ctx, http.MethodGet, "consultations/future", nil, &resp)
	return resp, err
}

// GetConsultation returns the detail view.
func (c *Client) GetConsultation(ctx context.Context, id int64) (ConsultationView, error) {
	var resp ConsultationView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("consultations/%d", id), nil, &resp)
	return resp, err
}

// Assign takes the consultation as the authenticated doctor.
func (c *Client) Assign(ctx context.Context, consultationID int64) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("consultations/%d/assign", consultationID), nil, &resp)
	return resp, err
}

// Cancel cancels the consultation.
func (c *Client) Cancel(ctx context.Context, consultationID int64) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("consultations/%d/cancel", consultationID), nil, &resp)
	return resp, err
}

// Respond records a response and completes the consultation.
func (c *Client) Respond(ctx context.Context, consultationID int64, content string) (Response, error) {
	var resp Response
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("consultations/%d/responses", consultationID),
		map[string]any{"content": content}, &resp)
	return resp, err
}

// RateResponse sets the one-time rating.
func (c *Client) RateResponse(ctx context.Context, responseID int64, rating int) (Response, error) {
	var resp Response
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("responses/%d/rating", responseID),
		map[string]any{"rating": rating}, &resp)
	return resp, err
}

// ListSpecialities returns the specialty catalog.
func (c *Client) ListSpecialities(ctx context.Context) ([]Speciality, error) {
	var resp []Speciality
	err := c.do(ctx, http.MethodGet, "specialities", nil, &resp)
	return resp, err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// LookupBooking finds the patient's consultation at an exact date.
func (c *Client) LookupBooking(ctx context.Context, date string) (Consultation, error) {
	var resp Consultation
	endpoint := "consultations/booking?date=" + url.QueryEscape(date)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
