package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"teleconsult/internal/domain"
	"teleconsult/internal/engine"
	"teleconsult/internal/engine/auth"
	"teleconsult/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"consultation 7: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the teleconsultation API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(cfg.Logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		MaxAge:         300,
	}))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Teleconsult API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerUsers(group, cfg.Engine, cfg.Auth.JWTSecret)
	registerMe(group, cfg.Engine)
	registerSpecialities(group, cfg.Engine)
	registerConsultations(group, cfg.Engine)
	registerResponses(group, cfg.Engine)
	registerFiles(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Engine, cfg.Logger)

	return router, nil
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	var ce engine.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return newAPIError(http.StatusServiceUnavailable, "service_unavailable", "storage unavailable", nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "database is locked") || strings.Contains(lowered, "connection"):
		return newAPIError(http.StatusServiceUnavailable, "service_unavailable", "storage unavailable", nil)
	case strings.Contains(lowered, "foreign key constraint"):
		return newAPIError(http.StatusBadRequest, "bad_request", "referenced entity does not exist", nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	openPaths := map[string]bool{
		path.Join("/", basePath, "health"):        true,
		path.Join("/", basePath, "users"):         true,
		path.Join("/", basePath, "users/confirm"): true,
		path.Join("/", basePath, "users/login"):   true,
		path.Join("/", basePath, "specialities"):  true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if openPaths[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Teleconsult API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine, jwtSecret string) {
	huma.Register(api, huma.Operation{
		OperationID: "register-user",
		Method:      http.MethodPost,
		Path:        "/users",
		Summary:     "Register a patient or doctor",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterUserRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		opts := engine.RegisterUserOptions{
			FirstName:     input.Body.FirstName,
			Email:         input.Body.Email,
			Password:      input.Body.Password,
			UserType:      input.Body.UserType,
			UserName:      input.Body.UserName,
			Avatar:        input.Body.Avatar,
			Experience:    input.Body.Experience,
			SpecialityIDs: input.Body.SpecialityIDs,
		}
		if input.Body.LastName != nil {
			opts.LastName = *input.Body.LastName
		}
		if input.Body.Biography != nil {
			opts.Biography = *input.Body.Biography
		}
		if input.Body.DoctorCode != nil {
			opts.DoctorCode = *input.Body.DoctorCode
		}
		u, err := e.RegisterUser(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-user",
		Method:      http.MethodPost,
		Path:        "/users/confirm",
		Summary:     "Confirm a registration with the mailed code",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body ConfirmUserRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := e.ConfirmUser(ctx, input.Body.Email, input.Body.Code); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "confirmed"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/users/login",
		Summary:     "Exchange credentials for a bearer token",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		u, err := e.Authenticate(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		}
		token, err := issueToken(jwtSecret, u)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{Token: token, User: userResponse(u)}}, nil
	})
}

func issueToken(secret string, u domain.User) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
		UserType: u.UserType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUser(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})
}

func registerSpecialities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-specialities",
		Method:      http.MethodGet,
		Path:        "/specialities",
		Summary:     "List specialties",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []SpecialityResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListSpecialities(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []SpecialityResponse `json:"body"`
		}{Body: mapSpecialities(items)}, nil
	})
}

// listQuery carries the shared filter and sort query parameters.
type listQuery struct {
	Title          string `query:"title"`
	Severity       string `query:"severity"`
	PatientName    string `query:"patient_name"`
	DoctorName     string `query:"doctor_name"`
	SpecialityName string `query:"speciality_name"`
	StartDate      string `query:"start_date"`
	EndDate        string `query:"end_date"`
	SortBy         string `query:"sort_by" enum:"id,date,title,severity,status,speciality"`
	SortOrder      string `query:"sort_order" enum:"asc,desc"`
}

func (q listQuery) options() engine.ListOptions {
	return engine.ListOptions{
		Title:          q.Title,
		Severity:       q.Severity,
		PatientName:    q.PatientName,
		DoctorName:     q.DoctorName,
		SpecialityName: q.SpecialityName,
		StartDate:      q.StartDate,
		EndDate:        q.EndDate,
		SortBy:         q.SortBy,
		SortOrder:      q.SortOrder,
	}
}

func listByRole(ctx context.Context, e engine.Engine, p Principal, opts engine.ListOptions) ([]domain.ConsultationView, error) {
	if p.UserType == domain.UserTypeDoctor {
		return e.ListForDoctor(ctx, p.UserID, opts)
	}
	return e.ListForPatient(ctx, p.UserID, opts)
}

func registerConsultations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-consultation",
		Method:      http.MethodPost,
		Path:        "/consultations",
		Summary:     "Open a consultation",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateConsultationRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypePatient)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ConsultationCreateOptions{
			PatientID:    p.UserID,
			Date:         input.Body.Date,
			Title:        input.Body.Title,
			SpecialityID: input.Body.SpecialityID,
		}
		if input.Body.Description != nil {
			opts.Description = *input.Body.Description
		}
		if input.Body.Severity != nil {
			opts.Severity = *input.Body.Severity
		}
		c, err := e.CreateConsultation(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-consultations",
		Method:      http.MethodGet,
		Path:        "/consultations",
		Summary:     "List consultations in the caller's scope",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *listQuery) (*struct {
		Body []ConsultationViewResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := listByRole(ctx, e, p, input.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ConsultationViewResponse `json:"body"`
		}{Body: mapConsultationViews(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-unassigned-consultations",
		Method:      http.MethodGet,
		Path:        "/consultations/unassigned",
		Summary:     "List the unassigned pool for the doctor's specialties",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Title          string `query:"title"`
		Severity       string `query:"severity"`
		PatientName    string `query:"patient_name"`
		SpecialityName string `query:"speciality_name"`
	}) (*struct {
		Body []UnassignedConsultationResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypeDoctor)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListUnassigned(ctx, p.UserID, repo.UnassignedFilters{
			Title:          input.Title,
			Severity:       input.Severity,
			PatientName:    input.PatientName,
			SpecialityName: input.SpecialityName,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UnassignedConsultationResponse `json:"body"`
		}{Body: mapUnassigned(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-finished-consultations",
		Method:      http.MethodGet,
		Path:        "/consultations/finished",
		Summary:     "List completed consultations",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *listQuery) (*struct {
		Body []ConsultationViewResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListFinished(ctx, p.UserID, p.UserType, input.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ConsultationViewResponse `json:"body"`
		}{Body: mapConsultationViews(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-future-consultations",
		Method:      http.MethodGet,
		Path:        "/consultations/future",
		Summary:     "List upcoming pending consultations",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *listQuery) (*struct {
		Body []ConsultationViewResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListFuture(ctx, p.UserID, p.UserType, input.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ConsultationViewResponse `json:"body"`
		}{Body: mapConsultationViews(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "lookup-booking",
		Method:      http.MethodGet,
		Path:        "/consultations/booking",
		Summary:     "Look up the patient's consultation at an exact date",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" required:"true" format:"date-time"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypePatient)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.FindBooking(ctx, input.Date, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-consultation",
		Method:      http.MethodGet,
		Path:        "/consultations/{consultation_id}",
		Summary:     "Consultation detail in the caller's scope",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64 `path:"consultation_id"`
	}) (*struct {
		Body ConsultationViewResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var v domain.ConsultationView
		var err error
		if p.UserType == domain.UserTypeDoctor {
			v, err = e.GetForDoctor(ctx, input.ConsultationID, p.UserID)
		} else {
			v, err = e.GetForPatient(ctx, input.ConsultationID, p.UserID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationViewResponse `json:"body"`
		}{Body: consultationViewResponse(v)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-consultation",
		Method:      http.MethodPatch,
		Path:        "/consultations/{consultation_id}",
		Summary:     "Update a pending consultation",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64                     `path:"consultation_id"`
		Body           UpdateConsultationRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypePatient)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateConsultation(ctx, engine.ConsultationUpdateOptions{
			ConsultationID: input.ConsultationID,
			PatientID:      p.UserID,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Severity:       input.Body.Severity,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-consultation",
		Method:      http.MethodPost,
		Path:        "/consultations/{consultation_id}/assign",
		Summary:     "Take a consultation from the unassigned pool",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64 `path:"consultation_id"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypeDoctor)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Assign(ctx, input.ConsultationID, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-consultation",
		Method:      http.MethodPost,
		Path:        "/consultations/{consultation_id}/cancel",
		Summary:     "Cancel a consultation",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64 `path:"consultation_id"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypePatient)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Cancel(ctx, input.ConsultationID, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c)}, nil
	})
}

func registerResponses(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-response",
		Method:      http.MethodPost,
		Path:        "/consultations/{consultation_id}/responses",
		Summary:     "Answer a consultation and complete it",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64                 `path:"consultation_id"`
		Body           CreateResponseRequest `json:"body"`
	}) (*struct {
		Body ResponseResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypeDoctor)
		if authErr != nil {
			return nil, authErr
		}
		resp, err := e.CreateResponse(ctx, engine.ResponseCreateOptions{
			ConsultationID: input.ConsultationID,
			DoctorID:       p.UserID,
			Content:        input.Body.Content,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ResponseResponse `json:"body"`
		}{Body: responseResponse(resp)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-responses",
		Method:      http.MethodGet,
		Path:        "/consultations/{consultation_id}/responses",
		Summary:     "List responses for a consultation",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64 `path:"consultation_id"`
	}) (*struct {
		Body []ResponseResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireConsultationAccess(ctx, e, input.ConsultationID, p); err != nil {
			return nil, err
		}
		items, err := e.Repo.ListResponsesForConsultation(ctx, input.ConsultationID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]ResponseResponse, 0, len(items))
		for _, r := range items {
			res = append(res, responseResponse(r))
		}
		return &struct {
			Body []ResponseResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rate-response",
		Method:      http.MethodPost,
		Path:        "/responses/{response_id}/rating",
		Summary:     "Rate a response once",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ResponseID int64               `path:"response_id"`
		Body       RateResponseRequest `json:"body"`
	}) (*struct {
		Body ResponseResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		resp, err := e.RateResponse(ctx, input.ResponseID, p.UserID, input.Body.Rating)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ResponseResponse `json:"body"`
		}{Body: responseResponse(resp)}, nil
	})
}

func requireConsultationAccess(ctx context.Context, e engine.Engine, consultationID int64, p Principal) huma.StatusError {
	var ok bool
	var err error
	if p.UserType == domain.UserTypeDoctor {
		ok, err = e.Auth.AssignedToConsultation(ctx, nil, consultationID, p.UserID)
	} else {
		ok, err = e.Auth.OwnsConsultation(ctx, nil, consultationID, p.UserID)
	}
	if err != nil {
		return handleError(err)
	}
	if !ok {
		return newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("consultation %d: not found", consultationID), nil)
	}
	return nil
}

func registerFiles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "attach-consultation-file",
		Method:      http.MethodPost,
		Path:        "/consultations/{consultation_id}/files",
		Summary:     "Attach file metadata to a consultation",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64             `path:"consultation_id"`
		Body           AttachFileRequest `json:"body"`
	}) (*struct {
		Body FileResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypePatient)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.AttachConsultationFile(ctx, input.ConsultationID, p.UserID, input.Body.FileName, input.Body.FilePath)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FileResponse `json:"body"`
		}{Body: FileResponse{ID: f.ID, FileName: f.FileName, FilePath: f.FilePath, CreatedAt: f.CreatedAt}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-consultation-files",
		Method:      http.MethodGet,
		Path:        "/consultations/{consultation_id}/files",
		Summary:     "List consultation file metadata",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64 `path:"consultation_id"`
	}) (*struct {
		Body []FileResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := requireConsultationAccess(ctx, e, input.ConsultationID, p); err != nil {
			return nil, err
		}
		items, err := e.Repo.ListConsultationFiles(ctx, input.ConsultationID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]FileResponse, 0, len(items))
		for _, f := range items {
			res = append(res, FileResponse{ID: f.ID, FileName: f.FileName, FilePath: f.FilePath, CreatedAt: f.CreatedAt})
		}
		return &struct {
			Body []FileResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-consultation-file",
		Method:      http.MethodDelete,
		Path:        "/consultations/{consultation_id}/files/{file_name}",
		Summary:     "Remove consultation file metadata by name",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ConsultationID int64  `path:"consultation_id"`
		FileName       string `path:"file_name"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypePatient)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveConsultationFile(ctx, input.ConsultationID, p.UserID, input.FileName); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "removed"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-response-file",
		Method:      http.MethodPost,
		Path:        "/responses/{response_id}/files",
		Summary:     "Attach file metadata to a response",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ResponseID int64             `path:"response_id"`
		Body       AttachFileRequest `json:"body"`
	}) (*struct {
		Body FileResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.UserTypeDoctor)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.AttachResponseFile(ctx, input.ResponseID, p.UserID, input.Body.FileName, input.Body.FilePath)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FileResponse `json:"body"`
		}{Body: FileResponse{ID: f.ID, FileName: f.FileName, FilePath: f.FilePath, CreatedAt: f.CreatedAt}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest audit events",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}
