package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"teleconsult/internal/config"
	"teleconsult/internal/db"
	"teleconsult/internal/domain"
	"teleconsult/internal/engine"
	"teleconsult/internal/mailer"
	"teleconsult/internal/migrate"
	"teleconsult/internal/repo"
	"teleconsult/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tc",
	Short: "Teleconsult CLI",
	Long: `Teleconsult routes patient consultations to doctors by medical specialty.
- Workspace: your .teleconsult directory holding the database and clinic.yml.
- Consultation: a patient request routed by specialty; pending until a doctor answers or the patient cancels.
- Unassigned pool: pending consultations with no doctor yet, filterable by specialty.
- Response: a doctor's answer; recording one completes the consultation and the patient may rate it once.
- Event log: diary of changes, view with 'tc log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("TELECONSULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(specialityCmd())
	rootCmd.AddCommand(consultationCmd())
	rootCmd.AddCommand(responseCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var clinicName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace with config, schema and specialty catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				cfg := config.Default(clinicName)
				data, err := cfg.ToYAML()
				if err != nil {
					return err
				}
				if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", cfgPath)
			} else {
				fmt.Println("config exists at", cfgPath)
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cfg, err := config.Load(workspace)
				if err != nil {
					return err
				}
				if err := r.SeedSpecialities(ctx, cfg.Specialities.Catalog); err != nil {
					return err
				}
				fmt.Println("workspace ready:", db.Path(workspace))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&clinicName, "clinic", "Teleconsult", "clinic name")
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(userRegisterCmd())
	user.AddCommand(userShowCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userConfirmCmd())
	return user
}

func userRegisterCmd() *cobra.Command {
	var (
		firstName, lastName, email, password, userType, userName, biography, doctorCode string
		specialityIDs                                                                   []int64
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a patient or doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, engine.RegisterUserOptions{
					FirstName:     firstName,
					LastName:      lastName,
					Email:         email,
					Password:      password,
					UserType:      userType,
					UserName:      userName,
					Biography:     biography,
					SpecialityIDs: specialityIDs,
					DoctorCode:    doctorCode,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&userType, "type", domain.UserTypePatient, "patient or doctor")
	cmd.Flags().StringVar(&userName, "user-name", "", "unique user name")
	cmd.Flags().StringVar(&biography, "biography", "", "biography")
	cmd.Flags().StringVar(&doctorCode, "doctor-code", "", "registration code for doctors")
	cmd.Flags().Int64SliceVar(&specialityIDs, "speciality", nil, "specialty id (repeatable, doctors only)")
	return cmd
}

func userShowCmd() *cobra.Command {
	var id int64
	var email string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var u domain.User
				var err error
				if email != "" {
					u, err = r.GetUserByEmail(ctx, email)
				} else {
					u, err = r.GetUser(ctx, id)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "user id")
	cmd.Flags().StringVar(&email, "email", "", "look up by email instead of id")
	return cmd
}

func userListCmd() *cobra.Command {
	var userType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx, userType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Type", "User name"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.FullName(), u.Email, u.UserType, u.UserName})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userType, "type", "", "filter by patient or doctor")
	return cmd
}

func userConfirmCmd() *cobra.Command {
	var email string
	var code int
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a registration with the mailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.ConfirmUser(ctx, email, code); err != nil {
					return err
				}
				fmt.Println("confirmed", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().IntVar(&code, "code", 0, "validation code")
	return cmd
}

func specialityCmd() *cobra.Command {
	spec := &cobra.Command{Use: "speciality", Short: "Manage the specialty catalog"}
	spec.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List specialties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSpecialities(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name})
				}
				tw.Render()
				return nil
			})
		},
	})
	var name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a specialty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				id, err := r.InsertSpeciality(ctx, name)
				if err != nil {
					return err
				}
				fmt.Println("created speciality", id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "specialty name")
	spec.AddCommand(add)
	return spec
}

func consultationCmd() *cobra.Command {
	con := &cobra.Command{Use: "consultation", Short: "Manage consultations"}
	con.AddCommand(consultationCreateCmd())
	con.AddCommand(consultationListCmd())
	con.AddCommand(consultationUnassignedCmd())
	con.AddCommand(consultationAssignCmd())
	con.AddCommand(consultationCancelCmd())
	con.AddCommand(consultationRespondCmd())
	return con
}

func consultationCreateCmd() *cobra.Command {
	var (
		patientID, specialityID  int64
		date, title, desc, sever string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateConsultation(ctx, engine.ConsultationCreateOptions{
					PatientID:    patientID,
					Date:         date,
					Title:        title,
					Description:  desc,
					Severity:     sever,
					SpecialityID: specialityID,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().Int64Var(&patientID, "patient", 0, "patient id")
	cmd.Flags().Int64Var(&specialityID, "speciality", 0, "specialty id")
	cmd.Flags().StringVar(&date, "date", "", "consultation date, RFC 3339")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&sever, "severity", "", "high, medium or low")
	return cmd
}

func consultationListCmd() *cobra.Command {
	var patientID, doctorID int64
	var sortBy, sortOrder string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List consultations for a patient or doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ListOptions{SortBy: sortBy, SortOrder: sortOrder}
				var items []domain.ConsultationView
				var err error
				if doctorID != 0 {
					items, err = e.ListForDoctor(ctx, doctorID, opts)
				} else {
					items, err = e.ListForPatient(ctx, patientID, opts)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Title", "Severity", "Status", "Speciality", "Doctor"})
				for _, v := range items {
					doctor := ""
					if v.DoctorName != nil {
						doctor = *v.DoctorName
					}
					tw.AppendRow(table.Row{v.ID, v.Date, v.Title, v.Severity, v.Status, v.SpecialityName, doctor})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&patientID, "patient", 0, "patient id")
	cmd.Flags().Int64Var(&doctorID, "doctor", 0, "doctor id")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "id, date, title, severity, status or speciality")
	cmd.Flags().StringVar(&sortOrder, "sort-order", "", "asc or desc")
	return cmd
}

func consultationUnassignedCmd() *cobra.Command {
	var doctorID int64
	cmd := &cobra.Command{
		Use:   "unassigned",
		Short: "Show the unassigned pool for a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListUnassigned(ctx, doctorID, repo.UnassignedFilters{})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Title", "Severity", "Speciality", "Patient"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.Date, u.Title, u.Severity, u.SpecialityName, u.PatientName})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&doctorID, "doctor", 0, "doctor id")
	return cmd
}

func consultationAssignCmd() *cobra.Command {
	var consultationID, doctorID int64
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a consultation to a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Assign(ctx, consultationID, doctorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().Int64Var(&consultationID, "id", 0, "consultation id")
	cmd.Flags().Int64Var(&doctorID, "doctor", 0, "doctor id")
	return cmd
}

func consultationCancelCmd() *cobra.Command {
	var consultationID, patientID int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Cancel(ctx, consultationID, patientID)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().Int64Var(&consultationID, "id", 0, "consultation id")
	cmd.Flags().Int64Var(&patientID, "patient", 0, "owning patient id")
	return cmd
}

func consultationRespondCmd() *cobra.Command {
	var consultationID, doctorID int64
	var content string
	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Record a doctor's response and complete the consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				resp, err := e.CreateResponse(ctx, engine.ResponseCreateOptions{
					ConsultationID: consultationID,
					DoctorID:       doctorID,
					Content:        content,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(resp)
			})
		},
	}
	cmd.Flags().Int64Var(&consultationID, "id", 0, "consultation id")
	cmd.Flags().Int64Var(&doctorID, "doctor", 0, "responding doctor id")
	cmd.Flags().StringVar(&content, "content", "", "response content")
	return cmd
}

func responseCmd() *cobra.Command {
	resp := &cobra.Command{Use: "response", Short: "Manage responses"}
	var responseID, raterID int64
	var rating int
	rate := &cobra.Command{
		Use:   "rate",
		Short: "Rate a response once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.RateResponse(ctx, responseID, raterID, rating)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	rate.Flags().Int64Var(&responseID, "id", 0, "response id")
	rate.Flags().Int64Var(&raterID, "rater", 0, "rating user id")
	rate.Flags().IntVar(&rating, "rating", 0, "rating 1 to 5")
	resp.AddCommand(rate)
	return resp
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}

	var userID int64
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key; the plaintext is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				raw, k, err := e.CreateAPIKey(ctx, userID, name)
				if err != nil {
					return err
				}
				fmt.Println("api key:", raw)
				return printJSONOrTable(k)
			})
		},
	}
	create.Flags().Int64Var(&userID, "user", 0, "user id")
	create.Flags().StringVar(&name, "name", "", "key label")
	key.AddCommand(create)

	var listUserID int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, listUserID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().Int64Var(&listUserID, "user", 0, "filter by user id")
	key.AddCommand(list)

	var id string
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, id)
			})
		},
	}
	del.Flags().StringVar(&id, "id", "", "api key id")
	key.AddCommand(del)
	return key
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	var limit int
	var evtType, entityKind, entityID string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.LatestEvents(ctx, limit, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + "/" + e.EntityID, e.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&limit, "limit", 20, "max events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	tail.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	tail.Flags().StringVar(&entityID, "entity-id", "", "entity id filter")
	log.AddCommand(tail)
	return log
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo users and consultations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return seedDemoData(ctx, e)
			})
		},
	}
	return cmd
}

func seedDemoData(ctx context.Context, e engine.Engine) error {
	cardio, err := e.Repo.GetSpecialityByName(ctx, "Cardiología")
	if err != nil {
		return fmt.Errorf("catalog not seeded, run tc init first: %w", err)
	}
	patient, err := e.RegisterUser(ctx, engine.RegisterUserOptions{
		FirstName: "Ana",
		LastName:  "García",
		Email:     "ana@example.com",
		Password:  "demo-pass",
		UserType:  domain.UserTypePatient,
		UserName:  "ana",
	})
	if err != nil {
		return err
	}
	doctor, err := e.RegisterUser(ctx, engine.RegisterUserOptions{
		FirstName:     "Luis",
		LastName:      "Martínez",
		Email:         "luis@example.com",
		Password:      "demo-pass",
		UserType:      domain.UserTypeDoctor,
		UserName:      "drluis",
		SpecialityIDs: []int64{cardio.ID},
		DoctorCode:    e.Config.Registration.DoctorCode,
	})
	if err != nil {
		return err
	}
	c, err := e.CreateConsultation(ctx, engine.ConsultationCreateOptions{
		PatientID:    patient.ID,
		Date:         time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		Title:        "Chest pain after exercise",
		Description:  "Intermittent chest pain when climbing stairs.",
		Severity:     domain.SeverityHigh,
		SpecialityID: cardio.ID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("seeded patient %d, doctor %d, consultation %d\n", patient.ID, doctor.ID, c.ID)
	return nil
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			e := engine.New(conn, cfg, mailer.New(cfg.Mail, log))
			jwtSecret := os.Getenv("TELECONSULT_JWT_SECRET")
			if jwtSecret == "" {
				return fmt.Errorf("TELECONSULT_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: jwtSecret, Logger: log},
				Logger:   log,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving Teleconsult API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	e := engine.New(conn, cfg, mailer.New(cfg.Mail, log))
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
