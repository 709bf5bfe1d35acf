package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ridematch/internal/auth"
	"github.com/example/ridematch/internal/calendar"
	"github.com/example/ridematch/internal/config"
	"github.com/example/ridematch/internal/dispatch"
	"github.com/example/ridematch/internal/domain"
	"github.com/example/ridematch/internal/ingest"
	"github.com/example/ridematch/internal/matcher"
	"github.com/example/ridematch/internal/models"
	"github.com/example/ridematch/internal/observability"
	"github.com/example/ridematch/internal/repo"
	"github.com/example/ridematch/internal/storage"
	"github.com/example/ridematch/internal/suggest"
)

// Server wires the repository, match engine and auth store behind the
// JSON API the single-page UI talks to.
type Server struct {
	Repo    *repo.Repository
	Engine  *matcher.Engine
	Users   *auth.UserStore
	Session auth.SessionStore
	WSReg   *dispatch.WSRegistry

	mux    *mux.Router
	logger *slog.Logger

	schemaWarn sync.Once
}

// NewServer selects the backing store and optional collaborators from
// configuration once, at startup. A missing PG_DSN means the seeded
// in-memory store; a missing suggestion key means auto-assign stays
// disabled rather than failing.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	var store storage.EntityStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		store = ps
	} else {
		ms := storage.NewMemoryStore()
		if cfg.SeedDemoEvents {
			ms.Seed(storage.SeedEvents())
		}
		store = ms
	}

	users, err := auth.NewUserStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	var sessions auth.SessionStore
	if cfg.RedisAddr != "" {
		sessions = auth.NewRedisSessions(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		sessions = auth.NewMemorySessions()
	}

	wsreg := dispatch.NewWSRegistry()
	r := repo.New(store)

	engine := &matcher.Engine{Repo: r, Sessions: wsreg, Logger: logger}
	if cfg.SuggestAPIKey != "" {
		engine.Suggest = suggest.NewClient(cfg.SuggestEndpoint, cfg.SuggestAPIKey)
	}
	if len(cfg.KafkaBrokers) > 0 {
		engine.Events = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	s := &Server{
		Repo:    r,
		Engine:  engine,
		Users:   users,
		Session: sessions,
		WSReg:   wsreg,
		mux:     mux.NewRouter(),
		logger:  logger,
	}
	s.registerMiddleware()
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/events", s.handleListEvents).Methods("GET")
	api.HandleFunc("/events", s.handleCreateEvent).Methods("POST")
	api.HandleFunc("/events/{event_id}", s.handleEventDetail).Methods("GET")
	api.HandleFunc("/events/{event_id}/drivers", s.handleCreateDriver).Methods("POST")
	api.HandleFunc("/events/{event_id}/students", s.handleCreateStudent).Methods("POST")
	api.HandleFunc("/events/{event_id}/candidate-drivers", s.handleCandidateDrivers).Methods("GET")
	api.HandleFunc("/events/{event_id}/candidate-students", s.handleCandidateStudents).Methods("GET")
	api.HandleFunc("/events/{event_id}/auto-assign", s.handleAutoAssign).Methods("POST")
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches/confirm", s.handleConfirmMatch).Methods("POST")
	api.HandleFunc("/calendar", s.handleCalendar).Methods("GET")
	api.HandleFunc("/time-options", s.handleTimeOptions).Methods("GET")
	api.HandleFunc("/auth/signup", s.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", s.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", s.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", s.handleMe).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeErr maps a storage failure to a response, warning once when the
// remote schema has not been set up yet.
func (s *Server) storeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrSchemaMissing) {
		s.schemaWarn.Do(func() {
			s.logger.Warn("backend tables not found; run migrations/001_create_ridematch.sql against the configured database")
		})
		writeErr(w, http.StatusServiceUnavailable, "backend not set up yet")
		return
	}
	writeErr(w, http.StatusBadGateway, "backend unavailable")
}

// currentUserID resolves the bearer token, if any. Anonymous requests
// are allowed everywhere except the signed-in surfaces.
func (s *Server) currentUserID(r *http.Request) string {
	tok := bearerToken(r)
	if tok == "" {
		return ""
	}
	id, ok := s.Session.Resolve(tok)
	if !ok {
		return ""
	}
	return id
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return r.URL.Query().Get("token")
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.Repo.ListEvents()
	if err != nil {
		s.storeErr(w, err)
		return
	}
	if r.URL.Query().Get("sort") == "date" {
		events = calendar.SortByDate(events)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type eventSubmission struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	StartTime string `json:"time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location"`
	// Force skips the duplicate prompt: "no, add as new event".
	Force bool `json:"force"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Name == "" {
		writeErr(w, http.StatusBadRequest, "event name is required")
		return
	}
	candidate := models.Event{Name: in.Name, Date: in.Date, StartTime: in.StartTime, EndTime: in.EndTime, Location: in.Location}
	if !in.Force {
		similar, err := s.Repo.FindSimilarEvent(candidate)
		if err != nil {
			s.storeErr(w, err)
			return
		}
		if similar != nil {
			writeJSON(w, http.StatusConflict, map[string]any{
				"message":       "An event like this already exists. Did you mean this one?",
				"similar_event": similar,
			})
			return
		}
	}
	event, err := s.Repo.CreateEvent(candidate)
	if errors.Is(err, repo.ErrDateTooSoon) {
		writeErr(w, http.StatusUnprocessableEntity,
			"Event date must be at least 2 days from today (cannot add events for tomorrow or earlier).")
		return
	}
	if err != nil {
		s.storeErr(w, err)
		return
	}
	observability.EventsCreated.Inc()
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["event_id"]
	event, ok := s.Repo.GetEvent(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "event not found")
		return
	}
	drivers, err := s.Repo.DriversByEvent(id)
	if err != nil {
		s.storeErr(w, err)
		return
	}
	students, err := s.Repo.StudentsByEvent(id)
	if err != nil {
		s.storeErr(w, err)
		return
	}
	matches, err := s.Repo.MatchesByEvent(id)
	if err != nil {
		s.storeErr(w, err)
		return
	}

	type driverView struct {
		models.Driver
		AvailableSeats int `json:"available_seats"`
	}
	dv := make([]driverView, 0, len(drivers))
	for _, d := range drivers {
		dv = append(dv, driverView{Driver: d, AvailableSeats: domain.AvailableSeats(d, matches)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event":            event,
		"drivers":          dv,
		"students":         students,
		"matches":          matches,
		"auto_assign_open": s.Engine.Suggest != nil && domain.EventTomorrow(event, time.Now()),
	})
}

type driverSubmission struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Seats int    `json:"seats"`
	Notes string `json:"notes"`
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["event_id"]
	if _, ok := s.Repo.GetEvent(eventID); !ok {
		writeErr(w, http.StatusNotFound, "event not found")
		return
	}
	var in driverSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Name == "" || in.Phone == "" {
		writeErr(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	d, err := s.Repo.CreateDriver(models.Driver{
		EventID:     eventID,
		Name:        in.Name,
		Phone:       domain.FormatPhone(in.Phone),
		Seats:       in.Seats,
		Notes:       in.Notes,
		OwnerUserID: s.currentUserID(r),
	})
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type studentSubmission struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Pickup string `json:"pickup"`
	Notes  string `json:"notes"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["event_id"]
	if _, ok := s.Repo.GetEvent(eventID); !ok {
		writeErr(w, http.StatusNotFound, "event not found")
		return
	}
	var in studentSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Name == "" || in.Phone == "" {
		writeErr(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	st, err := s.Repo.CreateStudent(models.Student{
		EventID:     eventID,
		Name:        in.Name,
		Phone:       domain.FormatPhone(in.Phone),
		Pickup:      in.Pickup,
		Notes:       in.Notes,
		OwnerUserID: s.currentUserID(r),
	})
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleCandidateDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.Engine.CandidateDriversFor(mux.Vars(r)["event_id"])
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": drivers})
}

func (s *Server) handleCandidateStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.Engine.CandidateStudentsFor(mux.Vars(r)["event_id"])
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

type matchSubmission struct {
	DriverID  string `json:"driver_id"`
	StudentID string `json:"student_id"`
	EventID   string `json:"event_id"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var in matchSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.DriverID == "" || in.StudentID == "" || in.EventID == "" {
		writeErr(w, http.StatusBadRequest, "driver_id, student_id and event_id are required")
		return
	}
	m, err := s.Engine.RequestMatch(in.DriverID, in.StudentID, in.EventID)
	if err != nil {
		s.storeErr(w, err)
		return
	}
	if m == nil {
		// duplicate triple: already matched, nothing to do
		writeJSON(w, http.StatusOK, map[string]any{"created": false})
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleConfirmMatch(w http.ResponseWriter, r *http.Request) {
	var in matchSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Engine.ConfirmMatch(in.DriverID, in.StudentID, in.EventID); err != nil {
		s.storeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	res := s.Engine.RunAutoAssign(r.Context(), mux.Vars(r)["event_id"])
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			year = n
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 12 {
			month = n
		}
	}
	events, err := s.Repo.ListEvents()
	if err != nil {
		s.storeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"title": calendar.MonthNames[month-1],
		"weeks": calendar.Weeks(year, month, events),
	})
}

// handleTimeOptions backs the event form's time dropdown; a prefix
// narrows the list as the user types.
func (s *Server) handleTimeOptions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	var options []string
	if prefix == "" {
		options = calendar.TimeOptions()
	} else {
		options = calendar.FilterTimeOptions(prefix)
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpData
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.Users.SignUp(in)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, auth.Message(auth.CodeFor(err), err))
		return
	}
	s.issueSession(w, http.StatusCreated, u)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.Users.SignIn(in.Email, in.Password)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, auth.Message(auth.CodeFor(err), err))
		return
	}
	s.issueSession(w, http.StatusOK, u)
}

func (s *Server) issueSession(w http.ResponseWriter, status int, u models.User) {
	token, err := s.Session.Create(u.ID)
	if err != nil {
		writeErr(w, http.StatusBadGateway, "session store unavailable")
		return
	}
	writeJSON(w, status, map[string]any{"user": u, "token": token})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if tok := bearerToken(r); tok != "" {
		s.Session.Revoke(tok)
	}
	s.Users.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := s.currentUserID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "not signed in")
		return
	}
	u, ok := s.Users.Get(id)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := s.currentUserID(r)
	if userID == "" {
		writeErr(w, http.StatusUnauthorized, "sign in to receive match updates")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.WSReg.Add(userID, conn)
}
