package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/api"
	"github.com/examshield/proctor-api/api/scheduler"
	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
	"github.com/examshield/proctor-api/monitor"
	"github.com/examshield/proctor-api/signaling"
	"github.com/examshield/proctor-api/storage"
)

// App stores the router, db connection and live monitoring state, so it can
// be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Registry  *monitor.Registry
	Socket    *socketio.Server
	Scheduler *scheduler.Scheduler

	dbHelper databases.DatabaseHelper
	store    storage.ObjectStore
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	sessionDB := databases.NewSessionDatabase(a.dbHelper)
	examDB := databases.NewExamDatabase(a.dbHelper)
	scoreDB := databases.NewScoreDatabase(a.dbHelper)
	snapDB := databases.NewSnapshotDatabase(a.dbHelper)
	userDB := databases.NewUserDatabase(a.dbHelper)

	s := Session{
		DB:       sessionDB,
		EDB:      examDB,
		ScoreDB:  scoreDB,
		Registry: a.Registry,
		Config:   &a.Config,
		Notifier: EmailNotifier{UDB: userDB, EDB: examDB},
		NewMonitor: func(sessionID, studentID string) *monitor.Monitor {
			m := monitor.New(sessionID, studentID,
				monitor.ConfigFrom(&a.Config),
				monitor.NewWSClassifier(a.Config.ClassifierURL),
				scoreDB, snapDB, a.store)
			// Tear down the signaling room with the session so stale
			// subscribers cannot keep relaying for a dead session.
			m.AddTeardown(func() {
				CloseRoom(signaling.RoomID(sessionID))
			})
			return m
		},
	}
	e := Exam{DB: examDB}
	u := User{DB: userDB}
	lb := Leaderboard{Agg: monitor.NewAggregator(sessionDB, scoreDB)}
	ev := Evidence{SnapDB: snapDB, ScoreDB: scoreDB}
	ws := MonitorWS{Registry: a.Registry, Config: &a.Config}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// long-lived connections bypass the timeout middleware
	r.Handle("/ws/monitor/{session_id}", http.HandlerFunc(ws.StreamHandler)).Methods("GET")
	if a.Socket != nil {
		r.PathPrefix("/socket.io/").Handler(a.Socket)
	}

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(api.QueryTimeout))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")

	apiCreate.Handle("/exam", api.Middleware(http.HandlerFunc(e.CreateExamHandler))).Methods("POST")
	apiCreate.Handle("/exams", api.Middleware(http.HandlerFunc(e.ExamsHandler))).Methods("GET")
	apiCreate.Handle("/exam/{exam_id}", api.Middleware(http.HandlerFunc(e.ExamByIDHandler))).Methods("GET")

	apiCreate.Handle("/session/start", api.Middleware(http.HandlerFunc(s.StartSessionHandler))).Methods("POST")
	apiCreate.Handle("/session/{session_id}/submit", api.Middleware(http.HandlerFunc(s.SubmitSessionHandler))).Methods("POST")
	apiCreate.Handle("/session/{session_id}/status", api.Middleware(http.HandlerFunc(ws.StatusSnapshotHandler))).Methods("GET")
	apiCreate.Handle("/session/{session_id}/snapshots", api.Middleware(http.HandlerFunc(ev.SnapshotsBySessionIDHandler))).Methods("GET")
	apiCreate.Handle("/session/{session_id}/scores", api.Middleware(http.HandlerFunc(ev.ScoresBySessionIDHandler))).Methods("GET")
	apiCreate.Handle("/session/{session_id}", api.Middleware(http.HandlerFunc(s.SessionByIDHandler))).Methods("GET")

	apiCreate.Handle("/leaderboard", api.Middleware(http.HandlerFunc(lb.LeaderboardHandler))).Methods("GET")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("proctor-api has connected to the database")

	a.store, err = storage.NewCloudinaryStore(os.Getenv("CLOUDINARY_FOLDER"))
	if err != nil {
		zap.S().With(err).Error("failed to initialize snapshot store")
		return err
	}

	a.Registry = monitor.NewRegistry()
	a.Socket = InitializeSocketIO(a.Config.RoomJWTSecret)

	// initialize api router
	a.initializeRoutes()

	sessionDB := databases.NewSessionDatabase(a.dbHelper)
	examDB := databases.NewExamDatabase(a.dbHelper)
	a.Scheduler = scheduler.NewScheduler(sessionDB, examDB, a.finalizer())
	a.Scheduler.Start()
	return nil
}

// finalizer builds the session finalize path the reaper shares with the
// submit endpoint.
func (a *App) finalizer() Session {
	examDB := databases.NewExamDatabase(a.dbHelper)
	userDB := databases.NewUserDatabase(a.dbHelper)
	return Session{
		DB:       databases.NewSessionDatabase(a.dbHelper),
		EDB:      examDB,
		ScoreDB:  databases.NewScoreDatabase(a.dbHelper),
		Registry: a.Registry,
		Config:   &a.Config,
		Notifier: EmailNotifier{UDB: userDB, EDB: examDB},
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
