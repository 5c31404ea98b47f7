// Package serverapp assembles the stores, scan engine and HTTP routes
// into one handler.
package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/auth"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/config"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/hardware"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/httpmw"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/nfc"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/scan"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

type Options struct {
	Config  *config.Config
	DataDir string
	Logger  *log.Logger

	// Tasks and Mappings may be supplied pre-built, for example when the
	// hardware layer was wired to the task store before the server. Nil
	// means New opens them from DataDir.
	Tasks    *task.Store
	Mappings *nfc.Store

	// Hardware is optional. When set, LEDs mirror task status and button
	// presses run through the same transition rule as scans.
	Hardware *hardware.Manager
}

// App holds the assembled server so callers can reach the stores, for
// example to seed data in tests.
type App struct {
	Handler  http.Handler
	Tasks    *task.Store
	Mappings *nfc.Store
	Engine   *scan.Engine
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		opts.DataDir = opts.Config.DataDir
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	tasks := opts.Tasks
	if tasks == nil {
		var err error
		tasks, err = task.NewStore(opts.DataDir, opts.Logger)
		if err != nil {
			return nil, err
		}
	}
	mappings := opts.Mappings
	if mappings == nil {
		var err error
		mappings, err = nfc.NewStore(opts.DataDir, opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	engine := scan.NewEngine(tasks, mappings, opts.Logger)
	taskHandler := task.NewHandler(tasks)
	if opts.Hardware != nil {
		engine.SetIndicator(opts.Hardware)
		taskHandler.SetMirror(opts.Hardware)
		opts.Hardware.SetPressHandler(func(taskID int) {
			if _, err := engine.Press(taskID, "button"); err != nil {
				opts.Logger.Printf("button press for task %d: %v", taskID, err)
			}
		})
	}

	policy := auth.Policy{
		Token:     opts.Config.Auth.Token,
		NFCPublic: opts.Config.Auth.NFCPublic,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"service":          "taskplanner",
			"time":             time.Now().UTC().Format(time.RFC3339),
			"tasks":            tasks.Stats(),
			"nfc":              mappings.Stats(),
			"hardware_enabled": opts.Hardware != nil,
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    true,
			"tasks": tasks.Count(),
		})
	})

	mux.Handle("/api/tasks", policy.RequireAPI(http.HandlerFunc(taskHandler.TasksRoot)))
	mux.Handle("/api/tasks/", policy.RequireAPI(http.HandlerFunc(taskHandler.TasksSub)))
	mux.Handle("/api/tasks/sort", policy.RequireAPI(http.HandlerFunc(taskHandler.TasksSort)))
	mux.Handle("/api/tasks/stats", policy.RequireAPI(http.HandlerFunc(taskHandler.TasksStats)))

	nfcHandler := nfc.NewHandler(mappings, tasks)
	scanHandler := scan.NewHandler(engine)
	mux.Handle("/api/nfc/mappings", policy.RequireNFC(http.HandlerFunc(nfcHandler.MappingsRoot)))
	mux.Handle("/api/nfc/mappings/", policy.RequireNFC(http.HandlerFunc(nfcHandler.MappingsSub)))
	mux.Handle("/api/nfc/mappings/import", policy.RequireNFC(http.HandlerFunc(nfcHandler.MappingsImport)))
	mux.Handle("/api/nfc/mappings/clear", policy.RequireNFC(http.HandlerFunc(nfcHandler.MappingsClear)))
	mux.Handle("/api/nfc/pings", policy.RequireNFC(http.HandlerFunc(nfcHandler.Pings)))
	mux.Handle("/api/nfc/stats", policy.RequireNFC(http.HandlerFunc(nfcHandler.StatsEndpoint)))
	mux.Handle("/api/nfc/scan", policy.RequireNFC(http.HandlerFunc(scanHandler.ScanPost)))
	mux.Handle("/api/nfc/scan/", policy.RequireNFC(http.HandlerFunc(scanHandler.ScanGet)))

	if opts.Hardware != nil {
		hwHandler := hardware.NewHandler(opts.Hardware)
		mux.Handle("/api/hardware/status", policy.RequireAPI(http.HandlerFunc(hwHandler.Status)))
		mux.Handle("/api/hardware/sync", policy.RequireAPI(http.HandlerFunc(hwHandler.Sync)))
	}

	page := templ.Handler(StatusPage(tasks))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page.ServeHTTP(w, r)
	})

	handler := httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	)

	return &App{
		Handler:  handler,
		Tasks:    tasks,
		Mappings: mappings,
		Engine:   engine,
	}, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
