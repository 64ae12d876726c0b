// Package server provides the HTTP surface of vaultconsole. It serves page
// layouts, the filterable table views over the collection store, form
// sessions with their validate and submit workflow, CSV export, the file
// management side channel and the optional read-only query panel.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/vaultconsole/internal/common/httpx"
	"github.com/tansive/vaultconsole/internal/common/logtrace"
	"github.com/tansive/vaultconsole/internal/common/middleware"
	"github.com/tansive/vaultconsole/internal/console/filemgmt"
	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/console/querypanel"
	"github.com/tansive/vaultconsole/internal/console/store"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// Deps are the services the handlers operate on. Query may be nil when no
// warehouse is configured.
type Deps struct {
	Store *store.Store
	Forms *form.Registry
	Files *filemgmt.Service
	Query *querypanel.Panel
}

// Options configures middleware and scoping. When UserEmail is set, table rows
// are scoped to the user's assigned projects.
type Options struct {
	HandleCORS  bool
	CORSOrigins []string
	Timeout     time.Duration
	UserEmail   string
}

// ConsoleServer is the vaultconsole HTTP server.
type ConsoleServer struct {
	Router *chi.Mux
	deps   Deps
	opts   Options
}

// CreateNewServer creates a server over deps.
func CreateNewServer(deps Deps, opts Options) (*ConsoleServer, error) {
	if deps.Store == nil || deps.Forms == nil {
		return nil, fmt.Errorf("store and form registry are required")
	}
	return &ConsoleServer{Router: chi.NewRouter(), deps: deps, opts: opts}, nil
}

// MountHandlers sets up middleware and routes.
func (s *ConsoleServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.opts.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Use(checkClientVersion)
	if s.opts.Timeout > 0 {
		s.Router.Use(middleware.SetTimeout(s.opts.Timeout))
	}
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in console router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *ConsoleServer) mountResourceHandlers(r chi.Router) {
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)

	r.Get("/pages", httpx.WrapHttpRsp(s.listPages))
	r.Get("/pages/{page}", httpx.WrapHttpRsp(s.getPage))

	r.Post("/collections/{kind}/refresh", httpx.WrapNoticeRsp(s.refreshCollection))
	r.Get("/tables/{kind}", httpx.WrapHttpRsp(s.getTable))
	r.Get("/tables/{kind}/export", httpx.WrapHttpRsp(s.exportTable))

	r.Route("/forms", func(r chi.Router) {
		r.Post("/", httpx.WrapNoticeRsp(s.openForm))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", httpx.WrapHttpRsp(s.getForm))
			r.Delete("/", httpx.WrapNoticeRsp(s.closeForm))
			r.Put("/fields/{field}", httpx.WrapNoticeRsp(s.setField))
			r.Get("/options/{field}", httpx.WrapNoticeRsp(s.getOptions))
			r.Put("/rows", httpx.WrapNoticeRsp(s.setRowCount))
			r.Put("/rows/{index}", httpx.WrapNoticeRsp(s.setRow))
			r.Post("/validate", httpx.WrapNoticeRsp(s.validateForm))
			r.Post("/submit", httpx.WrapNoticeRsp(s.submitForm))
			r.Get("/checks", httpx.WrapHttpRsp(s.getChecks))
		})
	})

	r.Post("/files/{category}/upload", httpx.WrapNoticeRsp(s.uploadFiles))
	r.Post("/files/{category}/download", httpx.WrapNoticeRsp(s.downloadFiles))

	r.Post("/query", httpx.WrapHttpRsp(s.runQuery))
}

// GetVersionRsp is the /version response.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *ConsoleServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	httpx.SendJsonRsp(r, w, http.StatusOK, &GetVersionRsp{
		ServerVersion: "Vault Console: " + Version,
		ApiVersion:    ApiVersion,
	})
}

// getReadiness reports ready once the reference collections are loaded.
func (s *ConsoleServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	var missing []string
	for _, k := range metadata.ReferenceKinds() {
		if _, ok := s.deps.Store.Get(k); !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		httpx.SendJsonRsp(r, w, http.StatusServiceUnavailable, map[string]any{
			"status":  "loading",
			"missing": missing,
		})
		return
	}
	httpx.SendJsonRsp(r, w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS provides CORS middleware for the browser front end.
func (s *ConsoleServer) HandleCORS(next http.Handler) http.Handler {
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding", ClientVersionHeader},
		ExposedHeaders:   []string{"Location", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}

// RefreshAfterSubmit is the form registry's OnSubmitted hook: it refetches the
// submitted kind so tables and cascades see the new records.
func RefreshAfterSubmit(st *store.Store) func(ctx context.Context, k metadata.Kind) {
	return func(ctx context.Context, k metadata.Kind) {
		if err := st.Refresh(ctx, k); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("kind", string(k)).Msg("refresh after submit failed")
		}
	}
}
