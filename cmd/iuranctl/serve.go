package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banjarlabs/iuran"
	promexport "github.com/banjarlabs/iuran/metrics/export/prometheus"
	"github.com/banjarlabs/iuran/middleware"
	"github.com/banjarlabs/iuran/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var consoleTmpl = template.Must(template.New("console").Parse(`<!doctype html>
<html lang="id"><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{if .User}}<p>{{.User.Name}} ({{.User.Role}}) <form method="post" action="/logout" style="display:inline"><button>Keluar</button></form></p>{{end}}
<h1>{{.Title}}</h1>
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
{{if .Login}}<form method="post">
<label>Email <input name="email" type="email" required></label>
<label>Kata sandi <input name="password" type="password" required></label>
<button>Masuk</button>
</form>{{end}}
{{if .Body}}<p>{{.Body}}</p>{{end}}
</body></html>`))

type page struct {
	Title string
	User  *session.User
	Error string
	Login bool
	Body  string
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local admin console behind the route guards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, logger, err := openClient(flags)
			if err != nil {
				return err
			}
			defer c.Close()

			restoreSession(ctx, c, logger)

			handler, err := consoleRouter(c, logger)
			if err != nil {
				return err
			}
			return listen(ctx, logger, addr, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8788", "listen address")
	return cmd
}

func consoleRouter(c *iuran.Client, logger zerolog.Logger) (http.Handler, error) {
	metricsHandler, err := promexport.Handler(c)
	if err != nil {
		return nil, err
	}

	guardLogger := logger.With().Str("component", "http-guard").Logger()
	opts := middleware.Options{Routes: c.Routes(), NextParam: "next", Logger: &guardLogger}
	sess := c.Session()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.GuestOnly(sess, opts))
		r.Get(opts.Routes.Login, func(w http.ResponseWriter, _ *http.Request) {
			render(w, http.StatusOK, page{Title: "Masuk", Login: true, Error: sess.Snapshot().Error})
		})
		r.Post(opts.Routes.Login, func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				render(w, http.StatusBadRequest, page{Title: "Masuk", Login: true, Error: "Formulir tidak valid."})
				return
			}
			if !c.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password")) {
				render(w, http.StatusUnauthorized, page{Title: "Masuk", Login: true, Error: sess.Snapshot().Error})
				return
			}
			target := opts.Routes.DefaultLanding
			if next := r.URL.Query().Get("next"); len(next) > 1 && next[0] == '/' && next[1] != '/' {
				target = next
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sess, opts))
		r.Get(opts.Routes.DefaultLanding, func(w http.ResponseWriter, r *http.Request) {
			u, _ := middleware.UserFromContext(r.Context())
			render(w, http.StatusOK, page{Title: "Iuran Banjar", User: &u, Body: "Selamat datang, " + u.Name + "."})
		})
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			c.Logout(r.Context())
			http.Redirect(w, r, opts.Routes.Login, http.StatusSeeOther)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sess, opts, session.RoleAdmin))
		r.Get(opts.Routes.AdminLanding, func(w http.ResponseWriter, r *http.Request) {
			u, _ := middleware.UserFromContext(r.Context())
			render(w, http.StatusOK, page{Title: "Pengurus", User: &u, Body: "Halaman pengurus banjar."})
		})
	})

	return r, nil
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = consoleTmpl.Execute(w, p)
}

// restoreSession settles a persisted session before the listener accepts
// requests, so the first request does not see an anonymous session.
func restoreSession(ctx context.Context, c *iuran.Client, logger zerolog.Logger) {
	if c.Restore(ctx) {
		u := c.Session().Snapshot().User
		logger.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("restored session")
		return
	}
	logger.Debug().Msg("no persisted session")
}

func listen(ctx context.Context, logger zerolog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("console listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
