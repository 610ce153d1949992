package http

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mediplan/mediplan/internal/web/domain"
	"github.com/mediplan/mediplan/pkg/httpx"
)

// pageTmpl is the shared shell for the gateway's own pages. The real
// front-end is a SPA served elsewhere; these pages cover the auth flow
// edges and the role landings.
var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - MediPlan</title>
</head>
<body>
<h1>{{.Heading}}</h1>
{{if .Message}}<p class="message">{{.Message}}</p>{{end}}
<ul>
{{range .Links}}<li><a href="{{.Href}}">{{.Label}}</a></li>
{{end}}</ul>
</body>
</html>
`))

type pageLink struct {
	Href  string
	Label string
}

type pageData struct {
	Title   string
	Heading string
	Message string
	Links   []pageLink
}

// PagesHandler renders the gateway's HTML pages.
type PagesHandler struct {
	Logger *slog.Logger
}

func (r *Router) registerPages() {
	h := &PagesHandler{Logger: r.logger}

	r.Mux.HandleFunc("GET /{$}", h.HandleRoot)
	r.Mux.HandleFunc("GET /login", h.HandleLogin)
	r.Mux.HandleFunc("GET /register", h.HandleRegister)
	r.Mux.HandleFunc("GET /unauthorized", h.HandleUnauthorized)

	r.Mux.HandleFunc("GET /admin/dashboard",
		r.Guard.RequireRole(domain.RoleAdmin, h.landing("Admin dashboard")))
	r.Mux.HandleFunc("GET /medic/appointments",
		r.Guard.RequireRole(domain.RoleMedic, h.landing("Appointment schedule")))
	r.Mux.HandleFunc("GET /pacient/home",
		r.Guard.RequireRole(domain.RolePacient, h.landing("My appointments")))
}

func (h *PagesHandler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	httpx.NoCache(w)
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		h.Logger.Error("failed to render page", "page", data.Title, "error", err.Error())
	}
}

// HandleRoot sends authenticated users to their landing page and everyone
// else to login.
func (h *PagesHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if raw := httpx.IdentityFromContext(r.Context()); raw != nil {
		if id, ok := raw.(*domain.Identity); ok {
			http.Redirect(w, r, id.Role.LandingPath(), http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// loginErrorMessages maps the error query parameter onto safe display text.
// Anything unknown gets a generic line, never the raw value.
var loginErrorMessages = map[string]string{
	"missing_code_or_verifier": "The sign-in attempt could not be completed. Please try again.",
	"exchange_failed":          "Sign-in failed. Please try again.",
	"internal":                 "Something went wrong on our side. Please try again.",
}

func (h *PagesHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var msg string
	if e := r.URL.Query().Get("error"); e != "" {
		msg = loginErrorMessages[e]
		if msg == "" {
			msg = "Sign-in failed. Please try again."
		}
	}

	h.render(w, http.StatusOK, pageData{
		Title:   "Sign in",
		Heading: "Sign in to MediPlan",
		Message: msg,
		Links: []pageLink{
			{Href: "/oauth/authorize?screen=login", Label: "Continue to sign in"},
			{Href: "/register", Label: "Create an account"},
		},
	})
}

func (h *PagesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{
		Title:   "Create account",
		Heading: "Create a MediPlan account",
		Links: []pageLink{
			{Href: "/oauth/authorize?screen=register", Label: "Continue to registration"},
			{Href: "/login", Label: "I already have an account"},
		},
	})
}

func (h *PagesHandler) HandleUnauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusForbidden, pageData{
		Title:   "Not allowed",
		Heading: "You do not have access to that page",
		Links: []pageLink{
			{Href: "/", Label: "Back to your home page"},
		},
	})
}

// landing builds a role area landing page handler.
func (h *PagesHandler) landing(heading string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{
			Title:   heading,
			Heading: heading,
			Links: []pageLink{
				{Href: "/api/me", Label: "My profile"},
			},
		}

		if raw := httpx.IdentityFromContext(r.Context()); raw != nil {
			if id, ok := raw.(*domain.Identity); ok && id.Name != "" {
				data.Message = "Signed in as " + id.Name
			}
		}

		h.render(w, http.StatusOK, data)
	}
}
