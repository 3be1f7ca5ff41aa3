package routes

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/mbolis/sparta-forms/app"
	"github.com/mbolis/sparta-forms/httpx"
	"github.com/mbolis/sparta-forms/log"
	"github.com/mbolis/sparta-forms/schema"
	"github.com/mbolis/sparta-forms/store"
)

// maxBodySize bounds submission bodies; anything beyond it is 413.
const maxBodySize = 5 * 1024

// ServeSurvey serves static assets under the public root, attaching a
// session cookie whenever it serves a survey's HTML.
func ServeSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if path.Ext(p) == "" && !strings.HasSuffix(p, "/") {
			// extensionless files can't be served: treat as a
			// directory and canonicalize
			w.Header().Set("Location", p+"/")
			w.WriteHeader(http.StatusMovedPermanently)
			return
		}

		urlPath := path.Clean("/" + p)
		if strings.HasSuffix(p, "/") {
			urlPath = path.Join(urlPath, "index.html")
		}
		file := filepath.Join(app.PublicDir, filepath.FromSlash(urlPath))

		stat, err := os.Stat(file)
		if err != nil {
			if os.IsNotExist(err) {
				httpx.LogNotFound(w, "serve.stat", urlPath)
			} else {
				httpx.LogInternalError(w, "serve.stat", err)
			}
			return
		}
		if !stat.Mode().IsRegular() {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "serve.irregular")
			return
		}

		if !surveyAdmitted(app, file, stat) {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel,
				"serve.expired", "survey %s is closed", path.Dir(urlPath))
			return
		}

		if strings.HasSuffix(file, ".html") {
			app.Sessions.Issue(w, r, path.Dir(urlPath), stat.ModTime())
		}

		f, err := os.Open(file)
		if err != nil {
			httpx.LogInternalError(w, "serve.open", err)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, filepath.Base(file), stat.ModTime(), f)
	}
}

// A survey page must carry a future mtime to admit visitors: touching
// it into the future schedules the survey, letting it fall into the
// past closes it. Only the survey's own index page is gated; the site
// root and nested assets always serve.
func surveyAdmitted(app app.App, file string, stat os.FileInfo) bool {
	if !app.Expiration {
		return true
	}
	if filepath.Base(file) != "index.html" {
		return true
	}
	if file == filepath.Join(app.PublicDir, "index.html") {
		return true
	}
	return stat.ModTime().After(time.Now())
}

// SubmitSurvey validates and stores one form submission for a session
// established by ServeSurvey.
func SubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := app.Sessions.Verify(r)
		if !ok {
			httpx.LogStatus(w, http.StatusPreconditionFailed, log.DebugLevel, "submit.session")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpx.LogStatus(w, http.StatusRequestEntityTooLarge, log.DebugLevel, "submit.body_size")
			} else {
				httpx.LogInternalError(w, "submit.read_body", err)
			}
			return
		}

		form, err := url.ParseQuery(string(body))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "submit.parse_body")
			return
		}

		meta := store.Meta{UserAgent: r.UserAgent(), IP: clientIP(r)}

		var invalid *schema.ValidationError
		_, err = app.Store.Save(sess, form, meta)
		switch {
		case err == nil:
			w.Header().Set("Location", "/posted.html?from="+url.QueryEscape(r.URL.RequestURI()))
			w.WriteHeader(http.StatusSeeOther)

		case errors.Is(err, store.ErrEditQuota):
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "submit.edit_quota")

		case errors.Is(err, store.ErrSchemaUnavailable):
			// a deployment defect, not user input
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.ErrorLevel,
				"submit.schema", "survey cannot accept submissions: %s", err)

		case errors.As(err, &invalid):
			log.Debugf("submit.validate: %s", invalid)
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]any{"errors": invalid.Issues})

		default:
			httpx.LogInternalError(w, "submit.save", err)
		}
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
