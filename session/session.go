package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
)

// Cookie triple scoping one visitor's right to one submission record.
// The signature is the only write-access capability; the other two
// fields are not secret.
const (
	cookieSchema = "schema"
	cookieDir    = "dir"
	cookieSig    = "sig"
)

// Max-Age when expiry enforcement is disabled.
const defaultMaxAge = 365 * 24 * 60 * 60

// Session is the verified content of a cookie triple.
type Session struct {
	SchemaRef string // "/<survey>/index.schema.json"
	Dir       string // "/<survey>/YYYY/MM/DD/<uuid>"
}

type Manager struct {
	secret     []byte
	expiration bool
}

func NewManager(secret string, expiration bool) *Manager {
	return &Manager{secret: []byte(secret), expiration: expiration}
}

// Issue attaches a fresh cookie triple scoped to the survey path.
// Idempotent: if the presented cookies already verify, nothing is set.
func (m *Manager) Issue(w http.ResponseWriter, r *http.Request, surveyPath string, expiry time.Time) {
	if _, ok := m.Verify(r); ok {
		return
	}

	date := time.Now().UTC().Format("2006/01/02")
	schemaRef := path.Join(surveyPath, "index.schema.json")
	dir := path.Join(surveyPath, date, uuid.NewString())

	maxAge := defaultMaxAge
	if m.expiration {
		maxAge = int(time.Until(expiry).Seconds())
	}

	for name, value := range map[string]string{
		cookieSchema: schemaRef,
		cookieDir:    dir,
		cookieSig:    m.sign(schemaRef, dir),
	} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  value,
			Path:   surveyPath,
			MaxAge: maxAge,
		})
	}
}

// Verify recomputes the signature from the presented cookies. Any
// missing cookie, or a signature mismatch, invalidates the session.
func (m *Manager) Verify(r *http.Request) (Session, bool) {
	schemaRef, err := r.Cookie(cookieSchema)
	if err != nil {
		return Session{}, false
	}
	dir, err := r.Cookie(cookieDir)
	if err != nil {
		return Session{}, false
	}
	sig, err := r.Cookie(cookieSig)
	if err != nil {
		return Session{}, false
	}

	want := m.sign(schemaRef.Value, dir.Value)
	if !hmac.Equal([]byte(want), []byte(sig.Value)) {
		return Session{}, false
	}
	return Session{SchemaRef: schemaRef.Value, Dir: dir.Value}, true
}

func (m *Manager) sign(schemaRef, dir string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(schemaRef))
	mac.Write([]byte{0})
	mac.Write([]byte(dir))
	return hex.EncodeToString(mac.Sum(nil))
}
