package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mbolis/sparta-forms/log"
	"github.com/mbolis/sparta-forms/model"
	"github.com/mbolis/sparta-forms/schema"
	"github.com/mbolis/sparta-forms/session"
)

const (
	// RecordFile holds the submission document in a record directory.
	RecordFile = "results.json"

	// editWindow is how long after the last edit a session stays
	// writable. Past it the record is read-only for good.
	editWindow = 5 * time.Minute
)

// replayAssets are (re)linked into every record directory on save, so
// the directory stays independently servable as a read-only, pre-filled
// rendition of the original form.
var replayAssets = []string{"index.html", "form.js"}

var (
	// ErrEditQuota rejects a save over the edit count or past the
	// edit window.
	ErrEditQuota = errors.New("edit quota or window exceeded")

	// ErrSchemaUnavailable marks a survey whose schema cannot be
	// derived or compiled; no submission for it can succeed.
	ErrSchemaUnavailable = errors.New("survey schema unavailable")
)

// Meta captures who performed an edit.
type Meta struct {
	UserAgent string
	IP        string
}

type Store struct {
	dataDir   string
	publicDir string
	maxEdits  int
	schemas   *schema.Cache
}

func New(dataDir, publicDir string, maxEdits int, schemas *schema.Cache) *Store {
	return &Store{
		dataDir:   dataDir,
		publicDir: publicDir,
		maxEdits:  maxEdits,
		schemas:   schemas,
	}
}

// Save validates one submission for a verified session and persists it
// in the session's record directory. Earlier side effects are not
// rolled back when a later step fails.
func (s *Store) Save(sess session.Session, form url.Values, meta Meta) (string, error) {
	dir, err := s.resolve(sess.Dir)
	if err != nil {
		return "", err
	}

	record := s.load(filepath.Join(dir, RecordFile))
	now := time.Now()

	if s.maxEdits > 0 && record != nil {
		if record.Edits.Total >= s.maxEdits {
			return "", ErrEditQuota
		}
		if now.UnixMilli()-record.Edits.Last > editWindow.Milliseconds() {
			return "", ErrEditQuota
		}
	}

	edits := model.Edits{
		Total:     1,
		Last:      now.UnixMilli(),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}
	if record != nil {
		edits.Total = record.Edits.Total + 1
	}

	validator, err := s.schemas.Get(sess.SchemaRef)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSchemaUnavailable, err)
	}
	payload, err := validator.Validate(form)
	if err != nil {
		return "", err
	}

	if err := s.write(dir, model.Record{User: payload, Edits: edits}); err != nil {
		return "", err
	}
	if err := s.linkAssets(dir, path.Dir(sess.SchemaRef)); err != nil {
		return "", err
	}
	return dir, nil
}

// resolve maps a session directory token to an absolute path under the
// data root. Tokens are signed, but a traversal outside the root is
// still refused.
func (s *Store) resolve(dirToken string) (string, error) {
	cleaned := path.Clean("/" + dirToken)
	if cleaned == "/" {
		return "", fmt.Errorf("irregular session directory %q", dirToken)
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(cleaned)), nil
}

// load reads an existing record; absence (or an unreadable record) is
// a first edit, not an error.
func (s *Store) load(file string) *model.Record {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil
	}
	var record model.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		log.Debugf("store.load %s: %s", file, err)
		return nil
	}
	return &record
}

// write creates the record directory and replaces results.json through
// a temp file and rename, so a crash never leaves a torn record.
func (s *Store) write(dir string, record model.Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*")
	if err != nil {
		return fmt.Errorf("create record file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close record file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, RecordFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace record file: %w", err)
	}
	return nil
}

// linkAssets points the replay assets at the survey's canonical static
// files, replacing any previous links.
func (s *Store) linkAssets(dir, surveyPath string) error {
	for _, asset := range replayAssets {
		target := filepath.Join(s.publicDir, filepath.FromSlash(surveyPath), asset)
		link := filepath.Join(dir, asset)
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("unlink %s: %w", asset, err)
		}
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("link %s: %w", asset, err)
		}
	}
	return nil
}
