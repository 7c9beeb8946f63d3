// Package sessionstore implements the Orchestrator's persistence contract:
// a JSON metadata.json file per session under the configured persistence
// root, plus a pure-Go SQLite index for queryable history, grounded on
// spec.md §6 and the teacher's singleton-database idiom in
// pkg/persistence/db.go.
package sessionstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"codeforge/internal/logx"
	"codeforge/internal/model"
)

var log = logx.NewLogger("sessionstore")

// knownErrorKinds is the closed set schema validation accepts; anything
// else loaded from disk is rewritten to LOGIC per spec.md §6's migration
// rule before the record is used.
var knownErrorKinds = map[model.ErrorKind]bool{
	model.ErrorKindSyntax:             true,
	model.ErrorKindBuild:              true,
	model.ErrorKindRuntime:            true,
	model.ErrorKindLogic:              true,
	model.ErrorKindMissingCredentials: true,
}

// defaultPassphrase is used when the caller never attaches one via
// WithPassphrase; credentials are still encrypted at rest, just with a key
// anyone who can read this source can derive. Production deployments should
// call WithPassphrase with a value sourced from CODEFORGE_CREDENTIALS_PASSPHRASE.
const defaultPassphrase = "codeforge-default-credentials-key"

// Store writes and reads session records under a persistence root.
type Store struct {
	Root       string
	index      *Index // optional SQLite index; nil when not opened
	passphrase string
}

// New builds a Store rooted at root. The directory is created lazily on
// first save.
func New(root string) *Store {
	return &Store{Root: root, passphrase: defaultPassphrase}
}

// WithIndex attaches a SQLite index so saves are also recorded for
// cross-session querying.
func (s *Store) WithIndex(idx *Index) *Store {
	s.index = idx
	return s
}

// WithPassphrase sets the passphrase runtime credentials are encrypted
// under. Call this with a deployment-specific secret before the store ever
// saves a session carrying credentials.
func (s *Store) WithPassphrase(passphrase string) *Store {
	s.passphrase = passphrase
	return s
}

func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.Root, sessionID)
}

// SaveSession persists a single-file generation session's metadata.json
// and, when the session succeeded, its final generated file — the
// Orchestrator calls this only after the generate/build/test loop ends,
// never mid-iteration.
func (s *Store) SaveSession(session *model.Session) error {
	dir := s.sessionDir(session.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sessionstore: creating session directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionstore: marshaling session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644); err != nil {
		return fmt.Errorf("sessionstore: writing metadata.json: %w", err)
	}

	if len(session.RuntimeCredentials) > 0 {
		if err := EncryptCredentials(dir, s.passphrase, session.RuntimeCredentials); err != nil {
			return fmt.Errorf("sessionstore: encrypting runtime credentials: %w", err)
		}
	}

	if session.Success && len(session.FinalBundle.Files) > 0 {
		f := session.FinalBundle.Files[0]
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(f.Filename)), []byte(f.Body), 0o644); err != nil {
			return fmt.Errorf("sessionstore: writing final file: %w", err)
		}
	}

	if s.index != nil {
		if err := s.index.Record(session.ID, session.Requirement.Text, string(session.Requirement.Language), session.Success, session.CreatedAt.Unix()); err != nil {
			log.Warn("failed to record session %s in index: %v", session.ID, err)
		}
	}

	log.Info("saved session %s", session.ID)
	return nil
}

// SaveProjectSession persists a multi-file project session's metadata.json
// plus every generated file under files/<relative path>, mirroring the
// materialized tree.
func (s *Store) SaveProjectSession(session *model.ProjectSession) error {
	dir := s.sessionDir(session.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sessionstore: creating session directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionstore: marshaling project session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644); err != nil {
		return fmt.Errorf("sessionstore: writing metadata.json: %w", err)
	}

	if len(session.RuntimeCredentials) > 0 {
		if err := EncryptCredentials(dir, s.passphrase, session.RuntimeCredentials); err != nil {
			return fmt.Errorf("sessionstore: encrypting runtime credentials: %w", err)
		}
	}

	filesDir := filepath.Join(dir, "files")
	for _, f := range session.FinalBundle.Files {
		target := filepath.Join(filesDir, filepath.FromSlash(f.Filename))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("sessionstore: creating parent for %s: %w", f.Filename, err)
		}
		if err := os.WriteFile(target, []byte(f.Body), 0o644); err != nil {
			return fmt.Errorf("sessionstore: writing %s: %w", f.Filename, err)
		}
	}

	if s.index != nil {
		if err := s.index.Record(session.ID, session.Requirement.Text, string(session.Requirement.Language), session.Success, session.CreatedAt.Unix()); err != nil {
			log.Warn("failed to record session %s in index: %v", session.ID, err)
		}
	}

	log.Info("saved project session %s (%d files)", session.ID, len(session.FinalBundle.Files))
	return nil
}

// LoadSession reads a session's metadata.json, applying the
// unknown-error-kind-to-LOGIC migration rule before returning it.
func (s *Store) LoadSession(sessionID string) (*model.Session, error) {
	path := filepath.Join(s.sessionDir(sessionID), "metadata.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: reading %s: %w", path, err)
	}

	migrated, err := migrateErrorKinds(raw)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: migrating session %s: %w", sessionID, err)
	}

	var session model.Session
	if err := json.Unmarshal(migrated, &session); err != nil {
		return nil, fmt.Errorf("sessionstore: unmarshaling session %s: %w", sessionID, err)
	}

	creds, err := DecryptCredentials(s.sessionDir(sessionID), s.passphrase)
	if err == nil {
		session.RuntimeCredentials = creds
	}
	return &session, nil
}

// migrateErrorKinds rewrites any iteration's error_kind field that isn't in
// the known set to "LOGIC", operating on the raw JSON tree so the rule
// applies before typed unmarshaling can reject an unknown value.
func migrateErrorKinds(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	iterations, _ := doc["Iterations"].([]any)
	for _, it := range iterations {
		iter, ok := it.(map[string]any)
		if !ok {
			continue
		}
		errField, ok := iter["Error"].(map[string]any)
		if !ok {
			continue
		}
		kind, _ := errField["Kind"].(string)
		if kind != "" && !knownErrorKinds[model.ErrorKind(kind)] {
			errField["Kind"] = string(model.ErrorKindLogic)
		}
	}

	return json.Marshal(doc)
}

// SessionSummary is the lightweight listing record ListSessions returns.
type SessionSummary struct {
	ID           string
	Requirements string
	Language     string
	Success      bool
	CreatedAt    int64
}

// ListSessions enumerates every session directory under the persistence
// root that has a metadata.json, newest first.
func (s *Store) ListSessions() ([]SessionSummary, error) {
	entries, err := os.ReadDir(s.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore: reading persistence root: %w", err)
	}

	var summaries []SessionSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		session, err := s.LoadSession(e.Name())
		if err != nil {
			log.Debug("skipping %s: %v", e.Name(), err)
			continue
		}
		req := session.Requirement.Text
		if len(req) > 100 {
			req = req[:100] + "..."
		}
		summaries = append(summaries, SessionSummary{
			ID:           session.ID,
			Requirements: req,
			Language:     string(session.Requirement.Language),
			Success:      session.Success,
			CreatedAt:    session.CreatedAt.Unix(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt > summaries[j].CreatedAt })
	return summaries, nil
}
