package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeforge/internal/model"
)

func testSession(t *testing.T) *model.Session {
	t.Helper()
	s := model.NewSession(model.Requirement{Text: "build a thing", Language: model.LanguagePython}, 5, nil)
	s.Status = model.StageSuccess
	s.Success = true
	s.FinalBundle.Files = []model.FileArtifact{model.NewFileArtifact("main.py", "print('hi')\n")}
	s.Iterations = []model.IterationLog{
		{Number: 1, Error: &model.ErrorInfo{Kind: model.ErrorKindBuild, RootCause: "bad import"}},
	}
	return s
}

func TestSaveAndLoadSessionRoundTrips(t *testing.T) {
	store := New(t.TempDir())
	s := testSession(t)

	require.NoError(t, store.SaveSession(s))

	loaded, err := store.LoadSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.True(t, loaded.Success)
	assert.Equal(t, model.ErrorKindBuild, loaded.Iterations[0].Error.Kind)
}

func TestLoadSessionMigratesUnknownErrorKindToLogic(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	s := testSession(t)
	require.NoError(t, store.SaveSession(s))

	// Tamper with the persisted metadata.json to simulate a historical
	// error_kind value that no longer exists in the current schema.
	path := filepath.Join(dir, s.ID, "metadata.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	iterations := doc["Iterations"].([]any)
	iter := iterations[0].(map[string]any)
	iter["Error"].(map[string]any)["Kind"] = "NETWORK_TIMEOUT"
	tampered, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, tampered))

	loaded, err := store.LoadSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ErrorKindLogic, loaded.Iterations[0].Error.Kind)
}

func TestListSessionsSortsNewestFirstAndTruncatesRequirements(t *testing.T) {
	store := New(t.TempDir())

	older := testSession(t)
	older.Requirement.Text = "short"
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.SaveSession(older))

	newer := testSession(t)
	longText := ""
	for i := 0; i < 20; i++ {
		longText += "0123456789"
	}
	newer.Requirement.Text = longText
	newer.CreatedAt = time.Now().UTC()
	require.NoError(t, store.SaveSession(newer))

	summaries, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, newer.ID, summaries[0].ID)
	assert.Equal(t, older.ID, summaries[1].ID)
	assert.Len(t, summaries[0].Requirements, 103) // 100 chars + "..."
}

func TestSaveProjectSessionWritesFilesUnderFilesDir(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	ps := &model.ProjectSession{Session: *testSession(t)}
	ps.FinalBundle.Files = []model.FileArtifact{
		model.NewFileArtifact("src/main.py", "print('hi')\n"),
		model.NewFileArtifact("tests/test_main.py", "def test_x(): pass\n"),
	}

	require.NoError(t, store.SaveProjectSession(ps))

	data, err := os.ReadFile(filepath.Join(dir, ps.ID, "files", "src", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))
}

func TestEncryptDecryptCredentialsRoundTrips(t *testing.T) {
	dir := t.TempDir()
	creds := map[string]string{"API_KEY": "sk-test-123", "DB_PASSWORD": "hunter2"}

	require.NoError(t, EncryptCredentials(dir, "correct-passphrase", creds))

	decrypted, err := DecryptCredentials(dir, "correct-passphrase")
	require.NoError(t, err)
	assert.Equal(t, creds, decrypted)
}

func TestDecryptCredentialsFailsWithWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptCredentials(dir, "right", map[string]string{"K": "V"}))

	_, err := DecryptCredentials(dir, "wrong")
	assert.Error(t, err)
}

func TestSaveSessionEncryptsRuntimeCredentialsAndExcludesThemFromMetadata(t *testing.T) {
	dir := t.TempDir()
	store := New(dir).WithPassphrase("test-passphrase")

	s := testSession(t)
	s.RuntimeCredentials = map[string]string{"API_KEY": "super-secret-value"}
	require.NoError(t, store.SaveSession(s))

	raw, err := os.ReadFile(filepath.Join(dir, s.ID, "metadata.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret-value")

	encData, err := os.ReadFile(filepath.Join(dir, s.ID, credentialsFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(encData), "super-secret-value")

	loaded, err := store.LoadSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", loaded.RuntimeCredentials["API_KEY"])
}

func TestEncryptCredentialsFileIsNotPlaintext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptCredentials(dir, "pw", map[string]string{"SECRET_TOKEN": "unmistakable-plaintext-marker"}))

	data, err := os.ReadFile(filepath.Join(dir, credentialsFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "unmistakable-plaintext-marker")
}
