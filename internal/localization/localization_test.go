package localization_test

import (
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLocalizer_Fallbacks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "en.json", `{"greeting": "Hello", "status_NEW": "New", "only_en": "English only"}`)
	writeFile(t, dir, "uk.json", `{"greeting": "Привіт", "status_NEW": "Нова"}`)
	writeFile(t, dir, "notes.txt", "ignored")

	l, err := localization.NewLocalizer(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "uk"}, l.Languages())
	assert.Equal(t, "Привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "English only", l.GetString("uk", "only_en"))
	assert.Equal(t, "Hello", l.GetString("de", "greeting"))
	assert.Equal(t, "missing_key", l.GetString("uk", "missing_key"))

	assert.Equal(t, "Нова", l.StatusLabel("uk", models.StatusNew))
	assert.Equal(t, "CLOSED", l.StatusLabel("uk", models.StatusClosed))
}

func TestLocalizer_Format(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "en.json", `{"event_created": "New complaint #%d"}`)

	l, err := localization.NewLocalizer(dir)
	require.NoError(t, err)

	assert.Equal(t, "New complaint #7", l.Format("en", "event_created", 7))
}

func TestLocalizer_Errors(t *testing.T) {
	_, err := localization.NewLocalizer(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "en.json", `{not json`)
	_, err = localization.NewLocalizer(dir)
	assert.Error(t, err)
}

func TestLocalizer_ShippedFilesAgree(t *testing.T) {
	l, err := localization.NewLocalizer(".")
	require.NoError(t, err)

	langs := l.Languages()
	require.Contains(t, langs, "en")
	require.Contains(t, langs, "uk")

	for _, status := range models.Statuses {
		for _, lang := range langs {
			assert.NotEqual(t, string(status), l.StatusLabel(lang, status), "%s label missing for %s", lang, status)
		}
	}
}
