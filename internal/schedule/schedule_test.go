package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSlots(t *testing.T) {
	slots := Default()
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.NotEmpty(t, s.Doctor)
		assert.NotEmpty(t, s.Time)
		assert.NotEmpty(t, s.Specialty)
	}
}

func TestSpoken(t *testing.T) {
	s := Slot{Doctor: "Dr. Lee", Time: "Wednesday at 9:15 AM", Specialty: "Family Medicine"}
	assert.Equal(t, "Wednesday at 9:15 AM with Dr. Lee (Family Medicine)", s.Spoken())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slots.json")
	payload := `[{"doctor":"Dr. A","time":"Monday at 9:00 AM","specialty":"Dermatology"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	slots, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Dr. A", slots[0].Doctor)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
