package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/aitutor/internal/store"
)

func sampleSnapshot() store.SnapshotData {
	practiced := "2026-03-01T09:00:00Z"
	return store.SnapshotData{
		Version:    store.CurrentSnapshotVersion,
		AppVersion: "v1.2.0",
		Tutor: &store.TutorSnapshotData{
			Profile:          store.ProfileData{Name: "Grace", MathComfort: "symbolic", CodingLevel: "advanced", Pace: "fast"},
			XP:               730,
			CompletedLessons: []string{"what-is-ml", "linear-regression"},
			ConceptMastery: map[string]store.ConceptMasteryData{
				"gradients": {ConceptName: "Gradients", MasteryLevel: 57.5, LastPracticed: &practiced},
			},
			Doubts: []store.DoubtData{{
				ID: "d1", Question: "Why square the error?", Answer: "It penalises large misses.",
				LessonID: "linear-regression", LessonTitle: "Linear Regression", Timestamp: practiced,
			}},
			ConsecutiveSuccesses: 2,
			CurrentLessonID:      "gradient-descent",
			CurrentStep:          1,
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	snap := sampleSnapshot()
	require.NoError(t, Export(&buf, snap, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, zstdMagic, buf.Bytes()[:4], "export is zstd compressed")

	res, err := Import(&buf, "v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, SourceBackup, res.Source)
	assert.Equal(t, snap, res.Data)
	assert.Empty(t, res.Warnings)
}

func TestImport_NewerReleaseWarns(t *testing.T) {
	var buf bytes.Buffer
	snap := sampleSnapshot()
	snap.AppVersion = "2.0.0"
	require.NoError(t, Export(&buf, snap, time.Now()))

	res, err := Import(&buf, "v1.2.0")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "2.0.0")
}

func TestImport_UnsupportedVersion(t *testing.T) {
	snap := sampleSnapshot()
	snap.Version = store.CurrentSnapshotVersion + 1
	raw, err := json.Marshal(Envelope{Format: Format, Snapshot: snap})
	require.NoError(t, err)

	_, err = Import(bytes.NewReader(raw), "")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestImport_BareState(t *testing.T) {
	raw, err := Marshal(sampleSnapshot().Tutor)
	require.NoError(t, err)

	res, err := Import(bytes.NewReader(raw), "")
	require.NoError(t, err)
	assert.Equal(t, SourceState, res.Source)
	assert.Equal(t, sampleSnapshot().Tutor, res.Data.Tutor)
}

func TestImport_BrowserLocalStorage(t *testing.T) {
	// 1772355600000 ms is 2026-03-01T09:00:00Z.
	raw := `{
	  "state": {
	    "profile": {"name": "Sam", "mathComfort": "visual", "codingLevel": "beginner", "pace": "slow"},
	    "xp": 250,
	    "completedLessons": ["what-is-ml"],
	    "conceptMastery": {
	      "supervised-learning": {"conceptName": "Supervised Learning", "masteryLevel": 42, "lastPracticed": 1772355600000},
	      "features": {"conceptName": "Features", "masteryLevel": 15.5, "lastPracticed": "2026-03-01T09:00:00.000Z"},
	      "labels": {"conceptName": "Labels", "masteryLevel": 0}
	    },
	    "doubts": [{"id": "x", "question": "What is a label?", "answer": "The target.", "lessonId": "what-is-ml", "lessonTitle": "What is ML?", "timestamp": 1772355600000}],
	    "consecutiveSuccesses": 0,
	    "isStruggling": true
	  },
	  "version": 0
	}`

	res, err := Import(strings.NewReader(raw), "")
	require.NoError(t, err)
	assert.Equal(t, SourceBrowser, res.Source)

	d := res.Data.Tutor
	require.NotNil(t, d)
	assert.Equal(t, "Sam", d.Profile.Name)
	assert.Equal(t, 250, d.XP)
	assert.True(t, d.IsStruggling)
	require.Len(t, d.ConceptMastery, 3)

	sl := d.ConceptMastery["supervised-learning"]
	require.NotNil(t, sl.LastPracticed)
	assert.Equal(t, "2026-03-01T09:00:00Z", *sl.LastPracticed)
	assert.Equal(t, "2026-03-01T09:00:00Z", *d.ConceptMastery["features"].LastPracticed)
	assert.Nil(t, d.ConceptMastery["labels"].LastPracticed, "never practiced")
	assert.Equal(t, 15.5, d.ConceptMastery["features"].MasteryLevel)

	require.Len(t, d.Doubts, 1)
	assert.Equal(t, "2026-03-01T09:00:00Z", d.Doubts[0].Timestamp)
}

func TestImport_UnknownFormat(t *testing.T) {
	for _, in := range []string{
		``,
		`not json at all`,
		`{"hello": "world"}`,
		`[1, 2, 3]`,
		`{"state": {"conceptMastery": {"x": 5}}}`,
		`{"format": "aitutor-backup", "snapshot": {"version": 1}}`,
	} {
		_, err := Import(strings.NewReader(in), "")
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("Import(%q) error = %v, want ErrUnknownFormat", in, err)
		}
	}
}

func TestImport_CorruptCompressedData(t *testing.T) {
	data := append(append([]byte{}, zstdMagic...), 0x00, 0x01, 0x02)
	_, err := Import(bytes.NewReader(data), "")
	assert.Error(t, err)
}
