package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/abhisek/aitutor/internal/store"
)

// detect classifies a JSON document by its top-level keys.
func detect(raw []byte) Source {
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Get("format").String() == Format:
		return SourceBackup
	case doc.Get("state").IsObject():
		return SourceBrowser
	case doc.Get("xp").Exists() || doc.Get("conceptMastery").Exists() || doc.Get("profile").IsObject():
		return SourceState
	}
	return ""
}

// fromBrowser reads the persisted store of the browser front end. Its
// timestamps may be ISO strings or epoch milliseconds.
func fromBrowser(raw []byte) (*store.TutorSnapshotData, error) {
	state := gjson.GetBytes(raw, "state")
	return tutorState([]byte(state.Raw))
}

func tutorState(raw []byte) (*store.TutorSnapshotData, error) {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, ErrUnknownFormat
	}

	d := &store.TutorSnapshotData{
		Profile: store.ProfileData{
			Name:        doc.Get("profile.name").String(),
			MathComfort: doc.Get("profile.mathComfort").String(),
			CodingLevel: doc.Get("profile.codingLevel").String(),
			Pace:        doc.Get("profile.pace").String(),
		},
		XP:                   int(doc.Get("xp").Int()),
		ConceptMastery:       make(map[string]store.ConceptMasteryData),
		ConsecutiveSuccesses: int(doc.Get("consecutiveSuccesses").Int()),
		ConsecutiveFailures:  int(doc.Get("consecutiveFailures").Int()),
		IsStruggling:         doc.Get("isStruggling").Bool(),
		CurrentLessonID:      doc.Get("currentLessonId").String(),
		CurrentStep:          int(doc.Get("currentStep").Int()),
	}

	for _, id := range doc.Get("completedLessons").Array() {
		d.CompletedLessons = append(d.CompletedLessons, id.String())
	}

	var bad error
	doc.Get("conceptMastery").ForEach(func(key, v gjson.Result) bool {
		if !v.IsObject() {
			bad = fmt.Errorf("%w: concept %q is not an object", ErrUnknownFormat, key.String())
			return false
		}
		cm := store.ConceptMasteryData{
			ConceptName:  v.Get("conceptName").String(),
			MasteryLevel: v.Get("masteryLevel").Float(),
		}
		if ts, ok := timestamp(v.Get("lastPracticed")); ok {
			cm.LastPracticed = &ts
		}
		d.ConceptMastery[key.String()] = cm
		return true
	})
	if bad != nil {
		return nil, bad
	}

	for _, v := range doc.Get("doubts").Array() {
		ts, _ := timestamp(v.Get("timestamp"))
		d.Doubts = append(d.Doubts, store.DoubtData{
			ID:          v.Get("id").String(),
			Question:    v.Get("question").String(),
			Answer:      v.Get("answer").String(),
			LessonID:    v.Get("lessonId").String(),
			LessonTitle: v.Get("lessonTitle").String(),
			Timestamp:   ts,
		})
	}
	return d, nil
}

// timestamp normalises an ISO string or epoch-millisecond number to
// RFC 3339.
func timestamp(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC().Format(time.RFC3339Nano), true
	case gjson.String:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00"} {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return t.UTC().Format(time.RFC3339Nano), true
			}
		}
	}
	return "", false
}

// Marshal renders state as indented JSON, the bare-state import format.
func Marshal(d *store.TutorSnapshotData) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
