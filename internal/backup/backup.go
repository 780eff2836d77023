// Package backup writes and reads portable copies of the learner state.
//
// Exports are zstd-compressed JSON. Import also accepts uncompressed
// exports, a bare state object, and the local-storage dump of the browser
// front end ({"state": {...}, "version": N}).
package backup

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/mod/semver"

	"github.com/abhisek/aitutor/internal/store"
)

// Format tags an export envelope.
const Format = "aitutor-backup"

var (
	// ErrUnknownFormat means the input is not a recognised backup.
	ErrUnknownFormat = errors.New("backup: unknown format")

	// ErrUnsupportedVersion means the backup was written with a newer
	// layout than this build understands.
	ErrUnsupportedVersion = errors.New("backup: unsupported snapshot version")
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Envelope is the exported document.
type Envelope struct {
	Format     string             `json:"format"`
	ExportedAt time.Time          `json:"exportedAt"`
	Snapshot   store.SnapshotData `json:"snapshot"`
}

// Export writes data to w as a compressed envelope.
func Export(w io.Writer, data store.SnapshotData, now time.Time) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	env := Envelope{Format: Format, ExportedAt: now.UTC(), Snapshot: data}
	if err := json.NewEncoder(enc).Encode(env); err != nil {
		enc.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush backup: %w", err)
	}
	return nil
}

// Source says what kind of input Import recognised.
type Source string

const (
	SourceBackup  Source = "backup"
	SourceState   Source = "state"
	SourceBrowser Source = "browser"
)

// Result is a decoded import.
type Result struct {
	Source Source
	Data   store.SnapshotData

	// Warnings are non-fatal notes, such as a backup written by a newer
	// release.
	Warnings []string
}

// Import reads any supported format from r. appVersion is the running
// release and may be empty.
func Import(r io.Reader, appVersion string) (*Result, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var raw []byte
	var err error
	if bytes.Equal(head, zstdMagic) {
		raw, err = decompress(br)
	} else {
		raw, err = io.ReadAll(br)
	}
	if err != nil {
		return nil, err
	}

	res, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if res.Data.Version > store.CurrentSnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, res.Data.Version)
	}
	if newerRelease(res.Data.AppVersion, appVersion) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("backup was written by %s, newer than %s", res.Data.AppVersion, appVersion))
	}
	return res, nil
}

func decompress(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress backup: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*Result, error) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, ErrUnknownFormat
	}

	switch detect(raw) {
	case SourceBackup:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode backup: %w", err)
		}
		if env.Snapshot.Tutor == nil {
			return nil, fmt.Errorf("%w: backup has no tutor state", ErrUnknownFormat)
		}
		return &Result{Source: SourceBackup, Data: env.Snapshot}, nil
	case SourceBrowser:
		d, err := fromBrowser(raw)
		if err != nil {
			return nil, err
		}
		return &Result{Source: SourceBrowser, Data: store.SnapshotData{Version: store.CurrentSnapshotVersion, Tutor: d}}, nil
	case SourceState:
		d, err := tutorState(raw)
		if err != nil {
			return nil, err
		}
		return &Result{Source: SourceState, Data: store.SnapshotData{Version: store.CurrentSnapshotVersion, Tutor: d}}, nil
	}
	return nil, ErrUnknownFormat
}

func newerRelease(written, running string) bool {
	w, r := canonical(written), canonical(running)
	if w == "" || r == "" {
		return false
	}
	return semver.Compare(w, r) > 0
}

func canonical(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
