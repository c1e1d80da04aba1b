// Package session persists browser identity and cookie state between runs.
// Two files sit at the configured state path: the snapshot file holds the
// captured browser storage, and a derived sidecar holds the identity.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/serpdriver/serpdriver/internal/fingerprint"
	"github.com/serpdriver/serpdriver/internal/logger"
)

// sidecarMarker is appended to the base name so the identity file sits
// beside, not in place of, the snapshot path.
const sidecarMarker = "-fingerprint"

// Identity is the persisted browser identity, stored in the sidecar file.
type Identity struct {
	Fingerprint fingerprint.Config `json:"fingerprint"`
	GoogleURL   string             `json:"googleUrl,omitempty"`
	SavedAt     time.Time          `json:"savedAt"`
}

// Snapshot is the captured browser storage, stored at the state path.
type Snapshot struct {
	Cookies []*proto.NetworkCookie `json:"cookies,omitempty"`
	SavedAt time.Time              `json:"savedAt"`
}

// State is the in-memory combination of both files for one logical session.
type State struct {
	Fingerprint fingerprint.Config
	GoogleURL   string
	Cookies     []*proto.NetworkCookie
}

// SidecarPath derives the identity sidecar path from a state path.
// "state.json" becomes "state-fingerprint.json"; an extensionless path
// gets the marker appended.
func SidecarPath(statePath string) string {
	ext := filepath.Ext(statePath)
	base := strings.TrimSuffix(statePath, ext)
	return base + sidecarMarker + ext
}

// Store reads and writes session state files.
type Store struct {
	log *logger.Logger
}

// NewStore creates a store logging through the given logger.
func NewStore(log *logger.Logger) *Store {
	return &Store{log: log.WithComponent("session")}
}

// Load reads both files for statePath. Missing or unreadable files yield
// zero values so a fresh identity gets synthesized; corruption is logged,
// never returned as an error.
func (s *Store) Load(statePath string) State {
	var state State

	var identity Identity
	if s.readJSON(SidecarPath(statePath), &identity) {
		state.Fingerprint = identity.Fingerprint
		state.GoogleURL = identity.GoogleURL
	}

	var snapshot Snapshot
	if s.readJSON(statePath, &snapshot) {
		state.Cookies = snapshot.Cookies
	}

	s.log.Event(logger.DebugLevel).
		Str("path", statePath).
		Int("cookies", len(state.Cookies)).
		Str("device", state.Fingerprint.DeviceName).
		Msg("Loaded session state")
	return state
}

func (s *Store) readJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Event(logger.WarnLevel).Err(err).Str("path", path).Msg("Failed to read session file, starting fresh")
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Event(logger.WarnLevel).Err(err).Str("path", path).Msg("Corrupt session file, starting fresh")
		return false
	}
	return true
}

// Save writes the snapshot and the identity sidecar, creating parent
// directories as needed. When noSave is set nothing touches disk.
func (s *Store) Save(statePath string, state State, noSave bool) error {
	if noSave {
		s.log.Debug("Session persistence disabled, skipping save")
		return nil
	}

	if dir := filepath.Dir(statePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	now := time.Now()
	snapshot := Snapshot{Cookies: state.Cookies, SavedAt: now}
	if err := writeJSON(statePath, snapshot); err != nil {
		return err
	}

	identity := Identity{Fingerprint: state.Fingerprint, GoogleURL: state.GoogleURL, SavedAt: now}
	if err := writeJSON(SidecarPath(statePath), identity); err != nil {
		return err
	}

	s.log.Event(logger.DebugLevel).
		Str("path", statePath).
		Int("cookies", len(state.Cookies)).
		Msg("Saved session state")
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CookieParams converts a captured cookie snapshot into the parameter form
// the browser accepts on replay.
func CookieParams(cookies []*proto.NetworkCookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  proto.TimeSinceEpoch(c.Expires),
		})
	}
	return params
}
