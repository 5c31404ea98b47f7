package nfc

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/model"
)

// maxPings caps the on-disk scan log.
const maxPings = 1000

// Store maps tag ids to a denormalized task record and keeps the capped
// scan log. Mapping targets are deliberately not validated against the task
// store: a mapping may name a title that no longer exists, or carry an empty
// title ("empty" mapping awaiting assignment).
//
// Persistence follows the task store's contract: whole-file rewrite on every
// mutation, failures logged and swallowed.
type Store struct {
	mu           sync.Mutex
	mappingsPath string
	pingsPath    string
	mappings     map[string]model.Task
	pings        []Ping
	logger       *log.Logger
}

func NewStore(dataDir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		mappingsPath: filepath.Join(dataDir, "nfc_mappings.json"),
		pingsPath:    filepath.Join(dataDir, "nfc_pings.json"),
		mappings:     map[string]model.Task{},
		logger:       logger,
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	if b, err := os.ReadFile(s.mappingsPath); err == nil {
		// Values may be legacy plain strings (title only); the Task
		// unmarshaller upgrades both forms to full records.
		var loaded map[string]model.Task
		if err := json.Unmarshal(b, &loaded); err != nil {
			s.logger.Printf("nfc: load mappings failed: %v", err)
		} else if loaded != nil {
			s.mappings = loaded
		}
	} else if !os.IsNotExist(err) {
		s.logger.Printf("nfc: load mappings failed: %v", err)
	}

	if b, err := os.ReadFile(s.pingsPath); err == nil {
		var loaded []Ping
		if err := json.Unmarshal(b, &loaded); err != nil {
			s.logger.Printf("nfc: load pings failed: %v", err)
		} else {
			s.pings = loaded
		}
	} else if !os.IsNotExist(err) {
		s.logger.Printf("nfc: load pings failed: %v", err)
	}

	s.logger.Printf("nfc: loaded %d mappings, %d pings", len(s.mappings), len(s.pings))
}

func (s *Store) saveMappingsLocked() {
	b, err := json.MarshalIndent(s.mappings, "", "  ")
	if err != nil {
		s.logger.Printf("nfc: save mappings failed: %v", err)
		return
	}
	if err := os.WriteFile(s.mappingsPath, b, 0o644); err != nil {
		s.logger.Printf("nfc: save mappings failed: %v", err)
	}
}

func (s *Store) savePingsLocked() {
	b, err := json.MarshalIndent(s.pings, "", "  ")
	if err != nil {
		s.logger.Printf("nfc: save pings failed: %v", err)
		return
	}
	if err := os.WriteFile(s.pingsPath, b, 0o644); err != nil {
		s.logger.Printf("nfc: save pings failed: %v", err)
	}
}

// Map stores a synthesized default record for the given title, overwriting
// any prior mapping for the tag. An empty title records an "empty" mapping.
func (s *Store) Map(tagID, title string) {
	s.MapRecord(tagID, model.NewTask(title, 0, 0, nil))
}

// MapRecord stores a full task-shaped record for the tag.
func (s *Store) MapRecord(tagID string, t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, had := s.mappings[tagID]
	s.mappings[tagID] = t.Clone()
	s.saveMappingsLocked()
	if had {
		s.logger.Printf("nfc: remapped %s from %q to %q", tagID, old.Title, t.Title)
	} else {
		s.logger.Printf("nfc: mapped %s to %q", tagID, t.Title)
	}
}

// Unmap removes a mapping, reporting whether one existed.
func (s *Store) Unmap(tagID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[tagID]; !ok {
		return false
	}
	delete(s.mappings, tagID)
	s.saveMappingsLocked()
	s.logger.Printf("nfc: removed mapping for %s", tagID)
	return true
}

// Lookup returns a copy of the record mapped to the tag.
func (s *Store) Lookup(tagID string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.mappings[tagID]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// All returns a copy of every mapping.
func (s *Store) All() map[string]model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.Task, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v.Clone()
	}
	return out
}

// TagsForTitle returns every tag id mapped to the title, case-insensitively.
// Multiple tags may target the same title.
func (s *Store) TagsForTitle(title string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := strings.ToLower(title)
	var tags []string
	for tagID, t := range s.mappings {
		if strings.ToLower(t.Title) == want {
			tags = append(tags, tagID)
		}
	}
	sort.Strings(tags)
	return tags
}

// BulkImport maps every non-empty pair, returning the count imported.
func (s *Store) BulkImport(pairs map[string]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for tagID, title := range pairs {
		if tagID == "" || title == "" {
			continue
		}
		s.mappings[tagID] = model.NewTask(title, 0, 0, nil)
		count++
	}
	if count > 0 {
		s.saveMappingsLocked()
		s.logger.Printf("nfc: bulk imported %d mappings", count)
	}
	return count
}

// Clear drops all mappings, returning how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.mappings)
	s.mappings = map[string]model.Task{}
	s.saveMappingsLocked()
	s.logger.Printf("nfc: cleared %d mappings", count)
	return count
}

// LogPing appends an entry, truncates the log to the most recent maxPings
// and persists. The timestamp is stamped here when absent.
func (s *Store) LogPing(p Ping) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Timestamp == "" {
		p.Timestamp = model.Timestamp()
	}
	if p.Reader == "" {
		p.Reader = "unknown"
	}
	s.pings = append(s.pings, p)
	if len(s.pings) > maxPings {
		s.pings = append([]Ping(nil), s.pings[len(s.pings)-maxPings:]...)
	}
	s.savePingsLocked()
	s.logger.Printf("nfc: ping %s -> %s", p.TagID, p.Action)
}

// RecentPings returns the last limit entries in append order.
func (s *Store) RecentPings(limit int) []Ping {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.pings) {
		limit = len(s.pings)
	}
	out := make([]Ping, limit)
	copy(out, s.pings[len(s.pings)-limit:])
	return out
}

// Stats summarizes mappings and recent usage.
type Stats struct {
	TotalMappings    int          `json:"total_mappings"`
	UniqueTaskTitles int          `json:"unique_task_titles"`
	RecentPingCount  int          `json:"recent_ping_count"`
	MostUsedTag      *MostUsedTag `json:"most_used_tag,omitempty"`
}

type MostUsedTag struct {
	TagID      string `json:"tag_id"`
	UsageCount int    `json:"usage_count"`
	MappedTask string `json:"mapped_task"`
}

// Stats computes counters over the mappings and the most recent 100 pings.
// most_used_tag ties break toward the lexicographically smallest tag id.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := map[string]bool{}
	for _, t := range s.mappings {
		titles[strings.ToLower(t.Title)] = true
	}

	recent := s.pings
	if len(recent) > 100 {
		recent = recent[len(recent)-100:]
	}

	st := Stats{
		TotalMappings:    len(s.mappings),
		UniqueTaskTitles: len(titles),
		RecentPingCount:  len(recent),
	}

	usage := map[string]int{}
	for _, p := range recent {
		if p.TagID != "" {
			usage[p.TagID]++
		}
	}
	if len(usage) > 0 {
		var best string
		for tagID, n := range usage {
			if best == "" || n > usage[best] || (n == usage[best] && tagID < best) {
				best = tagID
			}
		}
		mapped := "Unmapped"
		if t, ok := s.mappings[best]; ok {
			mapped = t.Title
		}
		st.MostUsedTag = &MostUsedTag{
			TagID:      best,
			UsageCount: usage[best],
			MappedTask: mapped,
		}
	}
	return st
}
