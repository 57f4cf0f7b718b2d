// Persistence for the execution memory store.
package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// load reads the persisted tables. Missing or corrupt files initialize
// empty tables; a learned-pattern store must never block startup.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read memory file", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("memory file corrupt, starting empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return
	}
	s.data = p
}

// flush rewrites the store file. Write-through: called after every
// mutation so a crash loses at most the in-flight task, never learned
// patterns. Writes go to a temp file first and are renamed into place so
// a kill mid-flush cannot leave a partial file.
func (s *Store) flush() {
	if s.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.logger.Warn("could not create memory directory", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.logger.Error("could not encode memory", map[string]interface{}{"error": err.Error()})
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		s.logger.Warn("could not save memory", map[string]interface{}{
			"path":  tmp,
			"error": err.Error(),
		})
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn("could not replace memory file", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
	}
}
