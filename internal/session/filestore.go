// JSONL file persistence for sessions.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JSONL record types. A session file is one header line, one line per
// event, and a footer with the final state.
const (
	RecordTypeHeader = "header"
	RecordTypeEvent  = "event"
	RecordTypeFooter = "footer"
)

// JSONLRecord is a wrapper for JSONL lines with type discrimination.
type JSONLRecord struct {
	RecordType string `json:"_type"`

	// Header fields
	ID        string    `json:"id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Event fields
	*Event `json:",omitempty"`

	// Footer fields
	Status    string    `json:"status,omitempty"`
	Result    string    `json:"result,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// FileStore implements Store on the filesystem, one .jsonl per session.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file path for a session ID.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Save persists a session, rewriting the whole file. Sessions are small
// (one task's events) so whole-file rewrites keep the format simple.
func (s *FileStore) Save(sess *Session) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	f, err := os.Create(s.Path(sess.ID))
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	header := JSONLRecord{
		RecordType: RecordTypeHeader,
		ID:         sess.ID,
		TaskID:     sess.TaskID,
		Goal:       sess.Goal,
		CreatedAt:  sess.CreatedAt,
	}
	if err := enc.Encode(header); err != nil {
		return err
	}

	for i := range sess.Events {
		record := JSONLRecord{
			RecordType: RecordTypeEvent,
			Event:      &sess.Events[i],
		}
		if err := enc.Encode(record); err != nil {
			return err
		}
	}

	footer := JSONLRecord{
		RecordType: RecordTypeFooter,
		Status:     sess.Status,
		Result:     sess.Result,
		UpdatedAt:  sess.UpdatedAt,
	}
	if err := enc.Encode(footer); err != nil {
		return err
	}
	return w.Flush()
}

// Load reads a session by ID.
func (s *FileStore) Load(id string) (*Session, error) {
	return LoadFile(s.Path(id))
}

// LoadFile reads a session from an arbitrary JSONL path.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess := &Session{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record JSONLRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("parsing session line: %w", err)
		}
		switch record.RecordType {
		case RecordTypeHeader:
			sess.ID = record.ID
			sess.TaskID = record.TaskID
			sess.Goal = record.Goal
			sess.CreatedAt = record.CreatedAt
		case RecordTypeEvent:
			if record.Event != nil {
				sess.Events = append(sess.Events, *record.Event)
			}
		case RecordTypeFooter:
			sess.Status = record.Status
			sess.Result = record.Result
			sess.UpdatedAt = record.UpdatedAt
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("%s: missing session header", path)
	}
	if len(sess.Events) > 0 {
		sess.seqCounter = sess.Events[len(sess.Events)-1].SeqID
	}
	return sess, nil
}
