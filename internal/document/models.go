package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a signature request. It only moves
// forward: PENDING -> SIGNED -> COMPLETED.
type Status int

const (
	StatusPending Status = iota + 1
	StatusSigned
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSigned:
		return "SIGNED"
	case StatusCompleted:
		return "COMPLETED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSigned, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus maps a stored/wire status string onto the enum.
func ParseStatus(v string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "PENDING":
		return StatusPending, nil
	case "SIGNED":
		return StatusSigned, nil
	case "COMPLETED":
		return StatusCompleted, nil
	}
	return 0, fmt.Errorf("unknown document status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON is spelled out so the status is always a JSON string.
func (s Status) MarshalJSON() ([]byte, error) {
	b, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(b))
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(v))
}

// DefaultTitle is used when a document is created without a title.
const DefaultTitle = "Document"

// Document is a signature request: a sender asks a recipient to sign.
type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	SignedAt    *time.Time `json:"signedAt"`
	FileData    *string    `json:"fileData,omitempty"`
	FileName    *string    `json:"fileName,omitempty"`
	FileType    *string    `json:"fileType,omitempty"`
}

// File is the optional payload attached at creation. It is stored as an
// opaque blob and never inspected.
type File struct {
	Data string
	Name string
	Type string
}

// Clone returns a copy that shares no pointers with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.SignedAt != nil {
		t := *d.SignedAt
		c.SignedAt = &t
	}
	c.FileData = cloneString(d.FileData)
	c.FileName = cloneString(d.FileName)
	c.FileType = cloneString(d.FileType)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
