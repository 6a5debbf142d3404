package document

import (
	"fmt"
	"strings"
	"time"
)

// Access is the outcome of the view predicate.
type Access int

const (
	AccessForbidden Access = iota
	AccessSender
	AccessRecipient
)

func (a Access) String() string {
	switch a {
	case AccessSender:
		return "sender"
	case AccessRecipient:
		return "recipient"
	case AccessForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Authorize decides how principalID may see d. Only the sender and the
// recipient can view a document; a self-addressed document is seen as sender.
func Authorize(principalID string, d *Document) Access {
	if d == nil || principalID == "" {
		return AccessForbidden
	}
	switch principalID {
	case d.SenderID:
		return AccessSender
	case d.RecipientID:
		return AccessRecipient
	}
	return AccessForbidden
}

// CanView is Authorize reduced to a yes/no answer.
func CanView(principalID string, d *Document) bool {
	return Authorize(principalID, d) != AccessForbidden
}

// next returns the only status reachable from s.
func next(s Status) (Status, bool) {
	switch s {
	case StatusPending:
		return StatusSigned, true
	case StatusSigned:
		return StatusCompleted, true
	case StatusCompleted:
		return 0, false
	}
	return 0, false
}

// Transition checks that moving from -> to follows the forward-only
// lifecycle, one step at a time.
func Transition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: unknown status transition %s -> %s", ErrInvalidState, from, to)
	}
	n, ok := next(from)
	if !ok || n != to {
		return fmt.Errorf("%w: document is %s and cannot become %s", ErrInvalidState, from, to)
	}
	return nil
}

// SignatureMode is how the recipient produced a signature.
type SignatureMode string

const (
	SignatureTyped SignatureMode = "type"
	SignatureDrawn SignatureMode = "draw"
)

// Signature is the payload submitted with a sign action. Typed signatures
// carry the typed name, drawn ones only report whether strokes were captured.
type Signature struct {
	Mode     SignatureMode
	Typed    string
	Strokes  int
	Complete bool
}

// Validate reports ErrValidation when the payload does not amount to a
// signature.
func (s Signature) Validate() error {
	switch s.Mode {
	case SignatureTyped:
		if strings.TrimSpace(s.Typed) == "" {
			return fmt.Errorf("%w: typed signature must not be empty", ErrValidation)
		}
		return nil
	case SignatureDrawn:
		if s.Strokes <= 0 && !s.Complete {
			return fmt.Errorf("%w: drawn signature has no strokes", ErrValidation)
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported signature mode %q", ErrValidation, s.Mode)
}

// SignUpdate is the single write a successful sign produces.
type SignUpdate struct {
	Status   Status
	SignedAt time.Time
}

// ValidateSign runs the sign preconditions in order; the first failure wins:
// missing document, actor is not the recipient, status is not PENDING,
// empty signature.
func ValidateSign(d *Document, actorID string, sig Signature, now time.Time) (*SignUpdate, error) {
	if d == nil {
		return nil, ErrNotFound
	}
	if actorID == "" || actorID != d.RecipientID {
		return nil, fmt.Errorf("%w: only the recipient may sign this document", ErrForbidden)
	}
	if d.Status != StatusPending {
		return nil, fmt.Errorf("%w: document is already %s", ErrInvalidState, d.Status)
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return &SignUpdate{Status: StatusSigned, SignedAt: now.UTC()}, nil
}

// ValidateComplete checks that actorID (the sender) may finalize a signed
// document.
func ValidateComplete(d *Document, actorID string) error {
	if d == nil {
		return ErrNotFound
	}
	if actorID == "" || actorID != d.SenderID {
		return fmt.Errorf("%w: only the sender may complete this document", ErrForbidden)
	}
	return Transition(d.Status, StatusCompleted)
}

// Validate checks the record-level invariants of d.
func Validate(d *Document) error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrValidation)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if d.SenderID == "" {
		return fmt.Errorf("%w: senderId is required", ErrValidation)
	}
	if d.RecipientID == "" {
		return fmt.Errorf("%w: recipientId is required", ErrValidation)
	}
	if d.RequestedAt.IsZero() {
		return fmt.Errorf("%w: requestedAt is required", ErrValidation)
	}
	switch d.Status {
	case StatusPending:
		if d.SignedAt != nil {
			return fmt.Errorf("%w: pending document has signedAt", ErrValidation)
		}
	case StatusSigned, StatusCompleted:
		if d.SignedAt == nil {
			return fmt.Errorf("%w: %s document has no signedAt", ErrValidation, d.Status)
		}
	default:
		return fmt.Errorf("%w: unknown status %s", ErrValidation, d.Status)
	}
	return nil
}

// Partition splits docs into the principal's inbox (pending requests
// addressed to them) and sent list (everything they created). Input order is
// preserved.
func Partition(docs []*Document, principalID string) (inbox, sent []*Document) {
	inbox = []*Document{}
	sent = []*Document{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		if d.RecipientID == principalID && d.Status == StatusPending {
			inbox = append(inbox, d)
		}
		if d.SenderID == principalID {
			sent = append(sent, d)
		}
	}
	return inbox, sent
}

// Visible keeps the documents principalID may view, in input order.
func Visible(docs []*Document, principalID string) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if CanView(principalID, d) {
			out = append(out, d)
		}
	}
	return out
}
