package document

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alex  = "user-alex"
	blake = "user-blake"
	casey = "user-casey"
)

func pendingDoc() *Document {
	return &Document{
		ID:          "doc-1",
		Title:       "Q3 Contract",
		SenderID:    alex,
		RecipientID: blake,
		Status:      StatusPending,
		RequestedAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAuthorize(t *testing.T) {
	d := pendingDoc()
	assert.Equal(t, AccessSender, Authorize(alex, d))
	assert.Equal(t, AccessRecipient, Authorize(blake, d))
	assert.Equal(t, AccessForbidden, Authorize(casey, d))
	assert.Equal(t, AccessForbidden, Authorize("", d))
	assert.Equal(t, AccessForbidden, Authorize(alex, nil))

	// viewable iff the principal is one of the two parties
	for _, p := range []string{alex, blake, casey, "someone"} {
		want := p == d.SenderID || p == d.RecipientID
		assert.Equal(t, want, CanView(p, d), "principal %s", p)
	}
}

func TestTransition(t *testing.T) {
	require.NoError(t, Transition(StatusPending, StatusSigned))
	require.NoError(t, Transition(StatusSigned, StatusCompleted))

	illegal := [][2]Status{
		{StatusSigned, StatusPending},
		{StatusCompleted, StatusSigned},
		{StatusCompleted, StatusPending},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPending},
		{StatusCompleted, StatusCompleted},
		{Status(0), StatusSigned},
		{StatusPending, Status(42)},
	}
	for _, tr := range illegal {
		err := Transition(tr[0], tr[1])
		assert.ErrorIs(t, err, ErrInvalidState, "%s -> %s", tr[0], tr[1])
	}
}

func TestValidateSign_Success(t *testing.T) {
	now := time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)
	upd, err := ValidateSign(pendingDoc(), blake, Signature{Mode: SignatureTyped, Typed: "Blake"}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusSigned, upd.Status)
	assert.True(t, upd.SignedAt.Equal(now))

	upd, err = ValidateSign(pendingDoc(), blake, Signature{Mode: SignatureDrawn, Strokes: 12}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusSigned, upd.Status)
}

func TestValidateSign_PreconditionOrder(t *testing.T) {
	now := time.Now()
	empty := Signature{Mode: SignatureTyped, Typed: "   "}
	good := Signature{Mode: SignatureTyped, Typed: "Blake"}

	_, err := ValidateSign(nil, blake, empty, now)
	assert.ErrorIs(t, err, ErrNotFound)

	// forbidden beats invalid state and empty payload
	signed := pendingDoc()
	signed.Status = StatusSigned
	_, err = ValidateSign(signed, casey, empty, now)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = ValidateSign(pendingDoc(), alex, good, now)
	assert.ErrorIs(t, err, ErrForbidden)

	// invalid state beats empty payload, and names the current status
	_, err = ValidateSign(signed, blake, good, now)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "SIGNED")

	completed := pendingDoc()
	completed.Status = StatusCompleted
	_, err = ValidateSign(completed, blake, good, now)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "COMPLETED")

	_, err = ValidateSign(pendingDoc(), blake, empty, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignatureValidate(t *testing.T) {
	cases := []struct {
		name string
		sig  Signature
		ok   bool
	}{
		{"typed", Signature{Mode: SignatureTyped, Typed: "B"}, true},
		{"typed empty", Signature{Mode: SignatureTyped}, false},
		{"typed blank", Signature{Mode: SignatureTyped, Typed: "\t "}, false},
		{"drawn strokes", Signature{Mode: SignatureDrawn, Strokes: 3}, true},
		{"drawn complete flag", Signature{Mode: SignatureDrawn, Complete: true}, true},
		{"drawn nothing", Signature{Mode: SignatureDrawn}, false},
		{"unknown mode", Signature{Mode: "stamp", Typed: "B"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sig.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestValidateComplete(t *testing.T) {
	signed := pendingDoc()
	at := time.Now()
	signed.Status = StatusSigned
	signed.SignedAt = &at

	require.NoError(t, ValidateComplete(signed, alex))
	assert.ErrorIs(t, ValidateComplete(signed, blake), ErrForbidden)
	assert.ErrorIs(t, ValidateComplete(pendingDoc(), alex), ErrInvalidState)
	assert.ErrorIs(t, ValidateComplete(nil, alex), ErrNotFound)
}

func TestValidateInvariants(t *testing.T) {
	require.NoError(t, Validate(pendingDoc()))

	d := pendingDoc()
	at := time.Now()
	d.SignedAt = &at
	assert.ErrorIs(t, Validate(d), ErrValidation)

	d = pendingDoc()
	d.Status = StatusSigned
	assert.ErrorIs(t, Validate(d), ErrValidation)
	d.SignedAt = &at
	assert.NoError(t, Validate(d))

	d = pendingDoc()
	d.RecipientID = ""
	assert.ErrorIs(t, Validate(d), ErrValidation)
}

func TestPartition(t *testing.T) {
	at := time.Now()
	d1 := pendingDoc()
	d2 := pendingDoc()
	d2.ID = "doc-2"
	d2.Status = StatusSigned
	d2.SignedAt = &at
	d3 := &Document{ID: "doc-3", SenderID: blake, RecipientID: alex, Status: StatusPending}
	d4 := &Document{ID: "doc-4", SenderID: casey, RecipientID: alex, Status: StatusPending}

	inbox, sent := Partition([]*Document{d1, d2, d3, d4}, alex)
	assert.Equal(t, []*Document{d3, d4}, inbox)
	assert.Equal(t, []*Document{d1, d2}, sent)

	inbox, sent = Partition([]*Document{d1, d2, d3, d4}, blake)
	assert.Equal(t, []*Document{d1}, inbox)
	assert.Equal(t, []*Document{d3}, sent)

	inbox, sent = Partition(nil, casey)
	assert.Empty(t, inbox)
	assert.Empty(t, sent)

	assert.Equal(t, []*Document{d1, d2, d3}, Visible([]*Document{d1, d2, d3, d4}, blake))
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(pendingDoc())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"PENDING"`)
	assert.Contains(t, string(b), `"signedAt":null`)

	var d Document
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","status":"completed"}`), &d))
	assert.Equal(t, StatusCompleted, d.Status)
	assert.Error(t, json.Unmarshal([]byte(`{"status":"DRAFT"}`), &d))

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}
