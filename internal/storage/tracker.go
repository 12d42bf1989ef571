// Package storage persists per-sender conversation trackers: the slot values
// carried between turns plus a little bookkeeping about the last turn.
package storage

import (
	"time"
)

// Slots are the values remembered across turns.
type Slots struct {
	Category   string `json:"categoria,omitempty"`
	CourseName string `json:"nombre_curso,omitempty"`
}

// IsEmpty reports whether neither slot is set.
func (s Slots) IsEmpty() bool {
	return s.Category == "" && s.CourseName == ""
}

// Tracker is the conversation state of one sender.
type Tracker struct {
	SenderID     string    `json:"sender_id"`
	Slots        Slots     `json:"slots"`
	LatestIntent string    `json:"latest_intent,omitempty"`
	LatestAction string    `json:"latest_action,omitempty"`
	Turns        int       `json:"turns"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTracker returns an empty tracker for senderID.
func NewTracker(senderID string) *Tracker {
	return &Tracker{SenderID: senderID}
}

// Reset forgets everything except the sender.
func (t *Tracker) Reset() {
	*t = Tracker{SenderID: t.SenderID}
}

// Clone returns an independent copy.
func (t *Tracker) Clone() *Tracker {
	c := *t
	return &c
}

// stamp fills UpdatedAt when the caller left it zero.
func (t *Tracker) stamp() {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
}
