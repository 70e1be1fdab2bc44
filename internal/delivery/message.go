package delivery

import "github.com/hyperjump/matchfeed/internal/models"

// Message types exchanged over a delivery connection.
const (
	TypeNextJob  = "NEXT_JOB"
	TypeJob      = "JOB"
	TypeEnd      = "END"
	TypeRejected = "REJECTED"
	TypeError    = "ERROR"
)

// Inbound is a client message.
type Inbound struct {
	Type string `json:"type"`
}

// Outbound is a server message. Job is set for JOB, Reason for REJECTED and ERROR.
type Outbound struct {
	Type   string          `json:"type"`
	Job    *models.JobView `json:"job,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// JobMessage wraps a delivered job.
func JobMessage(j *models.Job) *Outbound {
	return &Outbound{Type: TypeJob, Job: j.View()}
}

// EndMessage tells the client there is nothing more to deliver.
func EndMessage() *Outbound {
	return &Outbound{Type: TypeEnd}
}

// RejectedMessage tells the client the connection will be closed.
func RejectedMessage(reason string) *Outbound {
	return &Outbound{Type: TypeRejected, Reason: reason}
}

// ErrorMessage reports a request the session could not serve. The cursor is untouched.
func ErrorMessage(reason string) *Outbound {
	return &Outbound{Type: TypeError, Reason: reason}
}
