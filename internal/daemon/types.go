package daemon

import (
	"time"

	"gridsight/internal/journal"
	"gridsight/internal/session"
)

type importRequest struct {
	ImagePath string `json:"image_path"`
}

type reviewRequest struct {
	Result map[string]any `json:"result,omitempty"`
}

type actionResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	Workers      int          `json:"workers"`
	QueueDepth   int          `json:"queue_depth"`
	JournalPath  string       `json:"journal_path"`
	LockFilePath string       `json:"lock_file_path"`
	Session      *sessionView `json:"session,omitempty"`
}

type sessionView struct {
	ID          string           `json:"id"`
	State       string           `json:"state"`
	SourcePath  string           `json:"source_path"`
	ErrorMsg    string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	DeadlineAt  time.Time        `json:"deadline_at"`
	Stages      []stageView      `json:"stages,omitempty"`
	Transitions []transitionView `json:"transitions,omitempty"`
}

type stageView struct {
	Stage   string         `json:"stage"`
	Payload map[string]any `json:"payload,omitempty"`
}

type transitionView struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Stage string    `json:"stage,omitempty"`
	At    time.Time `json:"at"`
}

type sessionListResponse struct {
	Sessions []sessionView `json:"sessions"`
}

func sessionViewFromSnapshot(snap session.Snapshot) sessionView {
	view := sessionView{
		ID:         snap.ID,
		State:      string(snap.State),
		SourcePath: snap.SourcePath,
		ErrorMsg:   snap.ErrorMsg,
		StartedAt:  snap.StartedAt,
		DeadlineAt: snap.DeadlineAt,
	}
	for _, entry := range snap.Stages {
		view.Stages = append(view.Stages, stageView{Stage: entry.Stage, Payload: entry.Payload})
	}
	return view
}

func sessionViewFromRecord(rec journal.SessionRecord) sessionView {
	return sessionView{
		ID:         rec.ID,
		State:      rec.State,
		SourcePath: rec.SourcePath,
		ErrorMsg:   rec.ErrorMsg,
		StartedAt:  rec.StartedAt,
		DeadlineAt: rec.DeadlineAt,
	}
}
