package models

import (
	"encoding/json"
	"time"
)

// SkippedResponse is recorded as the response of a skipped task.
const SkippedResponse = "skipped"

// TaskTypeBool marks a yes/no task; every other type is answered with free text.
const TaskTypeBool = "bool"

// Task is a prompt served by the research server.
type Task struct {
	Task string `json:"task"`
	Type string `json:"type"`
}

// IsBool reports whether the task is answered with yes/no instead of text.
func (t Task) IsBool() bool { return t.Type == TaskTypeBool }

// TaskList is the body of GET /api/tasks.
type TaskList struct {
	Tasks []Task `json:"tasks"`
}

// Timestamp marshals as the same locale string as sample dates, rendered in
// the location the wrapped time carries.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(localeLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(localeLayout, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the wrapped time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// TaskLog is the timing and response record of one task.
// EndTime and Response stay nil until the task is resolved.
type TaskLog struct {
	StartTime Timestamp  `json:"startTime"`
	EndTime   *Timestamp `json:"endTime"`
	Response  *string    `json:"response"`
}

// Resolved reports whether the log carries an end time and a response.
func (l TaskLog) Resolved() bool {
	return l.EndTime != nil && l.Response != nil
}

// Resolve finalizes the log with the given response.
func (l *TaskLog) Resolve(end time.Time, response string) {
	ts := Timestamp(end)
	l.EndTime = &ts
	l.Response = &response
}
