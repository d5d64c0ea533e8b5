package models

import (
	"encoding/json"
	"strconv"
)

// SubjectID identifies a participant. An id that failed to parse is carried
// along as invalid and serializes as JSON null.
type SubjectID struct {
	Value int
	Valid bool
}

// NewSubjectID returns a valid id.
func NewSubjectID(v int) SubjectID { return SubjectID{Value: v, Valid: true} }

func (s SubjectID) String() string {
	if !s.Valid {
		return "NaN"
	}
	return strconv.Itoa(s.Value)
}

func (s SubjectID) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *SubjectID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = SubjectID{}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = NewSubjectID(v)
	return nil
}
