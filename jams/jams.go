package jams

import "time"

type Genre string

const (
	GenreJazz      Genre = "jazz"
	GenreRock      Genre = "rock"
	GenrePop       Genre = "pop"
	GenreHipHop    Genre = "hiphop"
	GenreClassical Genre = "classical"
	GenreOther     Genre = "other"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Jam is a scheduled jam session as listed by the backend.
type Jam struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Genre           Genre      `json:"genre"`
	SkillLevel      SkillLevel `json:"skill_level"`
	Location        string     `json:"location"`
	DateTime        time.Time  `json:"date_time"`
	MaxParticipants int        `json:"max_participants"`
	CreatedBy       string     `json:"created_by"` // username of the owner
	CreatedAt       time.Time  `json:"created_at,omitempty"`
}

// NewJam is the creation payload for POST /jams/.
type NewJam struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Genre           Genre      `json:"genre"`
	SkillLevel      SkillLevel `json:"skill_level"`
	Location        string     `json:"location"`
	DateTime        time.Time  `json:"date_time"`
	MaxParticipants int        `json:"max_participants"`
}

// Message is one chat message in a jam's thread.
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"` // username
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Participants is the roster returned by /jams/{id}/participants/.
type Participants struct {
	CreatedBy    string   `json:"created_by"`
	Participants []string `json:"participants"` // usernames, owner included
}

// SpotsLeft reports remaining capacity given the jam's limit; never
// negative.
func (p Participants) SpotsLeft(max int) int {
	left := max - len(p.Participants)
	if left < 0 {
		return 0
	}
	return left
}
