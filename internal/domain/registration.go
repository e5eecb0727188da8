package domain

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type CompetitionType string

const (
	CompetitionIndividual CompetitionType = "individual"
	CompetitionTeam       CompetitionType = "team"
)

type EducationLevel string

const (
	EducationSD         EducationLevel = "SD"
	EducationSMP        EducationLevel = "SMP"
	EducationSMA        EducationLevel = "SMA"
	EducationUniversity EducationLevel = "Mahasiswa"
)

type Profile struct {
	ID             string         `json:"id"`
	FullName       string         `json:"full_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	School         string         `json:"school"`
	EducationLevel EducationLevel `json:"education_level"`
	Grade          int            `json:"grade"`
	IdentityNumber string         `json:"identity_number"`
	BirthPlace     string         `json:"birth_place"`
	BirthDate      *time.Time     `json:"birth_date"`
	Gender         string         `json:"gender"`
	Address        string         `json:"address"`
}

type Competition struct {
	ID   string          `json:"id"`
	Code string          `json:"code"`
	Name string          `json:"name"`
	Type CompetitionType `json:"type"`
}

func (c Competition) IsTeam() bool {
	return c.Type == CompetitionTeam
}

type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TeamMember struct {
	ID                   string `json:"id"`
	RegistrationID       string `json:"registration_id"`
	FullName             string `json:"full_name"`
	IdentityNumber       string `json:"identity_number"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	IdentityCardURL      string `json:"identity_card_url"`
	IdentityCardVerified bool   `json:"identity_card_verified"`
	Position             int    `json:"position"`
}

// Registration is one application to one competition, joined with its
// applicant profile, competition, optional subject and team members.
type Registration struct {
	ID            string  `json:"id"`
	CompetitionID string  `json:"competition_id"`
	ProfileID     string  `json:"profile_id"`
	TeamName      *string `json:"team_name"`
	TeamSize      int     `json:"team_size"`
	Status        Status  `json:"status"`

	IdentityCardURL    *string `json:"identity_card_url"`
	EngagementProofURL *string `json:"engagement_proof_url"`
	PaymentProofURL    *string `json:"payment_proof_url"`

	IdentityCardVerified    bool `json:"identity_card_verified"`
	EngagementProofVerified bool `json:"engagement_proof_verified"`
	PaymentProofVerified    bool `json:"payment_proof_verified"`

	SubjectID *string `json:"subject_id"`

	Profile     Profile      `json:"profile"`
	Competition Competition  `json:"competition"`
	Subject     *Subject     `json:"subject,omitempty"`
	TeamMembers []TeamMember `json:"team_members"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with r.
func (r Registration) Clone() Registration {
	c := r
	if r.TeamMembers != nil {
		c.TeamMembers = make([]TeamMember, len(r.TeamMembers))
		copy(c.TeamMembers, r.TeamMembers)
	}
	if r.Subject != nil {
		s := *r.Subject
		c.Subject = &s
	}
	return c
}

func (r Registration) Member(memberID string) (TeamMember, bool) {
	for _, m := range r.TeamMembers {
		if m.ID == memberID {
			return m, true
		}
	}
	return TeamMember{}, false
}

// StatusChange is the unit written to the store for a status update. The
// previous status is read by the store inside the write transaction.
type StatusChange struct {
	To      Status
	At      time.Time
	ActorID string
	Reason  string
}

// StatusRecord is one entry of a registration's status history.
type StatusRecord struct {
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	ActorID string    `json:"actor_id"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}
