package domain

import "fmt"

// DocumentField names one of the per-registration verification flags.
type DocumentField string

const (
	DocumentIdentityCard    DocumentField = "identity_card"
	DocumentEngagementProof DocumentField = "engagement_proof"
	DocumentPaymentProof    DocumentField = "payment_proof"
)

func (f DocumentField) Valid() bool {
	switch f {
	case DocumentIdentityCard, DocumentEngagementProof, DocumentPaymentProof:
		return true
	}
	return false
}

// Label is the admin-facing name of the document.
func (f DocumentField) Label() string {
	switch f {
	case DocumentIdentityCard:
		return "Kartu Identitas"
	case DocumentEngagementProof:
		return "Bukti Engagement"
	case DocumentPaymentProof:
		return "Bukti Pembayaran"
	}
	return string(f)
}

type MemberVerification struct {
	IdentityCardVerified bool `json:"identity_card_verified"`
}

// VerificationState is the read-side projection of a registration's flags.
type VerificationState struct {
	IdentityCard    bool                          `json:"identity_card"`
	EngagementProof bool                          `json:"engagement_proof"`
	PaymentProof    bool                          `json:"payment_proof"`
	TeamMembers     map[string]MemberVerification `json:"team_members"`
}

func NewVerificationState(r Registration) VerificationState {
	s := VerificationState{
		IdentityCard:    r.IdentityCardVerified,
		EngagementProof: r.EngagementProofVerified,
		PaymentProof:    r.PaymentProofVerified,
		TeamMembers:     make(map[string]MemberVerification, len(r.TeamMembers)),
	}
	for _, m := range r.TeamMembers {
		s.TeamMembers[m.ID] = MemberVerification{IdentityCardVerified: m.IdentityCardVerified}
	}
	return s
}

func (s VerificationState) Clone() VerificationState {
	c := s
	c.TeamMembers = make(map[string]MemberVerification, len(s.TeamMembers))
	for k, v := range s.TeamMembers {
		c.TeamMembers[k] = v
	}
	return c
}

func (s VerificationState) Flag(f DocumentField) bool {
	switch f {
	case DocumentIdentityCard:
		return s.IdentityCard
	case DocumentEngagementProof:
		return s.EngagementProof
	case DocumentPaymentProof:
		return s.PaymentProof
	}
	return false
}

func (s *VerificationState) SetFlag(f DocumentField, v bool) {
	switch f {
	case DocumentIdentityCard:
		s.IdentityCard = v
	case DocumentEngagementProof:
		s.EngagementProof = v
	case DocumentPaymentProof:
		s.PaymentProof = v
	}
}

// ApplyTo copies the document flags of s onto r.
func (s VerificationState) ApplyTo(r *Registration) {
	r.IdentityCardVerified = s.IdentityCard
	r.EngagementProofVerified = s.EngagementProof
	r.PaymentProofVerified = s.PaymentProof
	for i := range r.TeamMembers {
		if mv, ok := s.TeamMembers[r.TeamMembers[i].ID]; ok {
			r.TeamMembers[i].IdentityCardVerified = mv.IdentityCardVerified
		}
	}
}

func memberLabel(m TeamMember) string {
	return fmt.Sprintf("Kartu Identitas Anggota %d (%s)", m.Position, m.FullName)
}
