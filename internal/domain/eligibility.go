package domain

// IsEligibleForApproval reports whether r may transition to approved given
// its verification state. A nil state is never eligible.
//
// Team competitions only require the members' identity cards; the
// registration's own identity card flag is ignored for them.
func IsEligibleForApproval(r Registration, state *VerificationState) bool {
	return state != nil && len(MissingDocuments(r, state)) == 0
}

// MissingDocuments lists the labels of every document that still blocks
// approval, with per-member granularity for team competitions.
func MissingDocuments(r Registration, state *VerificationState) []string {
	if state == nil {
		s := VerificationState{}
		state = &s
	}

	var missing []string
	if !r.Competition.IsTeam() && !state.IdentityCard {
		missing = append(missing, DocumentIdentityCard.Label())
	}
	if !state.EngagementProof {
		missing = append(missing, DocumentEngagementProof.Label())
	}
	if !state.PaymentProof {
		missing = append(missing, DocumentPaymentProof.Label())
	}
	if r.Competition.IsTeam() {
		for _, m := range r.TeamMembers {
			if !state.TeamMembers[m.ID].IdentityCardVerified {
				missing = append(missing, memberLabel(m))
			}
		}
	}
	return missing
}
