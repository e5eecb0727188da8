package response

import "github.com/uiso2025/uiso-admin-api/internal/domain"

type RegistrationList struct {
	Data       []domain.Registration `json:"data"`
	Pagination domain.Pagination     `json:"pagination"`
}

type RegistrationDetail struct {
	Registration domain.Registration      `json:"registration"`
	Verification domain.VerificationState `json:"verification"`
	Eligible     bool                     `json:"eligible"`
	Missing      []string                 `json:"missing"`
	History      []domain.StatusRecord    `json:"history"`
}

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkUpdate struct {
	Message      string        `json:"message"`
	UpdatedCount int           `json:"updatedCount"`
	Failures     []BulkFailure `json:"failures"`
}

type StatusUpdate struct {
	ID     string        `json:"id"`
	Status domain.Status `json:"status"`
}

type VerificationUpdate struct {
	ID           string                   `json:"id"`
	Verification domain.VerificationState `json:"verification"`
}
