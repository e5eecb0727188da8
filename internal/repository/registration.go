package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/repository/dao"
)

var (
	ErrRegistrationNotFound = dao.ErrRegistrationNotFound
	ErrTeamMemberNotFound   = dao.ErrTeamMemberNotFound
	ErrPartialBatch         = dao.ErrPartialBatch
)

// IsTransient reports whether a store error may succeed on retry.
var IsTransient = dao.IsTransient

type RegistrationDAO interface {
	FindAll(ctx context.Context, filter dao.RegistrationFilter) ([]dao.Registration, int64, error)
	FindByID(ctx context.Context, id string) (dao.Registration, error)
	UpdateStatus(ctx context.Context, id, status string, at time.Time, actorID, reason string) error
	UpdateStatusBatch(ctx context.Context, ids []string, status string, at time.Time, actorID, reason string) error
	UpdateDocumentFlag(ctx context.Context, id, column string, value bool) error
	UpdateMemberFlag(ctx context.Context, memberID, registrationID string, value bool) error
	FindStatusChanges(ctx context.Context, registrationID string) ([]dao.StatusChange, error)
}

type RegistrationRepository struct {
	dao RegistrationDAO
}

func NewRegistrationRepository(dao RegistrationDAO) *RegistrationRepository {
	return &RegistrationRepository{
		dao: dao,
	}
}

func (r *RegistrationRepository) Find(ctx context.Context, filter domain.StoreFilter) ([]domain.Registration, int64, error) {
	found, total, err := r.dao.FindAll(ctx, r.filterToDao(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	registrations := make([]domain.Registration, len(found))
	for i, reg := range found {
		registrations[i] = r.daoToDomain(reg)
	}

	return registrations, total, nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (domain.Registration, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	err := r.dao.UpdateStatus(ctx, id, string(change.To), change.At, change.ActorID, change.Reason)
	if err != nil {
		return fmt.Errorf("r.dao.UpdateStatus -> %w", err)
	}

	return nil
}

func (r *RegistrationRepository) UpdateStatusBatch(ctx context.Context, ids []string, change domain.StatusChange) error {
	err := r.dao.UpdateStatusBatch(ctx, ids, string(change.To), change.At, change.ActorID, change.Reason)
	if err != nil {
		return fmt.Errorf("r.dao.UpdateStatusBatch -> %w", err)
	}

	return nil
}

func (r *RegistrationRepository) UpdateDocumentFlag(ctx context.Context, id string, field domain.DocumentField, value bool) error {
	err := r.dao.UpdateDocumentFlag(ctx, id, string(field)+"_verified", value)
	if err != nil {
		return fmt.Errorf("r.dao.UpdateDocumentFlag -> %w", err)
	}

	return nil
}

func (r *RegistrationRepository) UpdateMemberFlag(ctx context.Context, memberID, registrationID string, value bool) error {
	err := r.dao.UpdateMemberFlag(ctx, memberID, registrationID, value)
	if err != nil {
		return fmt.Errorf("r.dao.UpdateMemberFlag -> %w", err)
	}

	return nil
}

// FindStatusChanges returns the status history of registrationID, oldest
// first.
func (r *RegistrationRepository) FindStatusChanges(ctx context.Context, registrationID string) ([]domain.StatusRecord, error) {
	found, err := r.dao.FindStatusChanges(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindStatusChanges -> %w", err)
	}

	records := make([]domain.StatusRecord, len(found))
	for i, c := range found {
		records[i] = domain.StatusRecord{
			From:    domain.Status(c.FromStatus),
			To:      domain.Status(c.ToStatus),
			ActorID: c.ActorID,
			Reason:  c.Reason,
			At:      c.CreatedAt,
		}
	}

	return records, nil
}

func (r *RegistrationRepository) filterToDao(f domain.StoreFilter) dao.RegistrationFilter {
	filter := dao.RegistrationFilter{
		From:        f.From,
		To:          f.To,
		IDs:         f.IDs,
		OrderColumn: string(f.OrderBy),
		Desc:        f.Order != domain.SortAsc,
	}
	if f.Status != nil {
		status := string(*f.Status)
		filter.Status = &status
	}

	return filter
}

func (r *RegistrationRepository) daoToDomain(reg dao.Registration) domain.Registration {
	registration := domain.Registration{
		ID:                      reg.ID,
		CompetitionID:           reg.CompetitionID,
		ProfileID:               reg.ProfileID,
		TeamName:                reg.TeamName,
		TeamSize:                reg.TeamSize,
		Status:                  domain.Status(reg.Status),
		IdentityCardURL:         reg.IdentityCardURL,
		EngagementProofURL:      reg.EngagementProofURL,
		PaymentProofURL:         reg.PaymentProofURL,
		IdentityCardVerified:    reg.IdentityCardVerified,
		EngagementProofVerified: reg.EngagementProofVerified,
		PaymentProofVerified:    reg.PaymentProofVerified,
		SubjectID:               reg.SubjectID,
		Profile:                 r.profileDaoToDomain(reg.Profile),
		Competition: domain.Competition{
			ID:   reg.Competition.ID,
			Code: reg.Competition.Code,
			Name: reg.Competition.Name,
			Type: domain.CompetitionType(reg.Competition.Type),
		},
		TeamMembers: make([]domain.TeamMember, len(reg.TeamMembers)),
		CreatedAt:   reg.CreatedAt,
		UpdatedAt:   reg.UpdatedAt,
	}

	if reg.Subject != nil {
		registration.Subject = &domain.Subject{
			ID:   reg.Subject.ID,
			Name: reg.Subject.Name,
		}
	}

	for i, m := range reg.TeamMembers {
		registration.TeamMembers[i] = domain.TeamMember{
			ID:                   m.ID,
			RegistrationID:       m.RegistrationID,
			FullName:             m.FullName,
			IdentityNumber:       m.IdentityNumber,
			Email:                m.Email,
			Phone:                m.Phone,
			IdentityCardURL:      m.IdentityCardURL,
			IdentityCardVerified: m.IdentityCardVerified,
			Position:             m.Position,
		}
	}

	return registration
}

func (r *RegistrationRepository) profileDaoToDomain(p dao.Profile) domain.Profile {
	return domain.Profile{
		ID:             p.ID,
		FullName:       p.FullName,
		Email:          p.Email,
		Phone:          p.Phone,
		School:         p.School,
		EducationLevel: domain.EducationLevel(p.EducationLevel),
		Grade:          p.Grade,
		IdentityNumber: p.IdentityNumber,
		BirthPlace:     p.BirthPlace,
		BirthDate:      p.BirthDate,
		Gender:         p.Gender,
		Address:        p.Address,
	}
}
