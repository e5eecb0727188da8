package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTeamMemberNotFound   = errors.New("team member not found")
	ErrPartialBatch         = errors.New("batch references unknown registrations")
	ErrUnknownColumn        = errors.New("unknown column")
)

type Competition struct {
	ID   string `gorm:"primaryKey;type:varchar(36)"`
	Code string `gorm:"uniqueIndex;not null"`
	Name string `gorm:"not null"`
	Type string `gorm:"not null;default:individual"` // "individual" or "team"
}

type Subject struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	CompetitionID string `gorm:"index;not null"`
	Name          string `gorm:"not null"`
}

type TeamMember struct {
	ID                   string `gorm:"primaryKey;type:varchar(36)"`
	RegistrationID       string `gorm:"index;not null"`
	FullName             string `gorm:"not null"`
	IdentityNumber       string
	Email                string
	Phone                string
	IdentityCardURL      string
	IdentityCardVerified bool `gorm:"not null;default:false"`
	Position             int  `gorm:"not null"`
}

type Registration struct {
	ID            string      `gorm:"primaryKey;type:varchar(36)"`
	CompetitionID string      `gorm:"index;not null"`
	Competition   Competition `gorm:"foreignKey:CompetitionID"`
	ProfileID     string      `gorm:"index;not null"`
	Profile       Profile     `gorm:"foreignKey:ProfileID"`
	TeamName      *string
	TeamSize      int    `gorm:"not null;default:1"`
	Status        string `gorm:"index;not null;default:pending"`

	IdentityCardURL    *string
	EngagementProofURL *string
	PaymentProofURL    *string

	IdentityCardVerified    bool `gorm:"not null;default:false"`
	EngagementProofVerified bool `gorm:"not null;default:false"`
	PaymentProofVerified    bool `gorm:"not null;default:false"`

	SubjectID   *string
	Subject     *Subject     `gorm:"foreignKey:SubjectID"`
	TeamMembers []TeamMember `gorm:"foreignKey:RegistrationID"`

	CreatedAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// StatusChange is the audit row written with every status update.
type StatusChange struct {
	ID             uint   `gorm:"primaryKey"`
	RegistrationID string `gorm:"index;not null"`
	FromStatus     string `gorm:"not null"`
	ToStatus       string `gorm:"not null"`
	ActorID        string
	Reason         string
	CreatedAt      time.Time `gorm:"not null"`
}

// RegistrationFilter holds the predicates evaluated by the database.
type RegistrationFilter struct {
	Status      *string
	From        *time.Time
	To          *time.Time
	IDs         []string
	OrderColumn string
	Desc        bool
}

var orderableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
}

var documentColumns = map[string]bool{
	"identity_card_verified":    true,
	"engagement_proof_verified": true,
	"payment_proof_verified":    true,
}

type RegistrationDAO struct {
	db *gorm.DB
}

func NewRegistrationDAO(db *gorm.DB) *RegistrationDAO {
	return &RegistrationDAO{
		db: db,
	}
}

func (f RegistrationFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Status != nil {
		db = db.Where("registrations.status = ?", *f.Status)
	}
	if f.From != nil {
		db = db.Where("registrations.created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("registrations.created_at <= ?", *f.To)
	}
	if len(f.IDs) > 0 {
		db = db.Where("registrations.id IN ?", f.IDs)
	}
	return db
}

// FindAll returns every registration matching filter with its profile,
// competition, subject and team members, plus the matching count.
// Rows are ordered by the requested column, then created_at desc, then id.
func (d *RegistrationDAO) FindAll(ctx context.Context, filter RegistrationFilter) ([]Registration, int64, error) {
	var total int64
	if err := d.db.WithContext(ctx).Model(&Registration{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column := filter.OrderColumn
	if column == "" {
		column = "created_at"
	}
	if !orderableColumns[column] {
		return nil, 0, ErrUnknownColumn
	}

	var registrations []Registration
	result := d.withRelations(d.db.WithContext(ctx)).
		Scopes(filter.scope).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "registrations", Name: column}, Desc: filter.Desc}).
		Order("registrations.created_at DESC").
		Order("registrations.id ASC").
		Find(&registrations)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return registrations, total, nil
}

func (d *RegistrationDAO) FindByID(ctx context.Context, id string) (Registration, error) {
	var registration Registration

	result := d.withRelations(d.db.WithContext(ctx)).First(&registration, "registrations.id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

func (d *RegistrationDAO) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Profile").
		Preload("Competition").
		Preload("Subject").
		Preload("TeamMembers", func(db *gorm.DB) *gorm.DB {
			return db.Order("team_members.position ASC")
		})
}

// UpdateStatus sets status and updated_at of one registration and records
// the change, in a single transaction.
func (d *RegistrationDAO) UpdateStatus(ctx context.Context, id, status string, at time.Time, actorID, reason string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current Registration
		if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		if err := tx.Model(&Registration{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&StatusChange{
			RegistrationID: id,
			FromStatus:     current.Status,
			ToStatus:       status,
			ActorID:        actorID,
			Reason:         reason,
			CreatedAt:      at,
		}).Error
	})
}

// UpdateStatusBatch updates every id in one transaction. It fails as a whole
// with ErrPartialBatch when any id is unknown.
func (d *RegistrationDAO) UpdateStatusBatch(ctx context.Context, ids []string, status string, at time.Time, actorID, reason string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []Registration
		if err := tx.Select("id", "status").Where("id IN ?", ids).Find(&current).Error; err != nil {
			return err
		}
		if len(current) != len(ids) {
			return ErrPartialBatch
		}

		if err := tx.Model(&Registration{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		}).Error; err != nil {
			return err
		}

		changes := make([]StatusChange, 0, len(current))
		for _, r := range current {
			changes = append(changes, StatusChange{
				RegistrationID: r.ID,
				FromStatus:     r.Status,
				ToStatus:       status,
				ActorID:        actorID,
				Reason:         reason,
				CreatedAt:      at,
			})
		}
		return tx.CreateInBatches(changes, 100).Error
	})
}

// UpdateDocumentFlag writes a single verification column. updated_at is left
// untouched.
func (d *RegistrationDAO) UpdateDocumentFlag(ctx context.Context, id, column string, value bool) error {
	if !documentColumns[column] {
		return ErrUnknownColumn
	}

	result := d.db.WithContext(ctx).Model(&Registration{}).Where("id = ?", id).UpdateColumn(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRegistrationNotFound
	}

	return nil
}

func (d *RegistrationDAO) UpdateMemberFlag(ctx context.Context, memberID, registrationID string, value bool) error {
	result := d.db.WithContext(ctx).Model(&TeamMember{}).
		Where("id = ? AND registration_id = ?", memberID, registrationID).
		UpdateColumn("identity_card_verified", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamMemberNotFound
	}

	return nil
}

func (d *RegistrationDAO) FindStatusChanges(ctx context.Context, registrationID string) ([]StatusChange, error) {
	var changes []StatusChange

	result := d.db.WithContext(ctx).Where("registration_id = ?", registrationID).Order("id ASC").Find(&changes)
	if result.Error != nil {
		return nil, result.Error
	}

	return changes, nil
}
