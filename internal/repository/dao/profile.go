package dao

import "time"

type Profile struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	FullName       string `gorm:"not null"`
	Email          string `gorm:"index;not null"`
	Phone          string
	School         string
	EducationLevel string `gorm:"index"` // "SD", "SMP", "SMA" or "Mahasiswa"
	Grade          int
	IdentityNumber string `gorm:"index"`
	BirthPlace     string
	BirthDate      *time.Time
	Gender         string
	Address        string

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
