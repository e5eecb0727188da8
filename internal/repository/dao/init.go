package dao

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&Competition{},
		&Subject{},
		&Profile{},
		&Registration{},
		&TeamMember{},
		&StatusChange{},
	)
}

// DefaultCompetitions is the UISO 2025 catalogue. SCC is the only team event.
var DefaultCompetitions = []Competition{
	{ID: "2f0c1d8e-5b7a-4c1e-9d3a-0b1f6a2c7e01", Code: "OSP", Name: "Olimpiade Sains Pelajar", Type: "individual"},
	{ID: "2f0c1d8e-5b7a-4c1e-9d3a-0b1f6a2c7e02", Code: "SCC", Name: "Science Creativity Competition", Type: "team"},
}

// SeedCompetitions inserts the catalogue, leaving existing codes untouched.
func SeedCompetitions(db *gorm.DB, competitions []Competition) error {
	if len(competitions) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&competitions).Error
}
