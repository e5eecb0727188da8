package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

const exportDateLayout = "2/1/2006"

var mainHeaders = []string{
	"ID",
	"Nama Lengkap",
	"Email",
	"Telepon",
	"Sekolah/Institusi",
	"Jenjang Pendidikan",
	"Kelas/Semester",
	"Nomor Identitas",
	"Tempat Lahir",
	"Tanggal Lahir",
	"Jenis Kelamin",
	"Alamat",
	"Lomba",
	"Mata Pelajaran",
	"Nama Tim",
	"Status",
	"Tanggal Daftar",
	"Terakhir Diperbarui",
}

var teamHeaders = []string{
	"Registrasi - ID",
	"Registrasi - Nama Tim",
	"Registrasi - Lomba",
	"Registrasi - Status",
	"Anggota Ke",
	"Nama Lengkap",
	"Nomor Identitas",
	"Email",
	"Telepon",
	"Kartu Identitas Terverifikasi",
}

// ExportProjector flattens the full, unpaged result of a query into sheets.
type ExportProjector struct {
	queries *QueryEngine
	loc     *time.Location
}

func NewExportProjector(queries *QueryEngine, loc *time.Location) *ExportProjector {
	return &ExportProjector{
		queries: queries,
		loc:     loc,
	}
}

func (p *ExportProjector) Project(ctx context.Context, spec domain.QuerySpec, includeTeamMembers bool) (domain.Projection, error) {
	regs, err := p.queries.Resolve(ctx, spec)
	if err != nil {
		return domain.Projection{}, fmt.Errorf("p.queries.Resolve -> %w", err)
	}

	projection := domain.Projection{
		Main: domain.Sheet{Name: "Registrasi", Headers: mainHeaders, Rows: make([]domain.FlatRow, 0, len(regs))},
	}
	if includeTeamMembers {
		projection.Team = &domain.Sheet{Name: "Anggota Tim", Headers: teamHeaders, Rows: []domain.FlatRow{}}
	}

	for _, r := range regs {
		projection.Main.Rows = append(projection.Main.Rows, p.mainRow(r))
		if projection.Team == nil {
			continue
		}
		for _, m := range r.TeamMembers {
			projection.Team.Rows = append(projection.Team.Rows, p.teamRow(r, m))
		}
	}

	return projection, nil
}

func (p *ExportProjector) mainRow(r domain.Registration) domain.FlatRow {
	subject := ""
	if r.Subject != nil {
		subject = r.Subject.Name
	}

	return domain.FlatRow{
		r.ID,
		r.Profile.FullName,
		r.Profile.Email,
		r.Profile.Phone,
		r.Profile.School,
		string(r.Profile.EducationLevel),
		ClassOrSemester(r.Profile.EducationLevel, r.Profile.Grade),
		r.Profile.IdentityNumber,
		r.Profile.BirthPlace,
		p.date(r.Profile.BirthDate),
		r.Profile.Gender,
		r.Profile.Address,
		r.Competition.Name,
		subject,
		deref(r.TeamName),
		string(r.Status),
		p.date(&r.CreatedAt),
		p.date(&r.UpdatedAt),
	}
}

func (p *ExportProjector) teamRow(r domain.Registration, m domain.TeamMember) domain.FlatRow {
	verified := "Tidak"
	if m.IdentityCardVerified {
		verified = "Ya"
	}

	return domain.FlatRow{
		r.ID,
		deref(r.TeamName),
		r.Competition.Name,
		string(r.Status),
		strconv.Itoa(m.Position),
		m.FullName,
		m.IdentityNumber,
		m.Email,
		m.Phone,
		verified,
	}
}

func (p *ExportProjector) date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(p.loc).Format(exportDateLayout)
}

// ClassOrSemester renders the grade as "Kelas N" for school levels and
// "Semester N" for university students.
func ClassOrSemester(level domain.EducationLevel, grade int) string {
	if grade <= 0 {
		return ""
	}
	if level == domain.EducationUniversity {
		return fmt.Sprintf("Semester %d", grade)
	}
	return fmt.Sprintf("Kelas %d", grade)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
