package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

type schoolRepository struct {
	db core.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// rows

type classRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	SchoolName null.String `db:"school_name"`
	InviteCode string      `db:"invite_code"`
	CreatedBy  string      `db:"created_by"`
	CreatedAt  time.Time   `db:"created_at"`
}

func boilClass(cls school.Class) classRow {
	return classRow{
		ID:         cls.ID,
		Name:       cls.Name,
		SchoolName: cls.SchoolName,
		InviteCode: cls.InviteCode,
		CreatedBy:  cls.CreatedBy,
		CreatedAt:  cls.CreatedAt.UTC(),
	}
}

func (row classRow) class() school.Class {
	return school.Class{
		ID:         row.ID,
		Name:       row.Name,
		SchoolName: row.SchoolName,
		InviteCode: row.InviteCode,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
	}
}

type memberRow struct {
	ID              string      `db:"id"`
	ClassID         string      `db:"class_id"`
	UserID          string      `db:"user_id"`
	Role            string      `db:"role"`
	LinkedStudentID null.String `db:"linked_student_id"`
	JoinedAt        time.Time   `db:"joined_at"`
}

func boilMember(mbr school.ClassMember) memberRow {
	return memberRow{
		ID:              mbr.ID,
		ClassID:         mbr.ClassID,
		UserID:          mbr.UserID,
		Role:            mbr.Role,
		LinkedStudentID: mbr.LinkedStudentID,
		JoinedAt:        mbr.JoinedAt.UTC(),
	}
}

func (row memberRow) member() school.ClassMember {
	return school.ClassMember{
		ID:              row.ID,
		ClassID:         row.ClassID,
		UserID:          row.UserID,
		Role:            row.Role,
		LinkedStudentID: row.LinkedStudentID,
		JoinedAt:        row.JoinedAt,
	}
}
