package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Classes

func (repo *schoolRepository) CreateClass(_ context.Context, cls school.Class, owner school.ClassMember, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.classes {
		if c.InviteCode == cls.InviteCode {
			return school.Class{}, school.ErrCodeExists
		}
	}

	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = &cls

	owner.ID = uuid.New().String()
	owner.ClassID = cls.ID
	repo.db.members[owner.ID] = &owner
	return cls, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, filter school.ClassFilter, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if cls, ok := repo.db.classes[filter.ID]; ok {
			return *cls, nil
		}
		return school.Class{}, school.ErrClassNotFound
	}
	for _, cls := range repo.db.classes {
		if cls.InviteCode == filter.InviteCode {
			return *cls, nil
		}
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryUserClasses(_ context.Context, userID string, _ ...core.DBExecutor) ([]school.ClassInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	infos := make([]school.ClassInfo, 0)
	for _, mbr := range repo.db.members {
		if mbr.UserID != userID {
			continue
		}
		cls, ok := repo.db.classes[mbr.ClassID]
		if !ok {
			continue
		}
		var count int
		for _, m := range repo.db.members {
			if m.ClassID == cls.ID {
				count++
			}
		}
		infos = append(infos, school.ClassInfo{Class: *cls, MemberCount: count, MyRole: mbr.Role})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

func (repo *schoolRepository) DeleteClass(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrClassNotFound
	}
	delete(repo.db.classes, id)

	for mid, mbr := range repo.db.members {
		if mbr.ClassID == id {
			delete(repo.db.members, mid)
		}
	}
	for sid, sub := range repo.db.subjects {
		if sub.ClassID == id {
			delete(repo.db.subjects, sid)
		}
	}
	for aid, asg := range repo.db.assignments {
		if asg.ClassID != id {
			continue
		}
		delete(repo.db.assignments, aid)
		for cid, cpl := range repo.db.completions {
			if cpl.AssignmentID == aid {
				delete(repo.db.completions, cid)
			}
		}
	}
	for _, rem := range repo.db.reminders {
		if rem.ClassID.Valid && rem.ClassID.String == id {
			rem.ClassID.Valid = false
			rem.ClassID.String = ""
		}
	}
	return nil
}

func (repo *schoolRepository) CountAssignments(_ context.Context, classID string, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, asg := range repo.db.assignments {
		if asg.ClassID == classID {
			count++
		}
	}
	return count, nil
}

// Members

func (repo *schoolRepository) GetMembership(_ context.Context, classID, userID string, _ ...core.DBExecutor) (school.ClassMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, mbr := range repo.db.members {
		if mbr.ClassID == classID && mbr.UserID == userID {
			return *mbr, nil
		}
	}
	return school.ClassMember{}, school.ErrNotMember
}

func (repo *schoolRepository) CreateMembership(_ context.Context, mbr school.ClassMember, _ ...core.DBExecutor) (school.ClassMember, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, m := range repo.db.members {
		if m.ClassID == mbr.ClassID && m.UserID == mbr.UserID {
			return school.ClassMember{}, school.ErrAlreadyMember
		}
	}
	mbr.ID = uuid.New().String()
	repo.db.members[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *schoolRepository) DeleteMembership(_ context.Context, classID, userID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for mid, mbr := range repo.db.members {
		if mbr.ClassID == classID && mbr.UserID == userID {
			delete(repo.db.members, mid)
			return nil
		}
	}
	return school.ErrNotMember
}

func (repo *schoolRepository) QueryMembers(_ context.Context, classID string, _ ...core.DBExecutor) ([]school.ClassMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]school.ClassMember, 0)
	for _, mbr := range repo.db.members {
		if mbr.ClassID != classID {
			continue
		}
		m := *mbr
		if usr, ok := repo.db.users[m.UserID]; ok {
			u := *usr
			m.User = &u
		}
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// Subjects

func (repo *schoolRepository) CreateSubject(_ context.Context, sub school.Subject, _ ...core.DBExecutor) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var maxSort int
	for _, s := range repo.db.subjects {
		if s.ClassID == sub.ClassID && s.SortOrder > maxSort {
			maxSort = s.SortOrder
		}
	}
	sub.ID = uuid.New().String()
	sub.SortOrder = maxSort + 1
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *schoolRepository) GetSubject(_ context.Context, id string, _ ...core.DBExecutor) (school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) QuerySubjects(_ context.Context, classID string, _ ...core.DBExecutor) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]school.Subject, 0)
	for _, sub := range repo.db.subjects {
		if sub.ClassID == classID {
			subjects = append(subjects, *sub)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].SortOrder == subjects[j].SortOrder {
			return subjects[i].CreatedAt.Before(subjects[j].CreatedAt)
		}
		return subjects[i].SortOrder < subjects[j].SortOrder
	})
	return subjects, nil
}

func (repo *schoolRepository) UpdateSubject(_ context.Context, sub school.Subject, _ ...core.DBExecutor) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[sub.ID]; !ok {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *schoolRepository) DeleteSubject(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return school.ErrSubjectNotFound
	}
	delete(repo.db.subjects, id)
	return nil
}

// Assignments

func (repo *schoolRepository) CreateAssignment(_ context.Context, asg school.Assignment, _ ...core.DBExecutor) (school.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	asg.ID = uuid.New().String()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *schoolRepository) GetAssignment(_ context.Context, id string, _ ...core.DBExecutor) (school.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return school.Assignment{}, school.ErrAssignmentNotFound
}

func (repo *schoolRepository) QueryAssignments(_ context.Context, filter school.AssignmentFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]school.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	asgs := make([]school.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if asg.ClassID != filter.ClassID {
			continue
		}
		// YYYY-MM-DD compares lexicographically
		if filter.Date != "" {
			if asg.DueDate != filter.Date {
				continue
			}
		} else {
			if filter.From != "" && asg.DueDate < filter.From {
				continue
			}
			if filter.To != "" && asg.DueDate > filter.To {
				continue
			}
		}
		asgs = append(asgs, *asg)
	}

	asc := true
	if len(ordering) > 0 && ordering[0].Field == "due_date" {
		asc = ordering[0].Ascending
	}
	sort.Slice(asgs, func(i, j int) bool {
		if asgs[i].DueDate == asgs[j].DueDate {
			return asgs[i].CreatedAt.Before(asgs[j].CreatedAt)
		}
		if asc {
			return asgs[i].DueDate < asgs[j].DueDate
		}
		return asgs[i].DueDate > asgs[j].DueDate
	})
	return asgs, nil
}

func (repo *schoolRepository) UpdateAssignment(_ context.Context, asg school.Assignment, _ ...core.DBExecutor) (school.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[asg.ID]; !ok {
		return school.Assignment{}, school.ErrAssignmentNotFound
	}
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *schoolRepository) DeleteAssignment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return school.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	for cid, cpl := range repo.db.completions {
		if cpl.AssignmentID == id {
			delete(repo.db.completions, cid)
		}
	}
	return nil
}

// Completions

func (repo *schoolRepository) UpsertCompletion(_ context.Context, cpl school.Completion, _ ...core.DBExecutor) (school.Completion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.completions {
		if c.AssignmentID == cpl.AssignmentID && c.UserID == cpl.UserID {
			c.Completed = cpl.Completed
			c.CompletedAt = cpl.CompletedAt
			return *c, nil
		}
	}
	cpl.ID = uuid.New().String()
	repo.db.completions[cpl.ID] = &cpl
	return cpl, nil
}

func (repo *schoolRepository) QueryCompletions(_ context.Context, userID string, assignmentIDs []string, _ ...core.DBExecutor) ([]school.Completion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = true
	}

	cpls := make([]school.Completion, 0)
	for _, cpl := range repo.db.completions {
		if cpl.UserID == userID && wanted[cpl.AssignmentID] {
			cpls = append(cpls, *cpl)
		}
	}
	return cpls, nil
}

// Reminders

func (repo *schoolRepository) CreateReminder(_ context.Context, rem school.Reminder, _ ...core.DBExecutor) (school.Reminder, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rem.ID = uuid.New().String()
	repo.db.reminders[rem.ID] = &rem
	return rem, nil
}

func (repo *schoolRepository) GetReminder(_ context.Context, id string, _ ...core.DBExecutor) (school.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rem, ok := repo.db.reminders[id]; ok {
		return *rem, nil
	}
	return school.Reminder{}, school.ErrReminderNotFound
}

func (repo *schoolRepository) QueryUserReminders(_ context.Context, userID string, _ ...core.DBExecutor) ([]school.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rems := make([]school.Reminder, 0)
	for _, rem := range repo.db.reminders {
		if rem.UserID == userID {
			rems = append(rems, *rem)
		}
	}
	sort.Slice(rems, func(i, j int) bool {
		if rems[i].Time == rems[j].Time {
			return rems[i].ID < rems[j].ID
		}
		return rems[i].Time < rems[j].Time
	})
	return rems, nil
}

func (repo *schoolRepository) UpdateReminder(_ context.Context, rem school.Reminder, _ ...core.DBExecutor) (school.Reminder, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.reminders[rem.ID]; !ok {
		return school.Reminder{}, school.ErrReminderNotFound
	}
	repo.db.reminders[rem.ID] = &rem
	return rem, nil
}

func (repo *schoolRepository) DeleteReminder(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.reminders[id]; !ok {
		return school.ErrReminderNotFound
	}
	delete(repo.db.reminders, id)
	return nil
}
