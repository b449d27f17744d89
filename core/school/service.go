package school

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
)

// errors
var (
	ErrClassNotFound      = errors.New("class not found")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrNotMember          = errors.New("not a member of this class")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAlreadyMember      = errors.New("already a member of this class")
	ErrOwnerCannotLeave   = errors.New("class owner cannot leave; delete the class instead")
	ErrCodeExists         = errors.New("invite code already in use")
	ErrCodeExhausted      = errors.New("could not allocate a unique invite code")
)

type (
	// ClassFilter narrows down a single Class lookup; ID takes precedence.
	ClassFilter struct {
		ID         string
		InviteCode string
	}

	Repository interface {
		// CreateClass inserts the class and its owner membership atomically.
		// A duplicate invite code yields ErrCodeExists.
		CreateClass(ctx context.Context, cls Class, owner ClassMember, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, filter ClassFilter, exec ...core.DBExecutor) (Class, error)
		// QueryUserClasses returns the classes userID belongs to, each annotated
		// with its member count and userID's own role.
		QueryUserClasses(ctx context.Context, userID string, exec ...core.DBExecutor) ([]ClassInfo, error)
		// DeleteClass removes the class and all its subjects, assignments,
		// memberships and completions; partial deletion must not be observable.
		DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountAssignments(ctx context.Context, classID string, exec ...core.DBExecutor) (int, error)

		GetMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) (ClassMember, error)
		// CreateMembership relies on the unique (class_id, user_id) constraint:
		// a violating insert yields ErrAlreadyMember.
		CreateMembership(ctx context.Context, mbr ClassMember, exec ...core.DBExecutor) (ClassMember, error)
		DeleteMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) error
		// QueryMembers returns the class roster with user profiles joined.
		QueryMembers(ctx context.Context, classID string, exec ...core.DBExecutor) ([]ClassMember, error)

		// CreateSubject assigns the next sort position within the class.
		CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)
		// QuerySubjects returns the class subjects ordered by sort position,
		// ties broken by creation order.
		QuerySubjects(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubject(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		// QueryAssignments applies AND operation on available AssignmentFilter
		// fields; default ordering is due date then creation time.
		QueryAssignments(ctx context.Context, filter AssignmentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string, exec ...core.DBExecutor) error

		UpsertCompletion(ctx context.Context, cpl Completion, exec ...core.DBExecutor) (Completion, error)
		// QueryCompletions returns userID's completion rows for the given assignments.
		QueryCompletions(ctx context.Context, userID string, assignmentIDs []string, exec ...core.DBExecutor) ([]Completion, error)

		CreateReminder(ctx context.Context, rem Reminder, exec ...core.DBExecutor) (Reminder, error)
		GetReminder(ctx context.Context, id string, exec ...core.DBExecutor) (Reminder, error)
		QueryUserReminders(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Reminder, error)
		UpdateReminder(ctx context.Context, rem Reminder, exec ...core.DBExecutor) (Reminder, error)
		DeleteReminder(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Authorize(ctx context.Context, userID, classID string, action Action) (ClassMember, error)

		CreateClass(ctx context.Context, userID string, nc NewClass) (ClassInfo, error)
		QueryClasses(ctx context.Context, userID string) ([]ClassInfo, error)
		GetClass(ctx context.Context, userID, classID string) (ClassDetail, error)
		DeleteClass(ctx context.Context, userID, classID string) error
		JoinClass(ctx context.Context, userID string, jc JoinClass) (ClassInfo, error)
		LeaveClass(ctx context.Context, userID, classID string) error

		CreateSubject(ctx context.Context, userID string, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, userID, classID string) ([]Subject, error)
		UpdateSubject(ctx context.Context, userID, subjectID string, us UpdateSubject) (Subject, error)
		DeleteSubject(ctx context.Context, userID, subjectID string) error

		CreateAssignment(ctx context.Context, userID string, na NewAssignment) (AssignmentInfo, error)
		QueryAssignments(ctx context.Context, userID string, filter AssignmentFilter, ordering []core.DBOrdering) ([]AssignmentInfo, error)
		UpdateAssignment(ctx context.Context, userID, assignmentID string, ua UpdateAssignment) (AssignmentInfo, error)
		DeleteAssignment(ctx context.Context, userID, assignmentID string) error
		SetCompletion(ctx context.Context, userID, assignmentID string, completed bool) (Completion, error)

		CreateReminder(ctx context.Context, userID string, nr NewReminder) (Reminder, error)
		QueryReminders(ctx context.Context, userID string) ([]Reminder, error)
		UpdateReminder(ctx context.Context, userID, reminderID string, ur UpdateReminder) (Reminder, error)
		DeleteReminder(ctx context.Context, userID, reminderID string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authorize decides whether userID may perform action on classID.
// The membership row is looked up fresh on every call; roles can change
// between requests so the decision is never cached.
func (svc *Service) Authorize(ctx context.Context, userID, classID string, action Action) (ClassMember, error) {
	mbr, err := svc.repo.GetMembership(ctx, classID, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotMember {
			return ClassMember{}, ErrNotMember
		}
		return ClassMember{}, errors.Wrap(err, "looking up membership")
	}

	roles := actionRoles[action]
	if len(roles) == 0 { // any membership role will do
		return mbr, nil
	}
	for _, role := range roles {
		if mbr.Role == role {
			return mbr, nil
		}
	}
	return ClassMember{}, ErrPermissionDenied
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, userID string, nc NewClass) (ClassInfo, error) {
	now := time.Now().UTC()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return ClassInfo{}, errors.Wrap(err, "generating invite code")
		}

		cls := Class{
			Name:       nc.Name,
			SchoolName: null.NewString(nc.SchoolName, nc.SchoolName != ""),
			InviteCode: code,
			CreatedBy:  userID,
			CreatedAt:  now,
		}
		owner := ClassMember{
			UserID:   userID,
			Role:     RoleOwner,
			JoinedAt: now,
		}

		cls, err = svc.repo.CreateClass(ctx, cls, owner)
		if err != nil {
			if errors.Cause(err) == ErrCodeExists {
				continue // the unique index caught a collision; redraw
			}
			return ClassInfo{}, errors.Wrap(err, "creating class")
		}
		return ClassInfo{Class: cls, MemberCount: 1, MyRole: RoleOwner}, nil
	}
	return ClassInfo{}, ErrCodeExhausted
}

func (svc *Service) QueryClasses(ctx context.Context, userID string) ([]ClassInfo, error) {
	return svc.repo.QueryUserClasses(ctx, userID)
}

func (svc *Service) GetClass(ctx context.Context, userID, classID string) (ClassDetail, error) {
	cls, err := svc.repo.GetClass(ctx, ClassFilter{ID: classID})
	if err != nil {
		return ClassDetail{}, err
	}
	if _, err = svc.Authorize(ctx, userID, classID, ActionView); err != nil {
		return ClassDetail{}, err
	}

	subjects, err := svc.repo.QuerySubjects(ctx, classID)
	if err != nil {
		return ClassDetail{}, errors.Wrap(err, "querying subjects")
	}
	members, err := svc.repo.QueryMembers(ctx, classID)
	if err != nil {
		return ClassDetail{}, errors.Wrap(err, "querying members")
	}
	asgCount, err := svc.repo.CountAssignments(ctx, classID)
	if err != nil {
		return ClassDetail{}, errors.Wrap(err, "counting assignments")
	}

	return ClassDetail{
		Class:           cls,
		Subjects:        subjects,
		Members:         members,
		MemberCount:     len(members),
		AssignmentCount: asgCount,
	}, nil
}

func (svc *Service) DeleteClass(ctx context.Context, userID, classID string) error {
	if _, err := svc.repo.GetClass(ctx, ClassFilter{ID: classID}); err != nil {
		return err
	}
	if _, err := svc.Authorize(ctx, userID, classID, ActionManageClass); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, classID)
}

func (svc *Service) JoinClass(ctx context.Context, userID string, jc JoinClass) (ClassInfo, error) {
	// stored codes are always upper-case; lookup is case-insensitive
	cls, err := svc.repo.GetClass(ctx, ClassFilter{InviteCode: strings.ToUpper(core.CleanString(jc.InviteCode))})
	if err != nil {
		return ClassInfo{}, err
	}

	if _, err = svc.repo.GetMembership(ctx, cls.ID, userID); err == nil {
		return ClassInfo{}, ErrAlreadyMember
	} else if errors.Cause(err) != ErrNotMember {
		return ClassInfo{}, errors.Wrap(err, "looking up membership")
	}

	mbr := ClassMember{
		ClassID:  cls.ID,
		UserID:   userID,
		Role:     RoleMember,
		JoinedAt: time.Now().UTC(),
	}
	if jc.LinkedStudentID != "" {
		// a parent joins linked to their child's membership in the same class
		if _, err = svc.repo.GetMembership(ctx, cls.ID, jc.LinkedStudentID); err != nil {
			if errors.Cause(err) == ErrNotMember {
				return ClassInfo{}, core.NewValidationError(nil,
					core.FieldError{Field: "linked_student_id", Error: "student is not a member of this class"})
			}
			return ClassInfo{}, errors.Wrap(err, "looking up linked student")
		}
		mbr.Role = RoleParent
		mbr.LinkedStudentID = null.StringFrom(jc.LinkedStudentID)
	}

	// two concurrent joins may both pass the check above; the unique
	// (class_id, user_id) constraint is the final arbiter
	if mbr, err = svc.repo.CreateMembership(ctx, mbr); err != nil {
		if errors.Cause(err) == ErrAlreadyMember {
			return ClassInfo{}, ErrAlreadyMember
		}
		return ClassInfo{}, errors.Wrap(err, "creating membership")
	}

	members, err := svc.repo.QueryMembers(ctx, cls.ID)
	if err != nil {
		return ClassInfo{}, errors.Wrap(err, "querying members")
	}
	return ClassInfo{Class: cls, MemberCount: len(members), MyRole: mbr.Role}, nil
}

func (svc *Service) LeaveClass(ctx context.Context, userID, classID string) error {
	mbr, err := svc.repo.GetMembership(ctx, classID, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotMember {
			return ErrNotMember
		}
		return errors.Wrap(err, "looking up membership")
	}
	if mbr.Role == RoleOwner {
		return ErrOwnerCannotLeave
	}
	return svc.repo.DeleteMembership(ctx, classID, userID)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, userID string, ns NewSubject) (Subject, error) {
	if _, err := svc.repo.GetClass(ctx, ClassFilter{ID: ns.ClassID}); err != nil {
		return Subject{}, err
	}
	if _, err := svc.Authorize(ctx, userID, ns.ClassID, ActionManageContent); err != nil {
		return Subject{}, err
	}

	sub := Subject{
		ClassID:   ns.ClassID,
		Name:      ns.Name,
		Emoji:     ns.Emoji,
		Color:     ns.Color,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) QuerySubjects(ctx context.Context, userID, classID string) ([]Subject, error) {
	if _, err := svc.repo.GetClass(ctx, ClassFilter{ID: classID}); err != nil {
		return nil, err
	}
	if _, err := svc.Authorize(ctx, userID, classID, ActionView); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubjects(ctx, classID)
}

func (svc *Service) UpdateSubject(ctx context.Context, userID, subjectID string, us UpdateSubject) (Subject, error) {
	sub, err := svc.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	// re-check against the stored row's class, never caller-supplied ids
	if _, err = svc.Authorize(ctx, userID, sub.ClassID, ActionManageContent); err != nil {
		return Subject{}, err
	}

	if us.Name != "" {
		sub.Name = us.Name
	}
	if us.Emoji != "" {
		sub.Emoji = us.Emoji
	}
	if us.Color != "" {
		sub.Color = us.Color
	}
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *Service) DeleteSubject(ctx context.Context, userID, subjectID string) error {
	sub, err := svc.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	if _, err = svc.Authorize(ctx, userID, sub.ClassID, ActionManageContent); err != nil {
		return err
	}
	return svc.repo.DeleteSubject(ctx, subjectID)
}

// Assignments

func (svc *Service) CreateAssignment(ctx context.Context, userID string, na NewAssignment) (AssignmentInfo, error) {
	if _, err := svc.repo.GetClass(ctx, ClassFilter{ID: na.ClassID}); err != nil {
		return AssignmentInfo{}, err
	}
	if _, err := svc.Authorize(ctx, userID, na.ClassID, ActionManageContent); err != nil {
		return AssignmentInfo{}, err
	}
	if err := svc.checkSubjectInClass(ctx, na.SubjectID, na.ClassID); err != nil {
		return AssignmentInfo{}, err
	}

	now := time.Now().UTC()
	asg := Assignment{
		ClassID:     na.ClassID,
		SubjectID:   na.SubjectID,
		DueDate:     na.DueDate,
		Content:     na.Content,
		Attachments: na.Attachments,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	asg, err := svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return AssignmentInfo{}, errors.Wrap(err, "creating assignment")
	}
	return AssignmentInfo{Assignment: asg}, nil
}

func (svc *Service) QueryAssignments(ctx context.Context, userID string, filter AssignmentFilter, ordering []core.DBOrdering) ([]AssignmentInfo, error) {
	if _, err := svc.repo.GetClass(ctx, ClassFilter{ID: filter.ClassID}); err != nil {
		return nil, err
	}
	if _, err := svc.Authorize(ctx, userID, filter.ClassID, ActionView); err != nil {
		return nil, err
	}

	asgs, err := svc.repo.QueryAssignments(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return svc.projectCompletion(ctx, userID, asgs)
}

func (svc *Service) UpdateAssignment(ctx context.Context, userID, assignmentID string, ua UpdateAssignment) (AssignmentInfo, error) {
	asg, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return AssignmentInfo{}, err
	}
	if _, err = svc.Authorize(ctx, userID, asg.ClassID, ActionManageContent); err != nil {
		return AssignmentInfo{}, err
	}

	if ua.SubjectID != "" {
		if err = svc.checkSubjectInClass(ctx, ua.SubjectID, asg.ClassID); err != nil {
			return AssignmentInfo{}, err
		}
		asg.SubjectID = ua.SubjectID
	}
	if ua.DueDate != "" {
		asg.DueDate = ua.DueDate
	}
	if ua.Content != "" {
		asg.Content = ua.Content
	}
	if ua.Attachments != nil {
		asg.Attachments = ua.Attachments
	}
	asg.UpdatedAt = time.Now().UTC()

	if asg, err = svc.repo.UpdateAssignment(ctx, asg); err != nil {
		return AssignmentInfo{}, errors.Wrap(err, "updating assignment")
	}

	infos, err := svc.projectCompletion(ctx, userID, []Assignment{asg})
	if err != nil {
		return AssignmentInfo{}, err
	}
	return infos[0], nil
}

func (svc *Service) DeleteAssignment(ctx context.Context, userID, assignmentID string) error {
	asg, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if _, err = svc.Authorize(ctx, userID, asg.ClassID, ActionManageContent); err != nil {
		return err
	}
	// completions cascade with the assignment
	return svc.repo.DeleteAssignment(ctx, assignmentID)
}

// SetCompletion upserts the caller's own completion record; a repeat call
// with completed=true refreshes the timestamp.
func (svc *Service) SetCompletion(ctx context.Context, userID, assignmentID string, completed bool) (Completion, error) {
	asg, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Completion{}, err
	}
	if _, err = svc.Authorize(ctx, userID, asg.ClassID, ActionRecordCompletion); err != nil {
		return Completion{}, err
	}

	cpl := Completion{
		AssignmentID: assignmentID,
		UserID:       userID,
		Completed:    completed,
	}
	if completed {
		cpl.CompletedAt = null.TimeFrom(time.Now().UTC())
	}
	return svc.repo.UpsertCompletion(ctx, cpl)
}

// checkSubjectInClass verifies the subject exists and belongs to classID.
func (svc *Service) checkSubjectInClass(ctx context.Context, subjectID, classID string) error {
	sub, err := svc.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	if sub.ClassID != classID {
		return core.NewValidationError(nil,
			core.FieldError{Field: "subject_id", Error: "subject does not belong to this class"})
	}
	return nil
}

// projectCompletion annotates assignments with the caller's is_completed flag,
// derived at read time from their completion rows.
func (svc *Service) projectCompletion(ctx context.Context, userID string, asgs []Assignment) ([]AssignmentInfo, error) {
	ids := make([]string, 0, len(asgs))
	for _, asg := range asgs {
		ids = append(ids, asg.ID)
	}

	var done map[string]bool
	if len(ids) > 0 {
		cpls, err := svc.repo.QueryCompletions(ctx, userID, ids)
		if err != nil {
			return nil, errors.Wrap(err, "querying completions")
		}
		done = make(map[string]bool, len(cpls))
		for _, cpl := range cpls {
			done[cpl.AssignmentID] = cpl.Completed
		}
	}

	infos := make([]AssignmentInfo, 0, len(asgs))
	for _, asg := range asgs {
		infos = append(infos, AssignmentInfo{Assignment: asg, IsCompleted: done[asg.ID]})
	}
	return infos, nil
}

// Reminders

func (svc *Service) CreateReminder(ctx context.Context, userID string, nr NewReminder) (Reminder, error) {
	if nr.ClassID != "" {
		if _, err := svc.repo.GetClass(ctx, ClassFilter{ID: nr.ClassID}); err != nil {
			return Reminder{}, err
		}
		if _, err := svc.Authorize(ctx, userID, nr.ClassID, ActionView); err != nil {
			return Reminder{}, err
		}
	}

	rem := Reminder{
		UserID:  userID,
		ClassID: null.NewString(nr.ClassID, nr.ClassID != ""),
		Time:    nr.Time,
		Days:    nr.Days,
		Enabled: true,
	}
	if nr.Enabled != nil {
		rem.Enabled = *nr.Enabled
	}
	return svc.repo.CreateReminder(ctx, rem)
}

func (svc *Service) QueryReminders(ctx context.Context, userID string) ([]Reminder, error) {
	return svc.repo.QueryUserReminders(ctx, userID)
}

func (svc *Service) UpdateReminder(ctx context.Context, userID, reminderID string, ur UpdateReminder) (Reminder, error) {
	rem, err := svc.getOwnReminder(ctx, userID, reminderID)
	if err != nil {
		return Reminder{}, err
	}

	if ur.Time != "" {
		rem.Time = ur.Time
	}
	if ur.Days != nil {
		rem.Days = ur.Days
	}
	if ur.Enabled != nil {
		rem.Enabled = *ur.Enabled
	}
	return svc.repo.UpdateReminder(ctx, rem)
}

func (svc *Service) DeleteReminder(ctx context.Context, userID, reminderID string) error {
	if _, err := svc.getOwnReminder(ctx, userID, reminderID); err != nil {
		return err
	}
	return svc.repo.DeleteReminder(ctx, reminderID)
}

// getOwnReminder hides other users' reminders behind ErrReminderNotFound.
func (svc *Service) getOwnReminder(ctx context.Context, userID, reminderID string) (Reminder, error) {
	rem, err := svc.repo.GetReminder(ctx, reminderID)
	if err != nil {
		return Reminder{}, err
	}
	if rem.UserID != userID {
		return Reminder{}, ErrReminderNotFound
	}
	return rem, nil
}
