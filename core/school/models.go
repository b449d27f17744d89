package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

// Membership roles
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleMember = "member"
	RoleParent = "parent"
)

// Action is an operation gated by class membership.
type Action string

const (
	ActionView             Action = "view"
	ActionManageClass      Action = "manage_class"
	ActionManageContent    Action = "manage_content"
	ActionRecordCompletion Action = "record_completion"
)

// actionRoles maps each Action to the roles allowed to perform it;
// a nil entry means any membership role is enough.
var actionRoles = map[Action][]string{
	ActionManageClass:      {RoleOwner},
	ActionManageContent:    {RoleOwner, RoleEditor},
	ActionView:             nil,
	ActionRecordCompletion: nil,
}

// Attachment types
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

type (
	Class struct {
		ID         string      `json:"id"`
		Name       string      `json:"name"`
		SchoolName null.String `json:"school_name"`
		InviteCode string      `json:"invite_code"`
		CreatedBy  string      `json:"created_by"`
		CreatedAt  time.Time   `json:"created_at"` // UTC
	}

	// ClassInfo is a Class annotated with the caller's membership view.
	ClassInfo struct {
		Class
		MemberCount int    `json:"member_count"`
		MyRole      string `json:"my_role,omitempty"`
	}

	// ClassDetail is the full Class projection: subjects in display order,
	// members with their user profiles, and aggregate counts.
	ClassDetail struct {
		Class
		Subjects        []Subject     `json:"subjects"`
		Members         []ClassMember `json:"members"`
		MemberCount     int           `json:"member_count"`
		AssignmentCount int           `json:"assignment_count"`
	}

	ClassMember struct {
		ID              string      `json:"id"`
		ClassID         string      `json:"class_id"`
		UserID          string      `json:"user_id"`
		Role            string      `json:"role"`
		LinkedStudentID null.String `json:"linked_student_id"`
		JoinedAt        time.Time   `json:"joined_at"` // UTC
		User            *user.User  `json:"user,omitempty"`
	}

	Subject struct {
		ID        string    `json:"id"`
		ClassID   string    `json:"class_id"`
		Name      string    `json:"name"`
		Emoji     string    `json:"emoji"`
		Color     string    `json:"color"`
		SortOrder int       `json:"sort_order"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Attachment struct {
		Type string `json:"type" validate:"required,oneof=image file"`
		URL  string `json:"url" validate:"required,max=1000"`
		Name string `json:"name" validate:"required,max=255"`
	}

	Assignment struct {
		ID          string       `json:"id"`
		ClassID     string       `json:"class_id"`
		SubjectID   string       `json:"subject_id"`
		DueDate     string       `json:"due_date"` // YYYY-MM-DD
		Content     string       `json:"content"`
		Attachments []Attachment `json:"attachments"`
		CreatedBy   string       `json:"created_by"`
		CreatedAt   time.Time    `json:"created_at"` // UTC
		UpdatedAt   time.Time    `json:"updated_at"` // UTC
	}

	// AssignmentInfo is an Assignment annotated with the caller's own
	// completion state; the flag is derived at read time, never stored.
	AssignmentInfo struct {
		Assignment
		IsCompleted bool `json:"is_completed"`
	}

	// Completion records whether one user finished one assignment.
	// CompletedAt is non-null iff Completed is true.
	Completion struct {
		ID           string    `json:"id"`
		AssignmentID string    `json:"assignment_id"`
		UserID       string    `json:"user_id"`
		Completed    bool      `json:"completed"`
		CompletedAt  null.Time `json:"completed_at"` // UTC
	}

	Reminder struct {
		ID      string      `json:"id"`
		UserID  string      `json:"user_id"`
		ClassID null.String `json:"class_id"`
		Time    string      `json:"time"` // HH:MM
		Days    []int       `json:"days"` // 0 = Sunday
		Enabled bool        `json:"enabled"`
	}
)

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name       string `json:"name" validate:"required,max=100"`
	SchoolName string `json:"school_name" validate:"omitempty,max=200"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.SchoolName = core.CleanString(nc.SchoolName)
	return validate.Struct(nc)
}

// JoinClass joins the caller to the class owning InviteCode.
// LinkedStudentID optionally ties a parent account to their child's membership.
type JoinClass struct {
	InviteCode      string `json:"invite_code" validate:"required,len=6"`
	LinkedStudentID string `json:"linked_student_id" validate:"omitempty,uuid4"`
}

func (jc *JoinClass) Validate(validate *validator.Validate) error {
	jc.InviteCode = core.CleanString(jc.InviteCode)
	return validate.Struct(jc)
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	ClassID string `json:"class_id" validate:"required,uuid4"`
	Name    string `json:"name" validate:"required,max=100"`
	Emoji   string `json:"emoji" validate:"omitempty,max=10"`
	Color   string `json:"color" validate:"omitempty,hexcolor"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Emoji == "" {
		ns.Emoji = "📚"
	}
	if ns.Color == "" {
		ns.Color = "#3B82F6"
	}
	return nil
}

// UpdateSubject defines what information may be provided to modify an existing
// Subject; empty fields are left unchanged.
type UpdateSubject struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Emoji string `json:"emoji" validate:"omitempty,max=10"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	return validate.Struct(us)
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	ClassID     string       `json:"class_id" validate:"required,uuid4"`
	SubjectID   string       `json:"subject_id" validate:"required,uuid4"`
	DueDate     string       `json:"due_date" validate:"required,datetime=2006-01-02"`
	Content     string       `json:"content" validate:"required,max=2000"`
	Attachments []Attachment `json:"attachments" validate:"omitempty,dive"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Content = core.CleanString(na.Content)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an
// existing Assignment; empty fields are left unchanged (nil Attachments too).
type UpdateAssignment struct {
	SubjectID   string       `json:"subject_id" validate:"omitempty,uuid4"`
	DueDate     string       `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Content     string       `json:"content" validate:"omitempty,max=2000"`
	Attachments []Attachment `json:"attachments" validate:"omitempty,dive"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Content = core.CleanString(ua.Content)
	return validate.Struct(ua)
}

// SetCompletion marks the caller's own completion state on an assignment.
type SetCompletion struct {
	Completed *bool `json:"completed" validate:"required"`
}

func (sc *SetCompletion) Validate(validate *validator.Validate) error {
	return validate.Struct(sc)
}

// NewReminder contains information needed to create a new Reminder.
type NewReminder struct {
	ClassID string `json:"class_id" validate:"omitempty,uuid4"`
	Time    string `json:"time" validate:"required,datetime=15:04"`
	Days    []int  `json:"days" validate:"required,min=1,dive,min=0,max=6"`
	Enabled *bool  `json:"enabled"`
}

func (nr *NewReminder) Validate(validate *validator.Validate) error {
	return validate.Struct(nr)
}

// UpdateReminder defines what information may be provided to modify an
// existing Reminder; zero fields are left unchanged.
type UpdateReminder struct {
	Time    string `json:"time" validate:"omitempty,datetime=15:04"`
	Days    []int  `json:"days" validate:"omitempty,min=1,dive,min=0,max=6"`
	Enabled *bool  `json:"enabled"`
}

func (ur *UpdateReminder) Validate(validate *validator.Validate) error {
	return validate.Struct(ur)
}

// AssignmentFilter narrows down an assignment listing.
// Date and From/To are mutually exclusive; Date wins when both are set.
type AssignmentFilter struct {
	ClassID string `query:"class_id" validate:"required,uuid4"`
	Date    string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	From    string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

func (f *AssignmentFilter) Validate(validate *validator.Validate) error {
	f.ClassID = core.CleanString(f.ClassID)
	return validate.Struct(f)
}
