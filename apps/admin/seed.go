package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
)

const seedTelegramID = 123456789

// seed loads a demo class with subjects and assignments. Running it twice
// is a no-op.
func (cli *commandLine) seed(ctx context.Context) error {
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{TelegramID: seedTelegramID})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding seed user")
		}
		usr = user.User{
			TelegramID: null.Int64From(seedTelegramID),
			Name:       "Алексей",
			Role:       user.RoleStudent,
			CreatedAt:  now,
		}
		if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return errors.Wrap(err, "creating seed user")
		}
	}

	cls := school.Class{
		Name:       "9Б класс",
		SchoolName: null.StringFrom("Школа №42"),
		InviteCode: "ABC123",
		CreatedBy:  usr.ID,
		CreatedAt:  now,
	}
	owner := school.ClassMember{
		UserID:   usr.ID,
		Role:     school.RoleOwner,
		JoinedAt: now,
	}
	if cls, err = cli.schRepo.CreateClass(ctx, cls, owner); err != nil {
		if errors.Cause(err) == school.ErrCodeExists {
			fmt.Println("demo data already loaded")
			return nil
		}
		return errors.Wrap(err, "creating seed class")
	}

	subjects := []school.Subject{
		{Name: "Алгебра", Emoji: "📐", Color: "#3B82F6"},
		{Name: "Русский язык", Emoji: "📚", Color: "#EF4444"},
		{Name: "История", Emoji: "📜", Color: "#F59E0B"},
		{Name: "Физика", Emoji: "⚡", Color: "#8B5CF6"},
		{Name: "Английский", Emoji: "🇬🇧", Color: "#10B981"},
	}
	for i, sub := range subjects {
		sub.ClassID = cls.ID
		sub.CreatedAt = now
		if subjects[i], err = cli.schRepo.CreateSubject(ctx, sub); err != nil {
			return errors.Wrap(err, "creating seed subject")
		}
	}

	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	assignments := []school.Assignment{
		{SubjectID: subjects[0].ID, DueDate: today, Content: "§12, номера 234-236"},
		{SubjectID: subjects[1].ID, DueDate: today, Content: "Упражнение 45, выучить правило"},
		{SubjectID: subjects[2].ID, DueDate: tomorrow, Content: "Читать параграф 15-16"},
	}
	for _, asg := range assignments {
		asg.ClassID = cls.ID
		asg.CreatedBy = usr.ID
		asg.CreatedAt = now
		asg.UpdatedAt = now
		if _, err = cli.schRepo.CreateAssignment(ctx, asg); err != nil {
			return errors.Wrap(err, "creating seed assignment")
		}
	}

	fmt.Printf("demo data loaded: class %q (invite code %s)\n", cls.Name, cls.InviteCode)
	return nil
}
