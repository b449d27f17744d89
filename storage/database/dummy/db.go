package dummydb

import (
	"sync"

	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
)

// DB is an in-memory stand-in for the real store; used in tests and local dev.
// A single lock guards all tables so cascades stay atomic.
type DB struct {
	sync.RWMutex

	users       map[string]*user.User
	classes     map[string]*school.Class
	members     map[string]*school.ClassMember
	subjects    map[string]*school.Subject
	assignments map[string]*school.Assignment
	completions map[string]*school.Completion
	reminders   map[string]*school.Reminder
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[string]*user.User),
		classes:     make(map[string]*school.Class),
		members:     make(map[string]*school.ClassMember),
		subjects:    make(map[string]*school.Subject),
		assignments: make(map[string]*school.Assignment),
		completions: make(map[string]*school.Completion),
		reminders:   make(map[string]*school.Reminder),
	}
	return db, nil
}
