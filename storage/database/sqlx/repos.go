package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

// unique constraint names (see fs/migrations)
const (
	classInviteCodeKey      = "class_invite_code_key"
	classMemberClassUserKey = "class_member_class_id_user_id_key"
)

func getExec(db core.DB, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return db
}

// trapNoRowsErr maps psql "no rows" err to the domain sentinel
func trapNoRowsErr(err, sentinel error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a psql unique_violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return constraint == "" || pqErr.Constraint == constraint
	}
	return false
}
