package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
	schRepo school.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run DB migrations (up, down, status, ...)")
	fmt.Println("  seed                   - load demo data into the DB")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed(context.Background())
	default:
		cli.printUsage()
		return errHelp
	}
}
