package main

import (
	"context"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable
	nowFunc      = core.Now               // mockable
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
