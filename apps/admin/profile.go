package main

import (
	"context"
	"fmt"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
)

// addUser updates or creates an admin.
func (cli *commandLine) addUser(ctx context.Context, email, name, pwd string) error {
	p, err := cli.profileSvc.SaveAdmin(ctx, email, name, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("admin %s saved\n", p.Email)
	return nil
}

func (cli *commandLine) verifyStudent(ctx context.Context, email string, verified bool) error {
	p, err := cli.profileSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !p.IsStudent() {
		return profile.ErrNotFound
	}
	if _, err = cli.profileSvc.SetVerified(ctx, "", p.ID, verified); err != nil {
		return err
	}
	fmt.Printf("student %s verified: %t\n", p.Email, verified)
	return nil
}
