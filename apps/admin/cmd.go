package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db              *sql.DB
	profileSvc      profile.Service
	subscriptionSvc subscription.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -email EMAIL [-name NAME]   - create or update an admin")
	fmt.Println("  resetpassword -email EMAIL          - reset a user's password")
	fmt.Println("  verifystudent -email EMAIL [-undo]  - verify (or unverify) a student")
	fmt.Println("  seedplans                           - install the subscription plans")
	fmt.Println("  expiresubscriptions                 - deactivate ended subscriptions")
	fmt.Println("  migrate COMMAND [ARGS]              - run a goose migration command")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The admin's full name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	verifyStudentCmd := flag.NewFlagSet("verifystudent", flag.ContinueOnError)
	verifyStudentEmail := verifyStudentCmd.String("email", "", "The student's email.")
	verifyStudentUndo := verifyStudentCmd.Bool("undo", false, "Unverify the student instead.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserEmail, *addUserName, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.profileSvc.SetPassword(ctx, *resetPasswordEmail, pwd)

	case "verifystudent":
		if err := verifyStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *verifyStudentEmail == "" {
			verifyStudentCmd.Usage()
			return errHelp
		}
		return cli.verifyStudent(ctx, *verifyStudentEmail, !*verifyStudentUndo)

	case "seedplans":
		if err := cli.subscriptionSvc.SeedPlans(ctx); err != nil {
			return err
		}
		fmt.Println("subscription plans installed")
		return nil

	case "expiresubscriptions":
		n, err := cli.subscriptionSvc.ExpireDue(ctx, nowFunc())
		if err != nil {
			return err
		}
		fmt.Printf("%d subscriptions expired\n", n)
		return nil

	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate up|up-by-one|up-to|down|down-to|redo|reset|status|version|create|fix [ARGS]")
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
