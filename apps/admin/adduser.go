package main

import (
	"context"
	"fmt"

	"github.com/trezcool/attendance/core/user"
)

// addUser creates or replaces a user.User
func (cli *commandLine) addUser(uname, pwd string, isAdmin bool) error {
	usr, err := cli.usrSvc.Provision(context.Background(), user.NewUser{
		Username: uname,
		Password: pwd,
		IsAdmin:  isAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q saved (admin: %t)\n", usr.Username, usr.IsAdmin)
	return nil
}
