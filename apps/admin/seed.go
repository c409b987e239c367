package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/trezcool/attendance/core/user"
)

type seedFile struct {
	Users []user.NewUser `mapstructure:"users"`
}

// seed provisions every user listed in path, in order. It stops at the first invalid entry.
func (cli *commandLine) seed(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	var sf seedFile
	if err := v.Unmarshal(&sf); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	if len(sf.Users) == 0 {
		return errors.Errorf("%s: no users to seed", path)
	}

	ctx := context.Background()
	for i, nu := range sf.Users {
		usr, err := cli.usrSvc.Provision(ctx, nu)
		if err != nil {
			return errors.Wrapf(err, "provisioning users[%d] %q", i, nu.Username)
		}
		fmt.Fprintf(cli.out, "user %q saved (admin: %t)\n", usr.Username, usr.IsAdmin)
	}
	return nil
}
