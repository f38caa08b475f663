package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/filterql/auth"
	"github.com/hugr-lab/filterql/internal/config"
)

func newTokenCmd() *cobra.Command {
	v := config.New()
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := v.GetString("jwt.secret")
			if secret == "" {
				return errors.New("jwt secret is required (--jwt-secret or FILTERQL_JWT_SECRET)")
			}
			token, err := auth.NewToken([]byte(secret), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&subject, "subject", "", "user identity")
	flags.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flags.String("jwt-secret", "", "HS256 signing secret")
	_ = cmd.MarkFlagRequired("subject")
	if err := v.BindPFlag("jwt.secret", flags.Lookup("jwt-secret")); err != nil {
		panic(err)
	}
	return cmd
}
