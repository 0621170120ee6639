package main

import (
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Start a new session and print the provider sign-in URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), fresh)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Login(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, svc.Status())
		},
	}
}

func (a *app) resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <redirect-url-or-fragment>",
		Short: "Finish sign-in with the URL the provider redirected to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context(), reload)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Resume(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(cmd, svc.Status())
		},
	}
}

func (a *app) epochCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "epoch",
		Short: "Retry fetching the current epoch after a failed login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), reload)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.FetchEpoch(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, svc.Status())
		},
	}
}

func (a *app) advanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Retry the pending automatic steps, such as a failed salt resolution or proof fetch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), reload)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Advance(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, svc.Status())
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), advance)
			if err != nil {
				return err
			}
			defer svc.Close()
			return printJSON(cmd, svc.Status())
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the session. The salt is kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), fresh)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Reset(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, svc.Status())
		},
	}
}

func (a *app) saltCmd() *cobra.Command {
	salt := &cobra.Command{
		Use:   "salt",
		Short: "Manage the persistent user salt",
	}
	salt.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete the salt of the signed in identity. Its address changes on next login.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), reload)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.DeleteSalt(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, svc.Status())
		},
	})
	return salt
}
