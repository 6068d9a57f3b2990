package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "osk",
		Short:         "Online session kit (osk): sign in, manage friends and lobbies",
		Long:          "osk drives an online session against a local sandbox platform: sign in with a stored or portal credential, browse and invite friends, and create, search and join lobbies. Sandbox state persists between runs.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newStatusCmd(app),
		newFriendsCmd(app),
		newLobbyCmd(app),
		newSandboxCmd(app),
	)

	return rootCmd
}
