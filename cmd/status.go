package cmd

import (
	"encoding/json"

	"github.com/bnema/online-session-kit/internal/adapters/render/roster"
	"github.com/bnema/online-session-kit/internal/application"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in and the current lobby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					s.logger.Debug().Err(err).Msg("status without a session")
				}

				lobby, inLobby := s.system.CurrentLobby()
				if asJSON {
					return writeJSON(cmd, newStatusOutput(s.system.Identity(), lobby, inLobby))
				}

				sections := roster.SectionSession
				if s.system.ManagersActive() {
					sections |= roster.SectionLobby
				}
				return s.render(roster.View{
					Sections: sections,
					Identity: s.system.Identity(),
					Lobby:    lobby,
					InLobby:  inLobby,
				})
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type statusOutput struct {
	State       string               `json:"state"`
	AccountID   domain.AccountID     `json:"account_id,omitempty"`
	SessionID   domain.SessionID     `json:"session_id,omitempty"`
	DisplayName string               `json:"display_name,omitempty"`
	Deployment  string               `json:"deployment,omitempty"`
	Lobby       *domain.LobbySummary `json:"lobby,omitempty"`
}

func newStatusOutput(id application.Identity, lobby domain.LobbySummary, inLobby bool) statusOutput {
	out := statusOutput{
		State:       id.State.String(),
		AccountID:   id.AccountID,
		SessionID:   id.SessionID,
		DisplayName: id.DisplayName,
		Deployment:  id.DeploymentOrSandboxID,
	}
	if inLobby {
		out.Lobby = &lobby
	}
	return out
}
