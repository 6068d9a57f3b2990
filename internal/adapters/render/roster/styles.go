package roster

import (
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	name     lipgloss.Style
	detail   lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	friend   lipgloss.Style
	pending  lipgloss.Style
	blocked  lipgloss.Style
	other    lipgloss.Style
	presence lipgloss.Style
	full     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		name:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		friend:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		blocked:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		other:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		presence: lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		full:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

func (s styles) status(status domain.FriendStatus) lipgloss.Style {
	switch status {
	case domain.FriendStatusFriends:
		return s.friend
	case domain.FriendStatusInviteReceived, domain.FriendStatusInviteSent:
		return s.pending
	case domain.FriendStatusBlocked:
		return s.blocked
	default:
		return s.other
	}
}
