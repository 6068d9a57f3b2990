package roster

import (
	"fmt"
	"strings"

	"github.com/bnema/online-session-kit/internal/application"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type Section uint8

const (
	SectionSession Section = 1 << iota
	SectionFriends
	SectionLobby
	SectionSearch
)

func (s Section) Has(other Section) bool {
	return s&other == other
}

// View is everything a render can show. Sections picks which parts appear,
// in the fixed order session, friends, current lobby, search results.
type View struct {
	Sections Section
	Identity application.Identity
	Friends  []domain.FriendView
	Lobby    domain.LobbySummary
	InLobby  bool
	Results  []domain.LobbySummary
}

func renderView(v View, s styles) string {
	var blocks []string
	if v.Sections.Has(SectionSession) {
		blocks = append(blocks, renderSession(v.Identity, s))
	}
	if v.Sections.Has(SectionFriends) {
		blocks = append(blocks, renderFriends(v.Friends, s))
	}
	if v.Sections.Has(SectionLobby) {
		blocks = append(blocks, renderCurrentLobby(v.Lobby, v.InLobby, s))
	}
	if v.Sections.Has(SectionSearch) {
		blocks = append(blocks, renderResults(v.Results, s))
	}

	for i := 1; i < len(blocks); i++ {
		blocks[i] = s.section.Render(blocks[i])
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderSession(id application.Identity, s styles) string {
	lines := []string{
		s.title.Render("Session"),
		s.header.Render("state: " + id.State.String()),
	}
	if id.AccountID == "" {
		lines = append(lines, s.empty.Render("Not signed in."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.name.Render(accountTitle(id.DisplayName, id.AccountID)))
	if !id.SessionID.IsZero() {
		lines = append(lines, s.detail.Render("session: "+string(id.SessionID)))
	}
	if id.DeploymentOrSandboxID != "" {
		lines = append(lines, s.detail.Render("deployment: "+id.DeploymentOrSandboxID))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderFriends(friends []domain.FriendView, s styles) string {
	lines := []string{
		s.title.Render("Friends"),
		s.header.Render(fmt.Sprintf("friends: %d", len(friends))),
	}
	if len(friends) == 0 {
		lines = append(lines, s.empty.Render("No friends yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, f := range friends {
		parts := []string{
			s.name.Render(f.Label),
			" ",
			s.status(f.Status).Render(f.StatusText),
		}
		if f.HasPresence {
			parts = append(parts, " ", s.presence.Render("("+f.PresenceText+")"))
		}
		if f.Label != string(f.AccountID) {
			parts = append(parts, " ", s.header.Render(string(f.AccountID)))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCurrentLobby(lobby domain.LobbySummary, inLobby bool, s styles) string {
	lines := []string{s.title.Render("Current lobby")}
	if !inLobby {
		lines = append(lines, s.empty.Render("Not in a lobby."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines,
		lobbyLine(lobby, s),
		s.detail.Render("owner: "+string(lobby.OwnerID)),
		s.detail.Render(fmt.Sprintf("invites: %s  presence: %s", onOff(lobby.AllowInvites), onOff(lobby.PresenceEnabled))),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderResults(results []domain.LobbySummary, s styles) string {
	lines := []string{
		s.title.Render("Lobbies"),
		s.header.Render(fmt.Sprintf("results: %d", len(results))),
	}
	if len(results) == 0 {
		lines = append(lines, s.empty.Render("No lobbies found."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, lobby := range results {
		lines = append(lines, lobbyLine(lobby, s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func lobbyLine(lobby domain.LobbySummary, s styles) string {
	name := lobby.Name
	if name == "" {
		name = "(unnamed)"
	}

	occupancy := fmt.Sprintf("%d/%d", lobby.MemberCount, lobby.MaxMembers)
	occupancyStyle := s.detail
	if lobby.MaxMembers > 0 && lobby.MemberCount >= lobby.MaxMembers {
		occupancyStyle = s.full
	}

	parts := []string{
		s.name.Render(name),
		" ",
		s.header.Render("[" + string(lobby.LobbyID) + "]"),
		" ",
		occupancyStyle.Render(occupancy),
	}
	if meta := lobbyMeta(lobby); meta != "" {
		parts = append(parts, " ", s.detail.Render(meta))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func lobbyMeta(lobby domain.LobbySummary) string {
	var meta []string
	if lobby.Mode != "" {
		meta = append(meta, "mode: "+lobby.Mode)
	}
	if lobby.Map != "" {
		meta = append(meta, "map: "+lobby.Map)
	}
	return strings.Join(meta, "  ")
}

func accountTitle(name string, id domain.AccountID) string {
	if name == "" {
		return string(id)
	}
	return fmt.Sprintf("%s (%s)", name, id)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
