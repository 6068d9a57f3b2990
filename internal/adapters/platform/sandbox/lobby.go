package sandbox

import (
	"maps"
	"slices"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
)

type lobby struct {
	id              domain.LobbyID
	owner           domain.SessionID
	members         []domain.SessionID
	maxMembers      int
	permission      domain.LobbyPermission
	presenceEnabled bool
	allowInvites    bool
	attributes      map[string]string
}

func (l *lobby) hasMember(id domain.SessionID) bool {
	return slices.Contains(l.members, id)
}

func (l *lobby) info() ports.LobbyInfo {
	return ports.LobbyInfo{
		LobbyID:         l.id,
		OwnerID:         l.owner,
		MemberCount:     len(l.members),
		MaxMembers:      l.maxMembers,
		Permission:      l.permission,
		PresenceEnabled: l.presenceEnabled,
		AllowInvites:    l.allowInvites,
		BucketID:        l.attributes[domain.BucketAttributeKey],
	}
}

type invite struct {
	id      domain.InviteID
	lobbyID domain.LobbyID
	from    domain.SessionID
	to      domain.SessionID
}

type lobbyClient struct{ p *Platform }

func (c lobbyClient) CreateLobby(req ports.CreateLobbyRequest, cb func(ports.LobbyResult)) {
	p := c.p
	p.completeLobby(OpCreateLobby, "", cb, func() (domain.LobbyID, domain.Result) {
		if !p.connected[req.LocalUserID] {
			return "", domain.ResultInvalidUser
		}
		if req.MaxMembers <= 0 || req.MaxMembers > maxLobbyMembers || req.BucketID == "" {
			return "", domain.ResultInvalidParameters
		}

		l := &lobby{
			id:              domain.LobbyID("lobby-" + p.newID()),
			owner:           req.LocalUserID,
			members:         []domain.SessionID{req.LocalUserID},
			maxMembers:      req.MaxMembers,
			permission:      req.Permission,
			presenceEnabled: req.PresenceEnabled,
			allowInvites:    req.AllowInvites,
			attributes:      map[string]string{domain.BucketAttributeKey: req.BucketID},
		}
		p.lobbies[l.id] = l
		return l.id, domain.ResultSuccess
	})
}

func (c lobbyClient) DestroyLobby(local domain.SessionID, lobbyID domain.LobbyID, cb func(ports.LobbyResult)) {
	p := c.p
	p.completeLobby(OpDestroyLobby, lobbyID, cb, func() (domain.LobbyID, domain.Result) {
		l, ok := p.lobbies[lobbyID]
		if !ok {
			return lobbyID, domain.ResultNotFound
		}
		if l.owner != local {
			return lobbyID, domain.ResultNotOwner
		}

		delete(p.lobbies, lobbyID)
		for _, member := range l.members {
			if member == local {
				continue
			}
			push(p, &p.memberUpdates, ports.LobbyMemberUpdate{LobbyID: lobbyID, MemberID: member, Change: domain.MemberClosed})
		}
		return lobbyID, domain.ResultSuccess
	})
}

func (c lobbyClient) JoinLobbyByID(local domain.SessionID, lobbyID domain.LobbyID, _ bool, cb func(ports.LobbyResult)) {
	p := c.p
	p.completeLobby(OpJoinLobby, lobbyID, cb, func() (domain.LobbyID, domain.Result) {
		return lobbyID, p.join(local, lobbyID)
	})
}

func (c lobbyClient) JoinLobby(local domain.SessionID, details ports.LobbyDetails, _ bool, cb func(ports.LobbyResult)) {
	p := c.p
	var lobbyID domain.LobbyID
	if details != nil {
		if info, result := details.Info(); result.OK() {
			lobbyID = info.LobbyID
		}
	}
	p.completeLobby(OpJoinLobby, lobbyID, cb, func() (domain.LobbyID, domain.Result) {
		if lobbyID == "" {
			return "", domain.ResultInvalidParameters
		}
		return lobbyID, p.join(local, lobbyID)
	})
}

func (p *Platform) join(local domain.SessionID, lobbyID domain.LobbyID) domain.Result {
	if !p.connected[local] {
		return domain.ResultInvalidUser
	}
	l, ok := p.lobbies[lobbyID]
	if !ok {
		return domain.ResultNotFound
	}
	if l.hasMember(local) {
		return domain.ResultSuccess
	}
	if len(l.members) >= l.maxMembers {
		return domain.ResultLimitExceeded
	}

	l.members = append(l.members, local)
	for id, inv := range p.invites {
		if inv.lobbyID == lobbyID && inv.to == local {
			delete(p.invites, id)
		}
	}
	push(p, &p.memberUpdates, ports.LobbyMemberUpdate{LobbyID: lobbyID, MemberID: local, Change: domain.MemberJoined})
	return domain.ResultSuccess
}

func (c lobbyClient) LeaveLobby(local domain.SessionID, lobbyID domain.LobbyID, cb func(ports.LobbyResult)) {
	p := c.p
	p.completeLobby(OpLeaveLobby, lobbyID, cb, func() (domain.LobbyID, domain.Result) {
		l, ok := p.lobbies[lobbyID]
		if !ok || !l.hasMember(local) {
			return lobbyID, domain.ResultNotFound
		}

		l.members = slices.DeleteFunc(l.members, func(id domain.SessionID) bool { return id == local })
		if len(l.members) == 0 {
			delete(p.lobbies, lobbyID)
			return lobbyID, domain.ResultSuccess
		}

		push(p, &p.memberUpdates, ports.LobbyMemberUpdate{LobbyID: lobbyID, MemberID: local, Change: domain.MemberLeft})
		if l.owner == local {
			l.owner = l.members[0]
			push(p, &p.memberUpdates, ports.LobbyMemberUpdate{LobbyID: lobbyID, MemberID: l.owner, Change: domain.MemberPromoted})
		}
		return lobbyID, domain.ResultSuccess
	})
}

func (c lobbyClient) SendInvite(local domain.SessionID, lobbyID domain.LobbyID, target domain.SessionID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpSendLobbyInvite, cb, func() domain.Result {
		l, ok := p.lobbies[lobbyID]
		if !ok || !l.hasMember(local) {
			return domain.ResultNotFound
		}
		if !l.allowInvites {
			return domain.ResultInvalidParameters
		}
		if _, ok := p.sessions[target]; !ok {
			return domain.ResultInvalidUser
		}

		p.raiseInvite(local, lobbyID, target)
		return domain.ResultSuccess
	})
}

func (p *Platform) raiseInvite(from domain.SessionID, lobbyID domain.LobbyID, to domain.SessionID) domain.InviteID {
	inv := &invite{
		id:      domain.InviteID("invite-" + p.newID()),
		lobbyID: lobbyID,
		from:    from,
		to:      to,
	}
	p.invites[inv.id] = inv
	push(p, &p.lobbyInvites, ports.LobbyInviteReceived{InviteID: inv.id, LocalID: to, SenderID: from})
	return inv.id
}

func (c lobbyClient) RejectInvite(local domain.SessionID, inviteID domain.InviteID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpRejectLobbyInvite, cb, func() domain.Result {
		inv, ok := p.invites[inviteID]
		if !ok || inv.to != local {
			return domain.ResultNotFound
		}
		delete(p.invites, inviteID)
		return domain.ResultSuccess
	})
}

func (c lobbyClient) CopyLobbyDetails(local domain.SessionID, lobbyID domain.LobbyID) (ports.LobbyDetails, domain.Result) {
	p := c.p
	if result, injected := p.fault(OpCopyLobbyDetails); injected {
		return nil, result
	}
	l, ok := p.lobbies[lobbyID]
	if !ok || !l.hasMember(local) {
		return nil, domain.ResultNotFound
	}
	return p.newDetails(l), domain.ResultSuccess
}

func (c lobbyClient) CopyLobbyDetailsByInviteID(inviteID domain.InviteID) (ports.LobbyDetails, domain.Result) {
	p := c.p
	inv, ok := p.invites[inviteID]
	if !ok {
		return nil, domain.ResultNotFound
	}
	l, ok := p.lobbies[inv.lobbyID]
	if !ok {
		return nil, domain.ResultNotFound
	}
	return p.newDetails(l), domain.ResultSuccess
}

func (c lobbyClient) CreateLobbySearch(maxResults int) (ports.LobbySearch, domain.Result) {
	if maxResults <= 0 || maxResults > maxSearchResults {
		return nil, domain.ResultInvalidParameters
	}
	c.p.openHandle()
	return &lobbySearch{p: c.p, maxResults: maxResults}, domain.ResultSuccess
}

func (c lobbyClient) UpdateLobbyModification(local domain.SessionID, lobbyID domain.LobbyID) (ports.LobbyModification, domain.Result) {
	if _, ok := c.p.lobbies[lobbyID]; !ok {
		return nil, domain.ResultNotFound
	}
	c.p.openHandle()
	return &lobbyModification{p: c.p, local: local, lobbyID: lobbyID}, domain.ResultSuccess
}

// UpdateLobby copies the modification when issued so the caller may release
// the handle before the commit completes.
func (c lobbyClient) UpdateLobby(mod ports.LobbyModification, cb func(ports.LobbyResult)) {
	p := c.p
	m, ok := mod.(*lobbyModification)
	if !ok || m == nil || m.released {
		p.completeLobby(OpUpdateLobby, "", cb, func() (domain.LobbyID, domain.Result) {
			return "", domain.ResultInvalidParameters
		})
		return
	}

	local, lobbyID, maxMembers := m.local, m.lobbyID, m.maxMembers
	attrs := slices.Clone(m.attributes)
	p.completeLobby(OpUpdateLobby, lobbyID, cb, func() (domain.LobbyID, domain.Result) {
		l, ok := p.lobbies[lobbyID]
		if !ok {
			return lobbyID, domain.ResultNotFound
		}
		if l.owner != local {
			return lobbyID, domain.ResultNotOwner
		}
		if maxMembers > 0 && maxMembers < len(l.members) {
			return lobbyID, domain.ResultInvalidParameters
		}

		for _, attr := range attrs {
			l.attributes[attr.Key] = attr.Value
		}
		if maxMembers > 0 {
			l.maxMembers = maxMembers
		}
		push(p, &p.lobbyUpdates, ports.LobbyUpdateReceived{LobbyID: lobbyID})
		return lobbyID, domain.ResultSuccess
	})
}

func (c lobbyClient) AddNotifyLobbyInviteReceived(fn func(ports.LobbyInviteReceived)) ports.NotificationID {
	return addNotify(c.p, &c.p.lobbyInvites, fn)
}

func (c lobbyClient) RemoveNotifyLobbyInviteReceived(id ports.NotificationID) {
	c.p.lobbyInvites.remove(id)
}

func (c lobbyClient) AddNotifyLobbyUpdateReceived(fn func(ports.LobbyUpdateReceived)) ports.NotificationID {
	return addNotify(c.p, &c.p.lobbyUpdates, fn)
}

func (c lobbyClient) RemoveNotifyLobbyUpdateReceived(id ports.NotificationID) {
	c.p.lobbyUpdates.remove(id)
}

func (c lobbyClient) AddNotifyLobbyMemberUpdateReceived(fn func(ports.LobbyMemberUpdate)) ports.NotificationID {
	return addNotify(c.p, &c.p.memberUpdates, fn)
}

func (c lobbyClient) RemoveNotifyLobbyMemberUpdateReceived(id ports.NotificationID) {
	c.p.memberUpdates.remove(id)
}

func (p *Platform) completeLobby(op Op, lobbyID domain.LobbyID, cb func(ports.LobbyResult), process func() (domain.LobbyID, domain.Result)) {
	p.enqueue(func() {
		out := ports.LobbyResult{LobbyID: lobbyID}
		if result, injected := p.fault(op); injected {
			out.Result = result
		} else {
			out.LobbyID, out.Result = process()
		}
		p.logger.Debug().
			Str("op", string(op)).
			Str("lobby_id", string(out.LobbyID)).
			Stringer("result", out.Result).
			Msg("completed")
		if cb != nil {
			cb(out)
		}
	})
}

func (p *Platform) newDetails(l *lobby) *lobbyDetails {
	p.openHandle()
	return &lobbyDetails{p: p, info: l.info(), attributes: maps.Clone(l.attributes)}
}

type lobbyDetails struct {
	p          *Platform
	info       ports.LobbyInfo
	attributes map[string]string
	released   bool
}

func (d *lobbyDetails) Info() (ports.LobbyInfo, domain.Result) {
	if d.released {
		return ports.LobbyInfo{}, domain.ResultInvalidParameters
	}
	return d.info, domain.ResultSuccess
}

func (d *lobbyDetails) Attribute(key string) (string, bool) {
	if d.released {
		return "", false
	}
	value, ok := d.attributes[key]
	return value, ok
}

func (d *lobbyDetails) Release() {
	d.p.releaseHandle(HandleLobbyDetails, &d.released)
}

type lobbySearch struct {
	p          *Platform
	maxResults int
	filters    []domain.SearchFilter
	results    []*lobby
	released   bool
}

func (s *lobbySearch) SetMaxResults(n int) domain.Result {
	if s.released || n <= 0 || n > maxSearchResults {
		return domain.ResultInvalidParameters
	}
	s.maxResults = n
	return domain.ResultSuccess
}

func (s *lobbySearch) SetParameter(filter domain.SearchFilter) domain.Result {
	if s.released || filter.Key == "" {
		return domain.ResultInvalidParameters
	}
	s.filters = append(s.filters, filter)
	return domain.ResultSuccess
}

func (s *lobbySearch) Find(local domain.SessionID, cb func(domain.Result)) {
	p := s.p
	p.complete(OpFindLobbies, cb, func() domain.Result {
		if s.released {
			return domain.ResultInvalidParameters
		}
		if !p.connected[local] {
			return domain.ResultInvalidUser
		}

		ids := slices.Collect(maps.Keys(p.lobbies))
		slices.Sort(ids)

		s.results = s.results[:0]
		for _, id := range ids {
			l := p.lobbies[id]
			if l.permission == domain.LobbyInviteOnly || !matches(l, s.filters) {
				continue
			}
			s.results = append(s.results, l)
			if len(s.results) == s.maxResults {
				break
			}
		}
		return domain.ResultSuccess
	})
}

func matches(l *lobby, filters []domain.SearchFilter) bool {
	for _, filter := range filters {
		stored, present := l.attributes[filter.Key]
		if !filter.Op.Match(stored, present, filter.Value) {
			return false
		}
	}
	return true
}

func (s *lobbySearch) ResultCount() int {
	if s.released {
		return 0
	}
	return len(s.results)
}

func (s *lobbySearch) CopyResultAt(index int) (ports.LobbyDetails, domain.Result) {
	if s.released || index < 0 || index >= len(s.results) {
		return nil, domain.ResultInvalidParameters
	}
	return s.p.newDetails(s.results[index]), domain.ResultSuccess
}

func (s *lobbySearch) Release() {
	s.p.releaseHandle(HandleLobbySearch, &s.released)
}

type lobbyModification struct {
	p          *Platform
	local      domain.SessionID
	lobbyID    domain.LobbyID
	attributes []domain.LobbyAttribute
	maxMembers int
	released   bool
}

func (m *lobbyModification) AddAttribute(attr domain.LobbyAttribute) domain.Result {
	if m.released || attr.Key == "" {
		return domain.ResultInvalidParameters
	}
	m.attributes = append(m.attributes, attr)
	return domain.ResultSuccess
}

func (m *lobbyModification) SetMaxMembers(n int) domain.Result {
	if m.released || n <= 0 || n > maxLobbyMembers {
		return domain.ResultInvalidParameters
	}
	m.maxMembers = n
	return domain.ResultSuccess
}

func (m *lobbyModification) Release() {
	m.p.releaseHandle(HandleLobbyModification, &m.released)
}
