package sandbox

import (
	"sort"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
)

type friendsClient struct{ p *Platform }

// QueryFriends caches every account the local user has a relationship with,
// ordered by id. NotFriends relationships are not part of the roster.
func (c friendsClient) QueryFriends(local domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpQueryFriends, cb, func() domain.Result {
		acc, ok := p.accounts[local]
		if !ok || !p.authLoggedIn[local] {
			return domain.ResultInvalidUser
		}

		ids := make([]domain.AccountID, 0, len(acc.friends))
		for id, status := range acc.friends {
			if status == domain.FriendStatusNotFriends {
				continue
			}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		p.friendsCache[local] = ids
		return domain.ResultSuccess
	})
}

func (c friendsClient) FriendsCount(local domain.AccountID) int {
	return len(c.p.friendsCache[local])
}

func (c friendsClient) FriendAtIndex(local domain.AccountID, index int) (domain.AccountID, bool) {
	ids := c.p.friendsCache[local]
	if index < 0 || index >= len(ids) {
		return "", false
	}
	return ids[index], true
}

func (c friendsClient) Status(local, target domain.AccountID) domain.FriendStatus {
	acc, ok := c.p.accounts[local]
	if !ok {
		return domain.FriendStatusUnknown
	}
	status, ok := acc.friends[target]
	if !ok {
		return domain.FriendStatusNotFriends
	}
	return status
}

func (c friendsClient) SendInvite(local, target domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpSendFriendInvite, cb, func() domain.Result {
		if result := p.checkPair(local, target); !result.OK() {
			return result
		}
		switch c.Status(local, target) {
		case domain.FriendStatusFriends, domain.FriendStatusInviteSent:
			return domain.ResultAlreadyPending
		case domain.FriendStatusBlocked:
			return domain.ResultInvalidParameters
		}
		p.setRelationship(local, target, domain.FriendStatusInviteSent, domain.FriendStatusInviteReceived)
		return domain.ResultSuccess
	})
}

func (c friendsClient) AcceptInvite(local, target domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpAcceptFriendInvite, cb, func() domain.Result {
		if result := p.checkPair(local, target); !result.OK() {
			return result
		}
		if c.Status(local, target) != domain.FriendStatusInviteReceived {
			return domain.ResultNotFound
		}
		p.setRelationship(local, target, domain.FriendStatusFriends, domain.FriendStatusFriends)
		return domain.ResultSuccess
	})
}

func (c friendsClient) RejectInvite(local, target domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpRejectFriendInvite, cb, func() domain.Result {
		if result := p.checkPair(local, target); !result.OK() {
			return result
		}
		if c.Status(local, target) != domain.FriendStatusInviteReceived {
			return domain.ResultNotFound
		}
		p.setRelationship(local, target, domain.FriendStatusNotFriends, domain.FriendStatusNotFriends)
		return domain.ResultSuccess
	})
}

func (c friendsClient) AddNotifyFriendsUpdate(fn func(ports.FriendsUpdate)) ports.NotificationID {
	return addNotify(c.p, &c.p.friendsUpdates, fn)
}

func (c friendsClient) RemoveNotifyFriendsUpdate(id ports.NotificationID) {
	c.p.friendsUpdates.remove(id)
}

func (p *Platform) checkPair(local, target domain.AccountID) domain.Result {
	if _, ok := p.accounts[local]; !ok || !p.authLoggedIn[local] {
		return domain.ResultInvalidUser
	}
	if _, ok := p.accounts[target]; !ok || local == target {
		return domain.ResultNotFound
	}
	return domain.ResultSuccess
}

// setRelationship updates both sides and pushes a delta to each side.
func (p *Platform) setRelationship(local, target domain.AccountID, localStatus, targetStatus domain.FriendStatus) {
	p.setFriendStatus(local, target, localStatus)
	p.setFriendStatus(target, local, targetStatus)
}

func (p *Platform) setFriendStatus(local, target domain.AccountID, status domain.FriendStatus) {
	acc, ok := p.accounts[local]
	if !ok {
		return
	}

	previous, known := acc.friends[target]
	if !known {
		previous = domain.FriendStatusNotFriends
	}
	if status == domain.FriendStatusNotFriends {
		delete(acc.friends, target)
	} else {
		acc.friends[target] = status
	}

	push(p, &p.friendsUpdates, ports.FriendsUpdate{
		LocalAccountID:  local,
		TargetAccountID: target,
		PreviousStatus:  previous,
		CurrentStatus:   status,
	})
}

type presenceClient struct{ p *Platform }

func (c presenceClient) QueryPresence(local, target domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpQueryPresence, cb, func() domain.Result {
		if result := p.checkPair(local, target); !result.OK() {
			return result
		}
		p.presenceCache[target] = true
		return domain.ResultSuccess
	})
}

func (c presenceClient) CopyPresence(local, target domain.AccountID) (domain.PresenceStatus, domain.Result) {
	p := c.p
	if !p.authLoggedIn[local] {
		return domain.PresenceOffline, domain.ResultInvalidUser
	}
	acc, ok := p.accounts[target]
	if !ok || !p.presenceCache[target] {
		return domain.PresenceOffline, domain.ResultNotFound
	}
	return acc.presence, domain.ResultSuccess
}

func (c presenceClient) AddNotifyOnPresenceChanged(fn func(ports.PresenceChanged)) ports.NotificationID {
	return addNotify(c.p, &c.p.presenceChanges, fn)
}

func (c presenceClient) RemoveNotifyOnPresenceChanged(id ports.NotificationID) {
	c.p.presenceChanges.remove(id)
}
