package application

import (
	"slices"
	"time"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/rs/zerolog"
)

const DefaultMappingInterval = 60 * time.Second

// FriendsOrchestrator keeps an enriched roster for the local account. A full
// query replaces the roster, then name, presence and cross-id lookups fill
// in optional fields one completion at a time. Every change republishes the
// sorted projection.
type FriendsOrchestrator struct {
	pub             Publisher
	clock           ports.Clock
	logger          zerolog.Logger
	mappingInterval time.Duration

	platform  ports.Platform
	accountID domain.AccountID
	sessionID domain.SessionID

	entries          map[domain.AccountID]*domain.FriendEntry
	initialQueryDone bool
	rosterInFlight   bool
	lastMapping      time.Time

	subs       *subscriptionSet
	generation uint64
	closed     bool
}

func NewFriendsOrchestrator(pub Publisher, clock ports.Clock, mappingInterval time.Duration, logger zerolog.Logger) *FriendsOrchestrator {
	if pub == nil {
		pub = nopPublisher{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if mappingInterval <= 0 {
		mappingInterval = DefaultMappingInterval
	}

	return &FriendsOrchestrator{
		pub:             pub,
		clock:           clock,
		logger:          logger.With().Str("component", "friends").Logger(),
		mappingInterval: mappingInterval,
		entries:         map[domain.AccountID]*domain.FriendEntry{},
		subs:            &subscriptionSet{},
	}
}

// Initialize resets all roster state and registers for friend and presence
// notifications on platform.
func (f *FriendsOrchestrator) Initialize(platform ports.Platform, accountID domain.AccountID, sessionID domain.SessionID) error {
	f.Shutdown()

	if platform == nil {
		return domain.ErrPlatformUnavailable
	}
	if accountID.IsZero() {
		return domain.ErrNotAuthenticated
	}

	friends := platform.Friends()
	presence := platform.Presence()
	subs, err := registerAll(
		func(s *subscriptionSet) error {
			return s.add("friends update", friends.AddNotifyFriendsUpdate(f.onFriendsUpdate), friends.RemoveNotifyFriendsUpdate)
		},
		func(s *subscriptionSet) error {
			return s.add("presence changed", presence.AddNotifyOnPresenceChanged(f.onPresenceChanged), presence.RemoveNotifyOnPresenceChanged)
		},
	)
	if err != nil {
		return err
	}

	f.platform = platform
	f.accountID = accountID
	f.sessionID = sessionID
	f.subs = subs
	f.closed = false
	f.logger.Debug().Str("account_id", string(accountID)).Msg("friends initialized")
	return nil
}

// Shutdown unregisters notifications and drops the roster. Completions still
// in flight are ignored when they arrive.
func (f *FriendsOrchestrator) Shutdown() {
	f.subs.close()
	f.generation++
	f.closed = true
	f.platform = nil
	f.accountID = ""
	f.sessionID = ""
	f.entries = map[domain.AccountID]*domain.FriendEntry{}
	f.initialQueryDone = false
	f.rosterInFlight = false
	f.lastMapping = time.Time{}
}

func (f *FriendsOrchestrator) Tick() {}

func (f *FriendsOrchestrator) ready() bool {
	return !f.closed && f.platform != nil && !f.accountID.IsZero()
}

func (f *FriendsOrchestrator) stale(generation uint64) bool {
	return f.closed || generation != f.generation
}

// QueryFriends fetches the full roster and then runs every enrichment pass.
func (f *FriendsOrchestrator) QueryFriends(done *Completion) error {
	if !f.ready() {
		done.finish(domain.ErrNotAuthenticated)
		return domain.ErrNotAuthenticated
	}

	f.rosterInFlight = true
	generation := f.generation
	f.platform.Friends().QueryFriends(f.accountID, func(result domain.Result) {
		f.onQueryFriends(generation, result, done)
	})
	return nil
}

func (f *FriendsOrchestrator) onQueryFriends(generation uint64, result domain.Result, done *Completion) {
	if f.stale(generation) {
		done.finish(domain.ErrNotAuthenticated)
		return
	}
	f.rosterInFlight = false

	if !result.OK() {
		err := domain.NewOperationError("query friends", result)
		f.logger.Warn().Stringer("result", result).Msg("roster query failed")
		done.finish(err)
		return
	}

	client := f.platform.Friends()
	count := client.FriendsCount(f.accountID)
	entries := make(map[domain.AccountID]*domain.FriendEntry, count)
	for i := 0; i < count; i++ {
		id, ok := client.FriendAtIndex(f.accountID, i)
		if !ok || id.IsZero() {
			continue
		}
		entry := domain.FriendEntry{AccountID: id}
		if previous, ok := f.entries[id]; ok {
			entry = carryEnrichment(*previous)
		}
		entry.Status = client.Status(f.accountID, id)
		entries[id] = &entry
	}

	f.entries = entries
	f.initialQueryDone = true
	f.logger.Debug().Int("count", len(entries)).Msg("roster replaced")
	f.emit()

	f.lookupNames()
	f.lookupPresence()
	f.lookupMappings()
	done.finish(nil)
}

func (f *FriendsOrchestrator) lookupNames() {
	for _, id := range f.sortedIDs() {
		if !f.entries[id].HasName {
			f.queryName(id)
		}
	}
}

func (f *FriendsOrchestrator) queryName(target domain.AccountID) {
	local := f.accountID
	generation := f.generation
	userInfo := f.platform.UserInfo()
	userInfo.QueryUserInfo(local, target, func(result domain.Result) {
		if f.stale(generation) {
			return
		}
		if !result.OK() {
			f.logger.Debug().Str("target", string(target)).Stringer("result", result).Msg("name lookup failed")
			return
		}
		entry, ok := f.entries[target]
		if !ok {
			return
		}
		info, result := userInfo.CopyUserInfo(local, target)
		if !result.OK() {
			return
		}

		entry.DisplayName = info.DisplayName
		entry.HasName = true
		f.emit()
	})
}

func (f *FriendsOrchestrator) lookupPresence() {
	for _, id := range f.sortedIDs() {
		if f.entries[id].Status == domain.FriendStatusFriends {
			f.queryPresence(id)
		}
	}
}

func (f *FriendsOrchestrator) queryPresence(target domain.AccountID) {
	local := f.accountID
	generation := f.generation
	presence := f.platform.Presence()
	presence.QueryPresence(local, target, func(result domain.Result) {
		if f.stale(generation) {
			return
		}
		if !result.OK() {
			f.logger.Debug().Str("target", string(target)).Stringer("result", result).Msg("presence lookup failed")
			return
		}
		entry, ok := f.entries[target]
		if !ok {
			return
		}
		status, result := presence.CopyPresence(local, target)
		if !result.OK() {
			return
		}

		entry.Presence = status
		entry.HasPresence = true
		f.emit()
	})
}

// lookupMappings resolves session ids for unmapped entries in one batch,
// at most once per mapping interval.
func (f *FriendsOrchestrator) lookupMappings() {
	if f.sessionID.IsZero() {
		return
	}

	now := f.clock.Now()
	if !f.lastMapping.IsZero() && now.Sub(f.lastMapping) < f.mappingInterval {
		f.logger.Debug().Dur("since_last", now.Sub(f.lastMapping)).Msg("mapping lookup throttled")
		return
	}

	var batch []domain.AccountID
	for _, id := range f.sortedIDs() {
		entry := f.entries[id]
		if entry.CrossPlatformID.IsZero() && !entry.MappingRequested {
			entry.MappingRequested = true
			batch = append(batch, id)
		}
	}
	if len(batch) == 0 {
		return
	}

	f.lastMapping = now
	local := f.sessionID
	generation := f.generation
	connect := f.platform.Connect()
	connect.QueryExternalAccountMappings(local, batch, func(result domain.Result) {
		if f.stale(generation) {
			return
		}

		changed := false
		for _, id := range batch {
			entry, ok := f.entries[id]
			if !ok {
				continue
			}
			entry.MappingRequested = false
			if !result.OK() {
				continue
			}
			if mapped, ok := connect.ExternalAccountMapping(local, id); ok {
				entry.CrossPlatformID = mapped
				changed = true
			}
		}

		if !result.OK() {
			f.logger.Debug().Stringer("result", result).Int("batch", len(batch)).Msg("mapping lookup failed")
			return
		}
		if changed {
			f.emit()
		}
	})
}

type inviteCall func(client ports.FriendsClient, local, target domain.AccountID, cb func(domain.Result))

func (f *FriendsOrchestrator) SendInvite(target domain.AccountID, done *Completion) error {
	return f.forward("send friend invite", target, ports.FriendsClient.SendInvite, done)
}

func (f *FriendsOrchestrator) AcceptInvite(target domain.AccountID, done *Completion) error {
	return f.forward("accept friend invite", target, ports.FriendsClient.AcceptInvite, done)
}

func (f *FriendsOrchestrator) RejectInvite(target domain.AccountID, done *Completion) error {
	return f.forward("reject friend invite", target, ports.FriendsClient.RejectInvite, done)
}

// forward issues an invite operation and re-queries the roster on success.
func (f *FriendsOrchestrator) forward(op string, target domain.AccountID, call inviteCall, done *Completion) error {
	if !f.ready() {
		done.finish(domain.ErrNotAuthenticated)
		return domain.ErrNotAuthenticated
	}
	if target.IsZero() {
		done.finish(domain.ErrInvalidAccountID)
		return domain.ErrInvalidAccountID
	}

	generation := f.generation
	call(f.platform.Friends(), f.accountID, target, func(result domain.Result) {
		if f.stale(generation) {
			done.finish(domain.ErrNotAuthenticated)
			return
		}
		if !result.OK() {
			err := domain.NewOperationError(op, result)
			f.logger.Warn().Str("target", string(target)).Stringer("result", result).Msg(op + " failed")
			done.finish(err)
			return
		}

		f.logger.Info().Str("target", string(target)).Msg(op)
		if err := f.QueryFriends(nil); err != nil {
			f.logger.Warn().Err(err).Msg("roster refresh after " + op)
		}
		done.finish(nil)
	})
	return nil
}

func (f *FriendsOrchestrator) onFriendsUpdate(update ports.FriendsUpdate) {
	if !f.ready() || update.LocalAccountID != f.accountID {
		return
	}

	target := update.TargetAccountID
	entry, known := f.entries[target]
	switch {
	case update.CurrentStatus == domain.FriendStatusNotFriends:
		if known {
			delete(f.entries, target)
			f.emit()
		}
	case !known:
		// The delta can arrive before the roster knows the entry.
		if f.initialQueryDone && !f.rosterInFlight {
			f.logger.Debug().Str("target", string(target)).Msg("delta for unknown friend; re-querying roster")
			if err := f.QueryFriends(nil); err != nil {
				f.logger.Warn().Err(err).Msg("roster re-query")
			}
		}
	default:
		previous := entry.Status
		if previous == update.CurrentStatus {
			return
		}
		entry.Status = update.CurrentStatus
		f.emit()
		if entry.Status == domain.FriendStatusFriends && previous != domain.FriendStatusFriends {
			f.queryPresence(target)
		}
	}
}

func (f *FriendsOrchestrator) onPresenceChanged(change ports.PresenceChanged) {
	if !f.ready() || change.LocalAccountID != f.accountID {
		return
	}
	entry, ok := f.entries[change.PresenceUserID]
	if !ok || entry.Status != domain.FriendStatusFriends {
		return
	}
	f.queryPresence(change.PresenceUserID)
}

// Friends returns the sorted projection of the current roster.
func (f *FriendsOrchestrator) Friends() []domain.FriendView {
	entries := make([]domain.FriendEntry, 0, len(f.entries))
	for _, entry := range f.entries {
		entries = append(entries, *entry)
	}
	return domain.ProjectFriends(entries)
}

// Entry returns a copy of the raw roster entry for id.
func (f *FriendsOrchestrator) Entry(id domain.AccountID) (domain.FriendEntry, bool) {
	entry, ok := f.entries[id]
	if !ok {
		return domain.FriendEntry{}, false
	}
	return *entry, true
}

func (f *FriendsOrchestrator) InitialQueryDone() bool { return f.initialQueryDone }

func (f *FriendsOrchestrator) subscriptionCount() int { return f.subs.len() }

func (f *FriendsOrchestrator) emit() {
	f.pub.Publish(event.NewFriendsUpdated(f.Friends()))
}

// carryEnrichment keeps the looked-up fields of an entry across a roster
// replacement, including a mapping mark whose batch is still in flight.
func carryEnrichment(previous domain.FriendEntry) domain.FriendEntry {
	return domain.FriendEntry{
		AccountID:        previous.AccountID,
		CrossPlatformID:  previous.CrossPlatformID,
		DisplayName:      previous.DisplayName,
		Presence:         previous.Presence,
		HasName:          previous.HasName,
		HasPresence:      previous.HasPresence,
		MappingRequested: previous.MappingRequested,
	}
}

func (f *FriendsOrchestrator) sortedIDs() []domain.AccountID {
	ids := make([]domain.AccountID, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
