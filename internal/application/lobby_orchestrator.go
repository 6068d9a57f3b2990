package application

import (
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/rs/zerolog"
)

type LobbyConfig struct {
	Bucket           string
	MaxMembers       int
	SearchMaxResults int
}

func DefaultLobbyConfig() LobbyConfig {
	return LobbyConfig{
		Bucket:           domain.DefaultBucket,
		MaxMembers:       domain.DefaultLobbyMaxMembers,
		SearchMaxResults: domain.DefaultSearchMaxResults,
	}
}

// LobbyOrchestrator tracks at most one current lobby plus the latest search
// snapshot. It owns the current lobby's details handle.
type LobbyOrchestrator struct {
	pub    Publisher
	cfg    LobbyConfig
	logger zerolog.Logger

	platform  ports.Platform
	sessionID domain.SessionID

	currentID domain.LobbyID
	created   bool
	details   ports.LobbyDetails
	current   domain.LobbySummary
	results   []domain.LobbySummary

	// pendingOp names the create or join in flight. At most one is issued
	// at a time.
	pendingOp string

	subs       *subscriptionSet
	generation uint64
	closed     bool
}

func NewLobbyOrchestrator(pub Publisher, cfg LobbyConfig, logger zerolog.Logger) *LobbyOrchestrator {
	if pub == nil {
		pub = nopPublisher{}
	}
	defaults := DefaultLobbyConfig()
	if cfg.Bucket == "" {
		cfg.Bucket = defaults.Bucket
	}
	if cfg.MaxMembers <= 0 {
		cfg.MaxMembers = defaults.MaxMembers
	}
	if cfg.SearchMaxResults <= 0 {
		cfg.SearchMaxResults = defaults.SearchMaxResults
	}

	return &LobbyOrchestrator{
		pub:    pub,
		cfg:    cfg,
		logger: logger.With().Str("component", "lobby").Logger(),
		subs:   &subscriptionSet{},
	}
}

func (l *LobbyOrchestrator) Initialize(platform ports.Platform, sessionID domain.SessionID) error {
	l.Shutdown()

	if platform == nil {
		return domain.ErrPlatformUnavailable
	}
	if sessionID.IsZero() {
		return domain.ErrNotConnected
	}

	lobby := platform.Lobby()
	subs, err := registerAll(
		func(s *subscriptionSet) error {
			return s.add("lobby invite", lobby.AddNotifyLobbyInviteReceived(l.onInviteReceived), lobby.RemoveNotifyLobbyInviteReceived)
		},
		func(s *subscriptionSet) error {
			return s.add("lobby update", lobby.AddNotifyLobbyUpdateReceived(l.onLobbyUpdate), lobby.RemoveNotifyLobbyUpdateReceived)
		},
		func(s *subscriptionSet) error {
			return s.add("lobby member update", lobby.AddNotifyLobbyMemberUpdateReceived(l.onMemberUpdate), lobby.RemoveNotifyLobbyMemberUpdateReceived)
		},
	)
	if err != nil {
		return err
	}

	l.platform = platform
	l.sessionID = sessionID
	l.subs = subs
	l.closed = false
	l.logger.Debug().Str("session_id", string(sessionID)).Msg("lobby initialized")
	return nil
}

// Shutdown unregisters notifications, releases the current lobby's details
// and forgets the lobby without leaving it on the platform.
func (l *LobbyOrchestrator) Shutdown() {
	l.subs.close()
	l.generation++
	l.closed = true
	l.pendingOp = ""
	l.clearCurrent()
	l.results = nil
	l.platform = nil
	l.sessionID = ""
}

func (l *LobbyOrchestrator) Tick() {}

func (l *LobbyOrchestrator) stale(generation uint64) bool {
	return l.closed || generation != l.generation
}

func (l *LobbyOrchestrator) connected() bool {
	return !l.closed && l.platform != nil && !l.sessionID.IsZero() && l.platform.Connect().LoggedIn(l.sessionID)
}

func (l *LobbyOrchestrator) CreateLobby(done *Completion) error {
	if !l.connected() {
		l.pub.Publish(event.NewLobbyCreated(false, "", domain.ErrNotConnected))
		done.finish(domain.ErrNotConnected)
		return domain.ErrNotConnected
	}
	if !l.currentID.IsZero() {
		l.pub.Publish(event.NewLobbyCreated(false, "", domain.ErrAlreadyInLobby))
		done.finish(domain.ErrAlreadyInLobby)
		return domain.ErrAlreadyInLobby
	}
	if l.pendingOp != "" {
		l.pub.Publish(event.NewLobbyCreated(false, "", domain.ErrLobbyOpInProgress))
		done.finish(domain.ErrLobbyOpInProgress)
		return domain.ErrLobbyOpInProgress
	}

	req := ports.CreateLobbyRequest{
		LocalUserID:     l.sessionID,
		MaxMembers:      l.cfg.MaxMembers,
		Permission:      domain.LobbyPublicAdvertised,
		PresenceEnabled: false,
		AllowInvites:    true,
		BucketID:        l.cfg.Bucket,
	}
	generation := l.generation
	l.pendingOp = "create"
	l.platform.Lobby().CreateLobby(req, func(res ports.LobbyResult) {
		if l.stale(generation) {
			done.finish(domain.ErrNotConnected)
			return
		}
		l.pendingOp = ""
		if !res.Result.OK() {
			err := domain.NewOperationError("create lobby", res.Result)
			l.logger.Warn().Stringer("result", res.Result).Msg("create lobby failed")
			l.pub.Publish(event.NewLobbyCreated(false, "", err))
			done.finish(err)
			return
		}

		l.setCurrent(res.LobbyID, true)
		l.logger.Info().Str("lobby_id", string(res.LobbyID)).Str("bucket", l.cfg.Bucket).Msg("lobby created")
		l.pub.Publish(event.NewLobbyCreated(true, res.LobbyID, nil))
		l.pub.Publish(event.NewLobbyJoined(l.current))
		done.finish(nil)
	})
	return nil
}

// SearchLobbies replaces the search snapshot with lobbies in the configured
// bucket that match every filter.
func (l *LobbyOrchestrator) SearchLobbies(filters []domain.SearchFilter, maxResults int, done *Completion) error {
	if !l.connected() {
		done.finish(domain.ErrNotConnected)
		return domain.ErrNotConnected
	}
	if maxResults <= 0 {
		maxResults = l.cfg.SearchMaxResults
	}

	search, result := l.platform.Lobby().CreateLobbySearch(maxResults)
	if !result.OK() {
		return l.searchFailed(domain.NewOperationError("create lobby search", result), result, done)
	}

	params := make([]domain.SearchFilter, 0, len(filters)+1)
	params = append(params, domain.SearchFilter{Key: domain.BucketAttributeKey, Value: l.cfg.Bucket, Op: domain.CompareEqual})
	params = append(params, filters...)

	if result := search.SetMaxResults(maxResults); !result.OK() {
		search.Release()
		return l.searchFailed(domain.NewOperationError("set search max results", result), result, done)
	}
	for _, filter := range params {
		if result := search.SetParameter(filter); !result.OK() {
			search.Release()
			return l.searchFailed(domain.NewOperationError("set search parameter "+filter.Key, result), result, done)
		}
	}

	generation := l.generation
	search.Find(l.sessionID, func(result domain.Result) {
		defer search.Release()

		if l.stale(generation) {
			done.finish(domain.ErrNotConnected)
			return
		}
		if !result.OK() {
			err := domain.NewOperationError("find lobbies", result)
			l.results = nil
			l.logger.Warn().Stringer("result", result).Msg("lobby search failed")
			l.pub.Publish(event.NewLobbySearchResultsUpdated(nil, result))
			done.finish(err)
			return
		}

		count := search.ResultCount()
		results := make([]domain.LobbySummary, 0, count)
		for i := 0; i < count; i++ {
			details, result := search.CopyResultAt(i)
			if !result.OK() {
				continue
			}
			summary, ok := summarize(details)
			details.Release()
			if ok {
				results = append(results, summary)
			}
		}

		l.results = results
		l.logger.Debug().Int("count", len(results)).Int("filters", len(filters)).Msg("lobby search completed")
		l.pub.Publish(event.NewLobbySearchResultsUpdated(l.SearchResults(), result))
		done.finish(nil)
	})
	return nil
}

func (l *LobbyOrchestrator) searchFailed(err error, result domain.Result, done *Completion) error {
	l.results = nil
	l.logger.Warn().Err(err).Msg("lobby search not started")
	l.pub.Publish(event.NewLobbySearchResultsUpdated(nil, result))
	done.finish(err)
	return err
}

func (l *LobbyOrchestrator) JoinLobby(id domain.LobbyID, done *Completion) error {
	if err := l.canJoin(id, true); err != nil {
		l.pub.Publish(event.NewLobbyOperationFailed("join", id, err))
		done.finish(err)
		return err
	}

	generation := l.generation
	l.pendingOp = "join"
	l.platform.Lobby().JoinLobbyByID(l.sessionID, id, false, func(res ports.LobbyResult) {
		l.onJoined(generation, id, res, done)
	})
	return nil
}

func (l *LobbyOrchestrator) canJoin(id domain.LobbyID, needID bool) error {
	if !l.connected() {
		return domain.ErrNotConnected
	}
	if needID && id.IsZero() {
		return domain.ErrEmptyLobbyID
	}
	if !l.currentID.IsZero() {
		return domain.ErrAlreadyInLobby
	}
	if l.pendingOp != "" {
		return domain.ErrLobbyOpInProgress
	}
	return nil
}

func (l *LobbyOrchestrator) onJoined(generation uint64, requested domain.LobbyID, res ports.LobbyResult, done *Completion) {
	if l.stale(generation) {
		done.finish(domain.ErrNotConnected)
		return
	}
	l.pendingOp = ""
	if !res.Result.OK() {
		err := domain.NewOperationError("join lobby", res.Result)
		l.logger.Warn().Str("lobby_id", string(requested)).Stringer("result", res.Result).Msg("join lobby failed")
		l.pub.Publish(event.NewLobbyOperationFailed("join", requested, err))
		done.finish(err)
		return
	}

	id := res.LobbyID
	if id.IsZero() {
		id = requested
	}
	l.setCurrent(id, false)
	l.logger.Info().Str("lobby_id", string(id)).Int("members", l.current.MemberCount).Msg("lobby joined")
	l.pub.Publish(event.NewLobbyJoined(l.current))
	done.finish(nil)
}

func (l *LobbyOrchestrator) LeaveLobby(done *Completion) error {
	return l.exit("leave", ports.LobbyClient.LeaveLobby, done)
}

// DestroyLobby closes the current lobby for every member. Only the owner
// can do this; the platform reports NotOwner otherwise.
func (l *LobbyOrchestrator) DestroyLobby(done *Completion) error {
	return l.exit("destroy", ports.LobbyClient.DestroyLobby, done)
}

type exitCall func(client ports.LobbyClient, local domain.SessionID, lobbyID domain.LobbyID, cb func(ports.LobbyResult))

func (l *LobbyOrchestrator) exit(op string, call exitCall, done *Completion) error {
	if l.closed || l.platform == nil || l.currentID.IsZero() {
		done.finish(domain.ErrNotInLobby)
		return domain.ErrNotInLobby
	}

	id := l.currentID
	generation := l.generation
	call(l.platform.Lobby(), l.sessionID, id, func(res ports.LobbyResult) {
		if l.stale(generation) {
			done.finish(domain.ErrNotConnected)
			return
		}
		if !res.Result.OK() {
			err := domain.NewOperationError(op+" lobby", res.Result)
			l.logger.Warn().Str("lobby_id", string(id)).Stringer("result", res.Result).Msg(op + " lobby failed")
			l.pub.Publish(event.NewLobbyOperationFailed(op, id, err))
			done.finish(err)
			return
		}

		if l.currentID == id {
			l.clearCurrent()
			l.pub.Publish(event.NewLobbyLeft(id))
		}
		l.logger.Info().Str("lobby_id", string(id)).Msg(op + " lobby")
		done.finish(nil)
	})
	return nil
}

// ModifyCurrentLobby commits changes to the lobby the local session owns.
func (l *LobbyOrchestrator) ModifyCurrentLobby(changes domain.LobbyChanges, done *Completion) error {
	if l.closed || l.platform == nil || l.currentID.IsZero() {
		done.finish(domain.ErrNotInLobby)
		return domain.ErrNotInLobby
	}
	id := l.currentID
	if l.current.OwnerID != l.sessionID {
		l.pub.Publish(event.NewLobbyOperationFailed("modify", id, domain.ErrNotLobbyOwner))
		done.finish(domain.ErrNotLobbyOwner)
		return domain.ErrNotLobbyOwner
	}

	fail := func(err error) error {
		l.logger.Warn().Err(err).Str("lobby_id", string(id)).Msg("modify lobby failed")
		l.pub.Publish(event.NewLobbyOperationFailed("modify", id, err))
		done.finish(err)
		return err
	}

	client := l.platform.Lobby()
	mod, result := client.UpdateLobbyModification(l.sessionID, id)
	if !result.OK() {
		return fail(domain.NewOperationError("open lobby modification", result))
	}
	defer mod.Release()

	for _, attr := range changes.Attributes() {
		if result := mod.AddAttribute(attr); !result.OK() {
			return fail(domain.NewOperationError("set lobby attribute "+attr.Key, result))
		}
	}
	if changes.MaxMembers > 0 {
		if result := mod.SetMaxMembers(changes.MaxMembers); !result.OK() {
			return fail(domain.NewOperationError("set lobby max members", result))
		}
	}

	generation := l.generation
	client.UpdateLobby(mod, func(res ports.LobbyResult) {
		if l.stale(generation) {
			done.finish(domain.ErrNotConnected)
			return
		}
		if !res.Result.OK() {
			err := domain.NewOperationError("update lobby", res.Result)
			l.logger.Warn().Str("lobby_id", string(id)).Stringer("result", res.Result).Msg("modify lobby failed")
			l.pub.Publish(event.NewLobbyOperationFailed("modify", id, err))
			done.finish(err)
			return
		}

		if l.currentID == id {
			l.refreshCurrent()
		}
		l.logger.Info().Str("lobby_id", string(id)).Msg("lobby modified")
		l.pub.Publish(event.NewLobbyUpdated(id, l.current))
		done.finish(nil)
	})
	return nil
}

func (l *LobbyOrchestrator) SendLobbyInvite(target domain.SessionID, done *Completion) error {
	if l.closed || l.platform == nil || l.currentID.IsZero() {
		done.finish(domain.ErrNotInLobby)
		return domain.ErrNotInLobby
	}
	if target.IsZero() {
		done.finish(domain.ErrInvalidAccountID)
		return domain.ErrInvalidAccountID
	}

	id := l.currentID
	generation := l.generation
	l.platform.Lobby().SendInvite(l.sessionID, id, target, func(result domain.Result) {
		if l.stale(generation) {
			done.finish(domain.ErrNotConnected)
			return
		}
		if !result.OK() {
			err := domain.NewOperationError("send lobby invite", result)
			l.pub.Publish(event.NewLobbyOperationFailed("invite", id, err))
			done.finish(err)
			return
		}
		l.logger.Info().Str("lobby_id", string(id)).Str("target", string(target)).Msg("lobby invite sent")
		done.finish(nil)
	})
	return nil
}

// AcceptLobbyInvite joins the lobby an invite points at.
func (l *LobbyOrchestrator) AcceptLobbyInvite(inviteID domain.InviteID, done *Completion) error {
	if err := l.canJoin("", false); err != nil {
		l.pub.Publish(event.NewLobbyOperationFailed("join", "", err))
		done.finish(err)
		return err
	}

	client := l.platform.Lobby()
	details, result := client.CopyLobbyDetailsByInviteID(inviteID)
	if !result.OK() {
		err := domain.NewOperationError("copy invite lobby details", result)
		l.pub.Publish(event.NewLobbyOperationFailed("join", "", err))
		done.finish(err)
		return err
	}
	defer details.Release()

	var requested domain.LobbyID
	if info, result := details.Info(); result.OK() {
		requested = info.LobbyID
	}

	generation := l.generation
	l.pendingOp = "accept invite"
	client.JoinLobby(l.sessionID, details, false, func(res ports.LobbyResult) {
		l.onJoined(generation, requested, res, done)
	})
	return nil
}

func (l *LobbyOrchestrator) RejectLobbyInvite(inviteID domain.InviteID, done *Completion) error {
	if !l.connected() {
		done.finish(domain.ErrNotConnected)
		return domain.ErrNotConnected
	}

	generation := l.generation
	l.platform.Lobby().RejectInvite(l.sessionID, inviteID, func(result domain.Result) {
		if l.stale(generation) {
			done.finish(domain.ErrNotConnected)
			return
		}
		if !result.OK() {
			done.finish(domain.NewOperationError("reject lobby invite", result))
			return
		}
		l.logger.Info().Str("invite_id", string(inviteID)).Msg("lobby invite rejected")
		done.finish(nil)
	})
	return nil
}

func (l *LobbyOrchestrator) onInviteReceived(invite ports.LobbyInviteReceived) {
	if l.closed || invite.LocalID != l.sessionID {
		return
	}
	l.logger.Info().Str("invite_id", string(invite.InviteID)).Str("sender", string(invite.SenderID)).Msg("lobby invite received")
	l.pub.Publish(event.NewLobbyInviteReceived(invite.InviteID, invite.SenderID))
}

func (l *LobbyOrchestrator) onLobbyUpdate(update ports.LobbyUpdateReceived) {
	if l.closed {
		return
	}

	var summary domain.LobbySummary
	if !l.currentID.IsZero() && update.LobbyID == l.currentID {
		l.refreshCurrent()
		summary = l.current
	}
	l.pub.Publish(event.NewLobbyUpdated(update.LobbyID, summary))
}

func (l *LobbyOrchestrator) onMemberUpdate(update ports.LobbyMemberUpdate) {
	if l.closed {
		return
	}

	l.pub.Publish(event.NewLobbyMemberUpdated(update.LobbyID, update.MemberID, update.Change))
	if l.currentID.IsZero() || update.LobbyID != l.currentID {
		return
	}

	local := update.MemberID == l.sessionID
	if update.Change == domain.MemberClosed || (local && update.Change.RemovesLocalMember()) {
		l.logger.Info().Str("lobby_id", string(update.LobbyID)).Stringer("change", update.Change).Msg("removed from lobby")
		l.clearCurrent()
		l.pub.Publish(event.NewLobbyLeft(update.LobbyID))
		return
	}
	l.refreshCurrent()
}

// setCurrent records id as the current lobby and copies fresh details.
// created marks a lobby this session made, whose owner and first member are
// known locally.
func (l *LobbyOrchestrator) setCurrent(id domain.LobbyID, created bool) {
	l.currentID = id
	l.created = created
	l.refreshCurrent()
}

// refreshCurrent replaces the held details handle with a new copy. If the
// copy fails the previous summary is kept. A joined lobby with no summary yet
// gets only its id, since owner and member count belong to the platform.
func (l *LobbyOrchestrator) refreshCurrent() {
	details, result := l.platform.Lobby().CopyLobbyDetails(l.sessionID, l.currentID)
	if !result.OK() {
		l.logger.Debug().Str("lobby_id", string(l.currentID)).Stringer("result", result).Msg("copy lobby details failed")
		if l.current.LobbyID != l.currentID {
			l.current = domain.LobbySummary{LobbyID: l.currentID}
			if l.created {
				l.current.OwnerID = l.sessionID
				l.current.MemberCount = 1
				l.current.MaxMembers = l.cfg.MaxMembers
			}
		}
		return
	}

	if l.details != nil {
		l.details.Release()
	}
	l.details = details

	summary, ok := summarize(details)
	if !ok {
		summary = domain.LobbySummary{LobbyID: l.currentID}
	}
	if summary.LobbyID.IsZero() {
		summary.LobbyID = l.currentID
	}
	if l.created {
		if summary.OwnerID.IsZero() {
			summary.OwnerID = l.sessionID
		}
		if summary.MemberCount == 0 {
			summary.MemberCount = 1
		}
	}
	l.current = summary
}

func (l *LobbyOrchestrator) clearCurrent() {
	if l.details != nil {
		l.details.Release()
		l.details = nil
	}
	l.currentID = ""
	l.created = false
	l.current = domain.LobbySummary{}
}

func (l *LobbyOrchestrator) SearchResults() []domain.LobbySummary {
	out := make([]domain.LobbySummary, len(l.results))
	copy(out, l.results)
	return out
}

func (l *LobbyOrchestrator) CurrentLobby() (domain.LobbySummary, bool) {
	if l.currentID.IsZero() {
		return domain.LobbySummary{}, false
	}
	return l.current, true
}

func (l *LobbyOrchestrator) CurrentLobbyID() domain.LobbyID {
	return l.currentID
}

func (l *LobbyOrchestrator) subscriptionCount() int { return l.subs.len() }

func summarize(details ports.LobbyDetails) (domain.LobbySummary, bool) {
	info, result := details.Info()
	if !result.OK() {
		return domain.LobbySummary{}, false
	}

	name, _ := details.Attribute(domain.LobbyAttributeName)
	mapName, _ := details.Attribute(domain.LobbyAttributeMap)
	mode, _ := details.Attribute(domain.LobbyAttributeMode)
	return domain.LobbySummary{
		LobbyID:         info.LobbyID,
		OwnerID:         info.OwnerID,
		Name:            name,
		Map:             mapName,
		Mode:            mode,
		MemberCount:     info.MemberCount,
		MaxMembers:      info.MaxMembers,
		PresenceEnabled: info.PresenceEnabled,
		AllowInvites:    info.AllowInvites,
	}, true
}
