package sandbox

import (
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
)

type authClient struct{ p *Platform }

func (c authClient) Login(req ports.AuthLoginRequest, cb func(ports.AuthLoginResult)) {
	p := c.p
	p.enqueue(func() {
		out := ports.AuthLoginResult{}
		if result, injected := p.fault(OpAuthLogin); injected {
			out.Result = result
		} else {
			out = p.authLogin(req)
		}
		p.logger.Debug().
			Stringer("credential", req.Credential).
			Stringer("result", out.Result).
			Str("account_id", string(out.AccountID)).
			Msg("auth login")
		if cb != nil {
			cb(out)
		}
	})
}

func (p *Platform) authLogin(req ports.AuthLoginRequest) ports.AuthLoginResult {
	var accountID domain.AccountID
	switch req.Credential {
	case domain.CredentialRefreshToken:
		id, ok := p.refreshTokens[req.Token]
		if !ok || req.Token == "" {
			return ports.AuthLoginResult{Result: domain.ResultInvalidCredentials}
		}
		accountID = id
	case domain.CredentialPersistentAuth:
		if p.persistentAccount == "" {
			return ports.AuthLoginResult{Result: domain.ResultPersistentAuthNotFound}
		}
		accountID = p.persistentAccount
	case domain.CredentialAccountPortal:
		if p.cfg.PortalAccount == "" {
			return ports.AuthLoginResult{Result: domain.ResultCanceled}
		}
		accountID = p.cfg.PortalAccount
	default:
		return ports.AuthLoginResult{Result: domain.ResultInvalidParameters}
	}

	if _, ok := p.accounts[accountID]; !ok {
		return ports.AuthLoginResult{Result: domain.ResultInvalidUser}
	}

	// Refresh tokens are single use.
	if previous, ok := p.issued[accountID]; ok {
		delete(p.refreshTokens, previous.RefreshToken)
		delete(p.accessTokens, previous.AccessToken)
	}

	token := domain.AuthToken{AccountID: accountID, RefreshToken: "rt-" + p.newID()}
	if !p.withholdAccess {
		token.AccessToken = "at-" + p.newID()
		p.accessTokens[token.AccessToken] = accountID
	}
	p.refreshTokens[token.RefreshToken] = accountID
	p.issued[accountID] = token
	p.authLoggedIn[accountID] = true
	p.persistentAccount = accountID

	return ports.AuthLoginResult{Result: domain.ResultSuccess, AccountID: accountID}
}

func (c authClient) Logout(accountID domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpAuthLogout, cb, func() domain.Result {
		if !p.authLoggedIn[accountID] {
			return domain.ResultInvalidUser
		}
		delete(p.authLoggedIn, accountID)
		if token, ok := p.issued[accountID]; ok {
			delete(p.accessTokens, token.AccessToken)
		}
		return domain.ResultSuccess
	})
}

func (c authClient) CopyUserAuthToken(accountID domain.AccountID) (domain.AuthToken, domain.Result) {
	p := c.p
	if result, injected := p.fault(OpCopyUserAuthToken); injected {
		return domain.AuthToken{}, result
	}
	if !p.authLoggedIn[accountID] {
		return domain.AuthToken{}, domain.ResultInvalidUser
	}
	return p.issued[accountID], domain.ResultSuccess
}

func (c authClient) DeletePersistentAuth(refreshToken string, cb func(domain.Result)) {
	p := c.p
	p.complete(OpDeletePersistentAuth, cb, func() domain.Result {
		if refreshToken != "" {
			if accountID, ok := p.refreshTokens[refreshToken]; ok {
				delete(p.refreshTokens, refreshToken)
				delete(p.issued, accountID)
			}
		}
		p.persistentAccount = ""
		return domain.ResultSuccess
	})
}

type connectClient struct{ p *Platform }

func (c connectClient) Login(accessToken string, cb func(ports.ConnectLoginResult)) {
	p := c.p
	p.enqueue(func() {
		out := ports.ConnectLoginResult{}
		if result, injected := p.fault(OpConnectLogin); injected {
			out.Result = result
		} else {
			out = p.connectLogin(accessToken)
		}
		p.logger.Debug().
			Stringer("result", out.Result).
			Str("session_id", string(out.SessionID)).
			Msg("connect login")
		if cb != nil {
			cb(out)
		}
	})
}

func (p *Platform) connectLogin(accessToken string) ports.ConnectLoginResult {
	accountID, ok := p.accessTokens[accessToken]
	if !ok || accessToken == "" {
		return ports.ConnectLoginResult{Result: domain.ResultInvalidCredentials}
	}
	acc, ok := p.accounts[accountID]
	if !ok {
		return ports.ConnectLoginResult{Result: domain.ResultInvalidUser}
	}

	sessionID := p.ensureSessionID(acc)
	p.connected[sessionID] = true
	return ports.ConnectLoginResult{Result: domain.ResultSuccess, SessionID: sessionID}
}

func (c connectClient) Logout(sessionID domain.SessionID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpConnectLogout, cb, func() domain.Result {
		if !p.connected[sessionID] {
			return domain.ResultInvalidUser
		}
		delete(p.connected, sessionID)
		return domain.ResultSuccess
	})
}

func (c connectClient) LoggedIn(sessionID domain.SessionID) bool {
	return sessionID != "" && c.p.connected[sessionID]
}

func (c connectClient) QueryExternalAccountMappings(local domain.SessionID, accounts []domain.AccountID, cb func(domain.Result)) {
	p := c.p
	requested := append([]domain.AccountID(nil), accounts...)
	p.complete(OpQueryMappings, cb, func() domain.Result {
		if !p.connected[local] {
			return domain.ResultInvalidUser
		}
		if len(requested) == 0 {
			return domain.ResultInvalidParameters
		}
		for _, id := range requested {
			p.mappingCache[id] = true
		}
		return domain.ResultSuccess
	})
}

// ExternalAccountMapping answers from the mapping cache. Accounts that have
// never connected have no session id to map to.
func (c connectClient) ExternalAccountMapping(local domain.SessionID, accountID domain.AccountID) (domain.SessionID, bool) {
	p := c.p
	if !p.connected[local] || !p.mappingCache[accountID] {
		return "", false
	}
	acc, ok := p.accounts[accountID]
	if !ok || acc.sessionID == "" {
		return "", false
	}
	return acc.sessionID, true
}

type userInfoClient struct{ p *Platform }

func (c userInfoClient) QueryUserInfo(local, target domain.AccountID, cb func(domain.Result)) {
	p := c.p
	p.complete(OpQueryUserInfo, cb, func() domain.Result {
		if !p.authLoggedIn[local] {
			return domain.ResultInvalidUser
		}
		if _, ok := p.accounts[target]; !ok {
			return domain.ResultNotFound
		}
		p.userInfoCache[target] = true
		return domain.ResultSuccess
	})
}

func (c userInfoClient) CopyUserInfo(local, target domain.AccountID) (ports.UserInfo, domain.Result) {
	p := c.p
	if !p.authLoggedIn[local] {
		return ports.UserInfo{}, domain.ResultInvalidUser
	}
	acc, ok := p.accounts[target]
	if !ok || !p.userInfoCache[target] {
		return ports.UserInfo{}, domain.ResultNotFound
	}
	return ports.UserInfo{AccountID: acc.id, DisplayName: acc.displayName}, domain.ResultSuccess
}
