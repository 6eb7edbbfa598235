// Package credential issues and resolves the credential a client receives
// after a completed login.
//
// Three modes are supported:
//
//   - jwt: an HS256 access/refresh pair, optionally delivered as HttpOnly cookies
//   - token: one opaque API key per user, kept in memory or Redis
//   - session: a signed, stateless session cookie
//
// Any mode can additionally start a session when SessionLogin is set.
//
//	svc, err := credential.New(cfg,
//		credential.WithOpaque(credential.NewOpaqueIssuer(credential.NewMemoryTokenStore())),
//	)
//	res, err := svc.Issue(ctx, userID)
//	body, err := svc.Deliver(w, userID, res)
//
// Service.Middleware authenticates follow-up requests and exposes the user
// through UserID.
package credential
