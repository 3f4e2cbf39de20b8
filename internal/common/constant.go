package common

// SessionCookieName is the cookie carrying the session token for browser
// clients.
const SessionCookieName = "gophbook_session"

// SessionHeaderName carries the session token for non-browser clients on
// register/login responses.
const SessionHeaderName = "X-Session-Token"
