// Package api is the HTTP client for the remote iuran API.
//
// [AuthTransport] attaches the persisted bearer token to every outgoing
// request. [Client] builds on it with the two calls the session store needs
// (login and current user) plus a generic JSON [Client.Do].
package api
