package session

import "errors"

var errClosedConn = errors.New("session: connection not established")
