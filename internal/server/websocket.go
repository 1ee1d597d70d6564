package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/bore/internal/config"
	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/pkg/bore"
)

// Op names a WebSocket request.
type Op string

const (
	OpMount Op = "mount"
	OpQuery Op = "query"
	OpWait  Op = "wait"
	OpDiff  Op = "diff"
)

// Request is a client frame. Fields apply per Op.
type Request struct {
	ID int `json:"id"`
	Op Op  `json:"op"`

	// mount
	Markup string `json:"markup,omitempty"`
	Source string `json:"source,omitempty"`

	// query, wait
	Q       string          `json:"q,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Timeout config.Duration `json:"timeout,omitempty"`

	// diff
	A        string `json:"a,omitempty"`
	B        string `json:"b,omitempty"`
	Children bool   `json:"children,omitempty"`
}

// Reply answers the Request with the same ID.
type Reply struct {
	ID      int             `json:"id"`
	OK      bool            `json:"ok"`
	Error   json.RawMessage `json:"error,omitempty"`
	Node    string          `json:"node,omitempty"`
	HTML    string          `json:"html,omitempty"`
	Count   int             `json:"count"`
	Matches []Match         `json:"matches,omitempty"`
	Equal   bool            `json:"equal,omitempty"`
	Patches []string        `json:"patches,omitempty"`
}

// handleWebSocket serves one connection. Frames are handled in order;
// the connection ends on the first read or write error.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		reply := s.dispatch(ctx, req)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Reply {
	reply := Reply{ID: req.ID}
	var err error
	switch req.Op {
	case OpMount:
		var resp mountResponse
		resp, err = s.mount(ctx, mountRequest{Markup: req.Markup, Source: req.Source})
		reply.Node, reply.HTML = resp.Node, resp.HTML
	case OpQuery, OpWait:
		var resp queryResponse
		resp, err = s.queryOp(ctx, req)
		reply.Count, reply.Matches = resp.Count, resp.Matches
	case OpDiff:
		var resp diffResponse
		resp, err = diff(diffRequest{A: req.A, B: req.B, Children: req.Children})
		reply.Equal, reply.Patches = resp.Equal, resp.Patches
	default:
		err = errors.New("B050").WithDetail("unknown op " + string(req.Op))
	}
	if err != nil {
		reply.Error = errorJSON(err)
		return reply
	}
	reply.OK = true
	return reply
}

func (s *Server) queryOp(ctx context.Context, req Request) (queryResponse, error) {
	q, err := bore.ParseQuery(req.Kind, req.Q)
	if err != nil {
		return queryResponse{}, err
	}

	if req.Op == OpWait {
		return s.wait(ctx, q, req.Timeout.D())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return queryResponse{}, errNotMounted
	}
	return s.query(q)
}
