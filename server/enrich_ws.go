package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

const (
	// Time allowed to write a frame to the browser
	writeWait = 10 * time.Second

	// The browser never sends anything but control frames
	maxMessageSize = 512
)

// Frame types sent on the enrichment socket.
const (
	frameLoading  = "loading"
	frameSections = "sections"
	frameError    = "error"
)

// enrichFrame is one message on the enrichment socket.
type enrichFrame struct {
	Type     string `json:"type"`
	HTML     string `json:"html,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests from this host only.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// handleEnrichSocket streams the enrichment of one property: a loading frame
// first, then either the rendered sections or an error. Closing the socket
// cancels the backend call.
func (s *Server) handleEnrichSocket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	force := r.URL.Query().Get("refresh") != ""
	u := s.user(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.Debugw("Websocket upgrade failed", logger.FieldError, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Any read error means the browser went away.
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeFrame(conn, enrichFrame{Type: frameLoading}); err != nil {
		return
	}

	report, err := s.enrich(ctx, u, id, force)
	if ctx.Err() != nil {
		s.log.Debugw("Enrichment abandoned by client", logger.FieldPropertyID, id)
		return
	}

	frame := enrichFrame{Type: frameSections}
	if err != nil {
		frame = enrichFrame{Type: frameError, Message: api.UserMessage(err)}
		if errors.Is(err, errors.ErrSessionExpired) || errors.Is(err, errors.ErrUnauthorized) {
			frame.Redirect = s.auth.LoginURL("/properties/" + r.PathValue("id"))
		}
		s.log.Warnw("Enrichment failed", logger.FieldPropertyID, id, logger.FieldError, err)
	} else {
		html, rerr := s.renderFragment("sections", report)
		if rerr != nil {
			s.log.Errorw("Rendering sections failed", logger.FieldPropertyID, id, logger.FieldError, rerr)
			frame = enrichFrame{Type: frameError, Message: "Enrichment data could not be displayed."}
		} else {
			frame.HTML = html
			frame.Summary = display.EnrichmentSummary(report.Metadata)
		}
	}

	if err := writeFrame(conn, frame); err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func writeFrame(conn *websocket.Conn, f enrichFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}
