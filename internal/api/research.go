package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"token-intel/internal/domain"
	"token-intel/internal/research"
	"token-intel/internal/solana"
)

const (
	// ResultMessageType tags the final websocket frame of a research run.
	ResultMessageType = "research_result"
	// ErrorMessageType tags a websocket frame reporting a failed run.
	ErrorMessageType = "research_error"

	sinkBuffer   = 16
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type researchRequest struct {
	Mint   string `json:"mint" binding:"required"`
	ChatID string `json:"chatId"`
}

// resultFrame is the terminal message of a websocket research stream.
type resultFrame struct {
	Type   string                 `json:"type"`
	Result *domain.ResearchResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

type outcome struct {
	result domain.ResearchResult
	err    error
}

// startResearch runs the workflow in the background. Progress arrives on
// the returned sink, which is closed before the outcome is delivered.
func (s *Server) startResearch(ctx context.Context, mint string) (*research.ChanSink, <-chan outcome) {
	sink := research.NewChanSink(sinkBuffer)
	done := make(chan outcome, 1)
	go func() {
		res, err := s.svc.Research.Run(ctx, mint, sink)
		sink.Close()
		done <- outcome{result: res, err: err}
	}()
	return sink, done
}

// researchSSE streams progress as "progress" events and ends with a
// "result" event. With chatId set, the result is appended to that chat.
func (s *Server) researchSSE(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if !solana.IsValidAddress(req.Mint) {
		respondError(c, fmt.Errorf("%w: invalid mint address %q", domain.ErrValidation, req.Mint))
		return
	}
	if req.ChatID != "" {
		c.Params = append(c.Params, gin.Param{Key: "id", Value: req.ChatID})
		if _, ok := s.ownedChat(c, true); !ok {
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.ResearchTimeout)
	defer cancel()
	sink, done := s.startResearch(ctx, req.Mint)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	messages := sink.Messages()
	c.Stream(func(w io.Writer) bool {
		msg, ok := <-messages
		if !ok {
			return false
		}
		c.SSEvent("progress", msg)
		return true
	})
	// Unblocks the workflow if the client went away mid-stream.
	cancel()
	out := <-done

	if out.err != nil {
		c.SSEvent("error", envelope{Success: false, Error: out.err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("result", out.result)
	c.Writer.Flush()

	if req.ChatID != "" {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), writeTimeout)
		defer saveCancel()
		if err := s.saveResearch(saveCtx, req.ChatID, out.result); err != nil {
			s.log.WithError(err).WithField("chat_id", req.ChatID).Warn("failed to save research result")
		}
	}
}

// researchWS streams progress frames over a websocket and ends with a
// research_result frame. Closing the socket cancels the run.
func (s *Server) researchWS(c *gin.Context) {
	mint := c.Query("mint")
	if !solana.IsValidAddress(mint) {
		respondError(c, fmt.Errorf("%w: invalid mint address %q", domain.ErrValidation, mint))
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ResearchTimeout)
	defer cancel()

	// The reader only watches for the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink, done := s.startResearch(ctx, mint)
	for msg := range sink.Messages() {
		if err := writeJSON(conn, msg); err != nil {
			s.log.WithError(err).WithField("mint", mint).Debug("websocket write failed")
			cancel()
			break
		}
	}
	out := <-done

	frame := resultFrame{Type: ResultMessageType}
	if out.err != nil {
		frame = resultFrame{Type: ErrorMessageType, Error: out.err.Error()}
	} else {
		frame.Result = &out.result
	}
	if err := writeJSON(conn, frame); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
