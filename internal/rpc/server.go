// Package rpc serves the user procedures over a newline-delimited JSON
// envelope on a single HTTP request.
package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/backpine/users-service/internal/pkg/metrics"
	"github.com/backpine/users-service/internal/api/middleware"
	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/ports"
	"github.com/backpine/users-service/internal/core/scope"
)

const (
	contentType = "application/ndjson"
	maxLineSize = 1 << 20
)

// Server dispatches Request lines to procedures. Every call gets its own
// database handle, released before the Exit line is written.
type Server struct {
	procedures map[string]procedure
	log        zerolog.Logger
}

func NewServer(users ports.UserService, log zerolog.Logger) *Server {
	return &Server{
		procedures: userProcedures(users),
		log:        log,
	}
}

// Handle godoc
//
//	@Summary	RPC endpoint
//	@Tags		rpc
//	@Accept		application/ndjson
//	@Produce	application/ndjson
//	@Success	200
//	@Router		/rpc [post]
func (s *Server) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	sc := middleware.ScopeFrom(c)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(res)

	scanner := bufio.NewScanner(c.Request().Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			if err := s.write(res, enc, defectMessage{Tag: tagDefect, Defect: "malformed message: " + err.Error()}); err != nil {
				return err
			}
			continue
		}

		var out any
		switch msg.Tag {
		case tagRequest:
			out = s.call(ctx, sc, msg)
		case tagPing:
			out = pongMessage{Tag: tagPong}
		case tagEof:
			return nil
		case tagAck, tagInterrupt:
			continue
		default:
			out = defectMessage{Tag: tagDefect, Defect: fmt.Sprintf("unknown message tag %q", msg.Tag)}
		}
		if err := s.write(res, enc, out); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return s.write(res, enc, defectMessage{Tag: tagDefect, Defect: "read request: " + err.Error()})
	}
	return nil
}

func (s *Server) write(res *echo.Response, enc *json.Encoder, v any) error {
	if err := enc.Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("rpc write failed")
		return err
	}
	res.Flush()
	return nil
}

func (s *Server) call(ctx context.Context, sc scope.Scope, msg clientMessage) (out exitMessage) {
	proc, ok := s.procedures[msg.Procedure]
	if !ok {
		metrics.RPCCallsTotal.WithLabelValues("unknown", "die").Inc()
		return dieExit(msg.ID, fmt.Sprintf("unknown procedure %q", msg.Procedure))
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("procedure", msg.Procedure).
				Str("request_id", sc.RequestID()).
				Interface("panic", r).
				Msg("rpc procedure panicked")
			metrics.RPCCallsTotal.WithLabelValues(msg.Procedure, "die").Inc()
			out = dieExit(msg.ID, fmt.Sprintf("procedure %s panicked: %v", msg.Procedure, r))
		}
	}()

	var value any
	err := scope.WithDatabase(ctx, sc, func(inner scope.Scope) error {
		v, err := proc(ctx, inner, msg.Payload)
		value = v
		return err
	})

	out = s.exit(msg, value, err)
	metrics.RPCCallsTotal.WithLabelValues(msg.Procedure, outcome(out)).Inc()
	return out
}

func (s *Server) exit(msg clientMessage, value any, err error) exitMessage {
	if err == nil {
		return successExit(msg.ID, value)
	}

	var (
		f  *failure
		be *domain.BindingsError
		de *domain.DatabaseConnectionError
	)
	switch {
	case errors.As(err, &f):
		return failExit(msg.ID, f.payload)
	case errors.As(err, &be):
		return failExit(msg.ID, provisioningFailure{Tag: be.Tag(), Message: be.Message})
	case errors.As(err, &de):
		s.log.Error().Err(err).Str("procedure", msg.Procedure).Msg("rpc database unavailable")
		return failExit(msg.ID, provisioningFailure{Tag: de.Tag(), Message: de.Message})
	}

	s.log.Error().Err(err).Str("procedure", msg.Procedure).Msg("rpc procedure failed")
	return dieExit(msg.ID, err.Error())
}

func outcome(m exitMessage) string {
	if m.Exit.Tag == exitSuccess {
		return "success"
	}
	if m.Exit.Cause != nil && m.Exit.Cause.Tag == causeDie {
		return "die"
	}
	return "failure"
}
