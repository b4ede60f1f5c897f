// Package httpapi exposes board sessions over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/detect"
	"github.com/park285/boardwatch/internal/report"
	"github.com/park285/boardwatch/internal/session"
	"github.com/park285/boardwatch/pkg/boarddto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const maxBodySize = 16 << 20

type Server struct {
	svc       *session.Service
	formatter *report.Formatter
	presenter *report.Presenter
	logger    *zap.Logger
	srv       *fasthttp.Server
}

// New builds a server. presenter may be nil, in which case outcomes are only
// returned to the caller.
func New(svc *session.Service, formatter *report.Formatter, presenter *report.Presenter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, formatter: formatter, presenter: presenter, logger: logger}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "boardwatch",
		MaxRequestBodySize: maxBodySize,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
	}
	return s
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		if err := s.srv.Shutdown(); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("http_listen", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

// Handler routes /sessions requests.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		s.route(ctx)
		s.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := strings.Trim(string(ctx.Path()), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case len(parts) == 1 && parts[0] == "sessions":
		if !allow(ctx, fasthttp.MethodPost) {
			return
		}
		s.start(ctx)
	case len(parts) == 2 && parts[0] == "sessions":
		if !allow(ctx, fasthttp.MethodGet) {
			return
		}
		s.status(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "sessions":
		id := parts[1]
		switch parts[2] {
		case "compare":
			if allow(ctx, fasthttp.MethodPost) {
				s.compare(ctx, id)
			}
		case "frames":
			if allow(ctx, fasthttp.MethodPost) {
				s.frame(ctx, id)
			}
		case "resolve":
			if allow(ctx, fasthttp.MethodPost) {
				s.resolve(ctx, id)
			}
		case "board.png":
			if allow(ctx, fasthttp.MethodGet) {
				s.boardPNG(ctx, id)
			}
		case "history":
			if allow(ctx, fasthttp.MethodGet) {
				s.history(ctx, id)
			}
		default:
			writeError(ctx, fasthttp.StatusNotFound, "not_found", "no such route")
		}
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not_found", "no such route")
	}
}

func allow(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "use "+method)
	return false
}

func (s *Server) start(ctx *fasthttp.RequestCtx) {
	rep, err := s.svc.Start(ctx)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if s.presenter != nil {
		if err := s.presenter.Started(ctx, rep); err != nil {
			s.logger.Warn("publish_failed", zap.Error(err), zap.String("session_uuid", rep.SessionUUID))
		}
	}
	writeJSON(ctx, fasthttp.StatusCreated, report.ToDTOState(rep, s.formatter.Started(rep)))
}

func (s *Server) status(ctx *fasthttp.RequestCtx, id string) {
	rep, err := s.svc.Status(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, report.ToDTOState(rep, s.formatter.Turn(rep)))
}

func (s *Server) compare(ctx *fasthttp.RequestCtx, id string) {
	form, err := ctx.MultipartForm()
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "multipart form with before and after images required")
		return
	}
	var grids [2]*detect.Grid
	for i, field := range []string{"before", "after"} {
		files := form.File[field]
		if len(files) == 0 {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "missing image field "+field)
			return
		}
		f, err := files[0].Open()
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error())
			return
		}
		img, err := detect.Decode(f)
		_ = f.Close()
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_image", field+": "+err.Error())
			return
		}
		if grids[i], err = detect.Split(img); err != nil {
			s.fail(ctx, err)
			return
		}
	}
	rep, err := s.svc.Compare(ctx, id, grids[0], grids[1])
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.respond(ctx, rep)
}

func (s *Server) frame(ctx *fasthttp.RequestCtx, id string) {
	img, err := detect.Decode(bytes.NewReader(ctx.PostBody()))
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_image", err.Error())
		return
	}
	rep, err := s.svc.Advance(ctx, id, img)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.respond(ctx, rep)
}

func (s *Server) resolve(ctx *fasthttp.RequestCtx, id string) {
	var req boarddto.ResolveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	changes := make(detect.ChangeSet, 0, len(req.Changes))
	for _, c := range req.Changes {
		sq := board.Sq(c.Row, c.Col)
		if c.Name != "" {
			parsed, err := board.ParseSquare(c.Name)
			if err != nil {
				writeError(ctx, fasthttp.StatusBadRequest, "bad_square", err.Error())
				return
			}
			sq = parsed
		}
		changes = append(changes, sq)
	}
	rep, err := s.svc.Resolve(ctx, id, changes)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.respond(ctx, rep)
}

// respond publishes rep and returns it with its formatted message.
func (s *Server) respond(ctx *fasthttp.RequestCtx, rep *session.Report) {
	msg := s.formatter.Full(rep)
	if s.presenter != nil {
		if _, err := s.presenter.Publish(ctx, rep); err != nil {
			s.logger.Warn("publish_failed", zap.Error(err), zap.String("session_uuid", rep.SessionUUID))
		}
	}
	writeJSON(ctx, fasthttp.StatusOK, report.ToDTOState(rep, msg))
}

func (s *Server) boardPNG(ctx *fasthttp.RequestCtx, id string) {
	rep, err := s.svc.Status(ctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	raw, err := report.BoardPNG(ctx, rep)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(raw)
}

func (s *Server) history(ctx *fasthttp.RequestCtx, id string) {
	limit := 0
	if v := ctx.QueryArgs().Peek("limit"); len(v) > 0 {
		n, err := strconv.Atoi(string(v))
		if err != nil || n <= 0 {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := s.svc.History(ctx, id, limit)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, report.ToDTOHistory(id, records))
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, detect.ErrMalformedGrid):
		writeError(ctx, fasthttp.StatusBadRequest, "malformed_grid", err.Error())
	default:
		s.logger.Error("http_internal_error", zap.Error(err), zap.ByteString("path", ctx.Path()))
		writeError(ctx, fasthttp.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, message string) {
	writeJSON(ctx, status, boarddto.DomainError{Code: code, Message: message})
}
