package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/codegraphd/codegraphd/daemon"
	"github.com/codegraphd/codegraphd/query"
)

// Server listens on a Unix domain socket and answers Request frames
// against a running daemon.Supervisor's graph state. Each connection is
// handled independently; requests within one connection are processed
// one at a time, in arrival order, matching the stateless-per-request
// contract of SPEC_FULL.md §6.
type Server struct {
	SocketPath string
	Supervisor *daemon.Supervisor
	Engine     *query.Engine
	Logger     *slog.Logger

	ln net.Listener
}

// Listen creates the Unix socket, removing any stale socket file left
// behind by a previous daemon instance first.
func (s *Server) Listen() error {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	if _, err := os.Stat(s.SocketPath); err == nil {
		os.Remove(s.SocketPath)
	}

	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", s.SocketPath, err)
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until ctx is canceled or the listener is
// closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

// Close closes the listener and removes the socket file.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	os.Remove(s.SocketPath)
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(Response{Error: fmt.Sprintf("api: malformed request: %v", err)})
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			s.Logger.Warn("api: write response failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	result, err := s.call(ctx, req.Verb, req.Params)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) call(ctx context.Context, verb string, params any) (any, error) {
	switch verb {
	case VerbFindRelated:
		var p FindRelatedParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Root == "" {
			return nil, fmt.Errorf("%w: root is required", daemon.ErrQueryBadInput)
		}
		if p.MaxDepth <= 0 {
			p.MaxDepth = 3
		}
		return s.Engine.FindRelated(ctx, p.Root, p.MaxDepth, p.Types, p.IncludeReverse)

	case VerbSearchSymbols:
		var p SearchSymbolsParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if len(p.Keywords) == 0 {
			return nil, fmt.Errorf("%w: keywords is required", daemon.ErrQueryBadInput)
		}
		return s.Engine.SearchSymbols(ctx, p.Keywords)

	case VerbHotPaths:
		var p HotPathsParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Limit <= 0 {
			p.Limit = 20
		}
		return s.Engine.HotPaths(ctx, p.Limit)

	case VerbDetectCycles:
		return s.Engine.DetectCycles(ctx)

	case VerbArchitectureOverview:
		var p ArchitectureOverviewParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.HotPathLimit <= 0 {
			p.HotPathLimit = 20
		}
		metrics := s.Supervisor.MetricsSnapshot()
		return s.Engine.ArchitectureOverview(ctx, s.Supervisor.SuperGraph(), p.HotPathLimit, metrics)

	case VerbStatus:
		var warnings []string
		for _, w := range s.Supervisor.Health() {
			warnings = append(warnings, w.Message)
		}
		return StatusResult{
			NodeCount: s.Supervisor.Store.NodeCount(),
			Warnings:  warnings,
			Metrics:   s.Supervisor.MetricsSnapshot(),
		}, nil

	case VerbRefresh:
		s.Supervisor.Refresh()
		return map[string]bool{"accepted": true}, nil

	default:
		return nil, fmt.Errorf("%w: unknown verb %q", daemon.ErrQueryBadInput, verb)
	}
}

func decodeParams(params any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", daemon.ErrQueryBadInput, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", daemon.ErrQueryBadInput, err)
	}
	return nil
}
