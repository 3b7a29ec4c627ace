package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"transit_feed_proxy/internal/limits"
	"transit_feed_proxy/internal/runtime"
)

type Server struct {
	Addr string

	httpServer   *http.Server
	listener     net.Listener
	shutdown     runtime.ShutdownConfig
	inflight     *runtime.InflightTracker
	closeIdle    []func()
	shutdownOnce sync.Once
	shutdownErr  error
}

type Options struct {
	Limits    limits.Limits
	Shutdown  runtime.ShutdownConfig
	Inflight  *runtime.InflightTracker
	CloseIdle []func()
}

func Start(handler http.Handler, addr string, options Options) (*Server, error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}

	limitConfig := options.Limits
	if limitConfig.MaxHeaderBytes == 0 {
		limitConfig = limits.Default()
	}
	shutdownConfig := runtime.ApplyShutdownDefaults(options.Shutdown)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		MaxHeaderBytes:    limitConfig.MaxHeaderBytes,
		ReadHeaderTimeout: limitConfig.ReadHeaderTimeout,
		ReadTimeout:       limitConfig.ReadTimeout,
		WriteTimeout:      limitConfig.WriteTimeout,
		IdleTimeout:       limitConfig.IdleTimeout,
	}
	go serve(srv, ln)

	return &Server{
		Addr:       ln.Addr().String(),
		httpServer: srv,
		listener:   ln,
		shutdown:   shutdownConfig,
		inflight:   options.Inflight,
		closeIdle:  options.CloseIdle,
	}, nil
}

func serve(server *http.Server, ln net.Listener) {
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server error: %v", err)
	}
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	if s == nil {
		return nil
	}
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdownSequence()
	})
	return s.shutdownErr
}

func (s *Server) shutdownSequence() error {
	_ = s.listener.Close()

	if s.shutdown.Drain > 0 {
		time.Sleep(s.shutdown.Drain)
	}

	for _, closeIdle := range s.closeIdle {
		if closeIdle != nil {
			closeIdle()
		}
	}

	gracefulCtx, cancel := context.WithTimeout(context.Background(), s.shutdown.GracefulTimeout)
	defer cancel()
	if s.inflight != nil {
		_ = s.inflight.Wait(gracefulCtx)
	}

	err := s.httpServer.Shutdown(gracefulCtx)
	// The listener was already closed above; Shutdown reports that as an
	// error even though the sequence is orderly.
	if err != nil && (errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed)) {
		err = nil
	}
	if gracefulCtx.Err() == nil {
		return err
	}

	if s.shutdown.ForceClose > 0 {
		time.Sleep(s.shutdown.ForceClose)
	}
	_ = s.httpServer.Close()
	if err != nil {
		return err
	}
	return gracefulCtx.Err()
}
