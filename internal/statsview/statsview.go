// Package statsview serves the Go runtime metrics page while the emulator
// runs.
package statsview

import (
	"log"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddr is the listen address used when none is configured
const DefaultAddr = "localhost:12600"

const path = "/debug/statsview"

// Server is a running metrics page
type Server struct {
	addr string
	stop func()
}

// Start launches the metrics server on its own goroutine
func Start(addr string, logger *log.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go mgr.Start()

	if logger != nil {
		logger.Printf("[STATS] Runtime metrics available at http://%s%s", addr, path)
	}
	return &Server{
		addr: addr,
		stop: func() { mgr.Stop() },
	}
}

// URL returns the address of the metrics page
func (s *Server) URL() string {
	return "http://" + s.addr + path
}

// Stop shuts the server down
func (s *Server) Stop() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
