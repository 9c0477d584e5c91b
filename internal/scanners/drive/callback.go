package drive

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// callbackServer receives the OAuth redirect on localhost during the
// interactive flow.
type callbackServer struct {
	port     int
	state    string
	codeChan chan string
	errChan  chan error
	server   *http.Server
	listener net.Listener
}

func newCallbackServer(port int) *callbackServer {
	return &callbackServer{
		port:     port,
		state:    randomState(),
		codeChan: make(chan string, 1),
		errChan:  make(chan error, 1),
	}
}

// Start listens on 127.0.0.1. Port 0 picks a free port.
func (s *callbackServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()
	return nil
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		s.errChan <- fmt.Errorf("oauth error: %s (%s)", errParam, q.Get("error_description"))
		fmt.Fprint(w, "Authorization failed. You can close this window.")
		return
	}
	if q.Get("state") != s.state {
		s.errChan <- fmt.Errorf("state mismatch in oauth callback")
		fmt.Fprint(w, "Authorization failed: invalid state. You can close this window.")
		return
	}
	code := q.Get("code")
	if code == "" {
		s.errChan <- fmt.Errorf("no authorization code in callback")
		fmt.Fprint(w, "Authorization failed: no code. You can close this window.")
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}
	fmt.Fprint(w, "Authorization successful. You can close this window and return to the terminal.")
}

// WaitForCode blocks until the code arrives, the flow errors, the
// timeout elapses, or ctx is cancelled.
func (s *callbackServer) WaitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out waiting for authorization callback")
	}
}

func (s *callbackServer) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

// RedirectURI is the localhost redirect registered with the provider.
func (s *callbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", s.port)
}

func randomState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
