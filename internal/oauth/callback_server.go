package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CallbackPath is where the authorization server redirects the operator.
const CallbackPath = "/oauth-callback"

// fragmentPath receives the fragment the callback page relays back.
const fragmentPath = CallbackPath + "/fragment"

// CallbackServer is a loopback HTTP server standing in for the console's
// callback page. Implicit-grant responses travel in the URL fragment, which
// browsers never send to a server, so the page it serves posts the fragment
// back with a small script.
type CallbackServer struct {
	port     int
	logger   *zap.Logger
	server   *http.Server
	listener net.Listener
	results  chan Response
	errs     chan error
	once     sync.Once
}

// NewCallbackServer prepares a server on 127.0.0.1:port. Port 0 picks a free port.
func NewCallbackServer(port int, logger *zap.Logger) *CallbackServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackServer{
		port:    port,
		logger:  logger,
		results: make(chan Response, 1),
		errs:    make(chan error, 1),
	}
}

// Start begins listening and returns the redirect URI to register with the
// authorization request. The server stops when ctx is done.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("start callback listener on %s: %w", addr, err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handlePage)
	mux.HandleFunc(fragmentPath, s.handleFragment)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errs <- err:
			default:
			}
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.RedirectURI(), nil
}

// RedirectURI is the callback URL of a started server.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.port, CallbackPath)
}

// Wait blocks until a response arrives, the server fails or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context) (Response, error) {
	select {
	case r := <-s.results:
		return r, nil
	case err := <-s.errs:
		return Response{}, fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *CallbackServer) Stop() {
	s.once.Do(func() {
		if s.server == nil {
			return
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(shutCtx) //nolint:errcheck // best-effort shutdown
	})
}

func (s *CallbackServer) handlePage(w http.ResponseWriter, r *http.Request) {
	// Some servers report errors in the query string instead of the fragment.
	if q := r.URL.Query(); q.Get("error") != "" || q.Get("access_token") != "" {
		s.deliver(ParseResponse(q))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackDoneHTML) //nolint:errcheck
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, callbackRelayHTML) //nolint:errcheck
}

func (s *CallbackServer) handleFragment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "malformed fragment", http.StatusBadRequest)
		return
	}
	s.deliver(ParseResponse(values))
	w.WriteHeader(http.StatusNoContent)
}

func (s *CallbackServer) deliver(resp Response) {
	s.logger.Debug("oauth callback received",
		zap.Bool("error", resp.IsError()),
		zap.String("error_code", resp.Error),
	)
	select {
	case s.results <- resp:
	default:
		s.logger.Warn("oauth callback dropped, previous response not consumed")
	}
}

const callbackRelayHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>boruta admin</title>
<style>
body{background:#0a0a10;color:#e4e4ec;font-family:'JetBrains Mono','SF Mono',monospace;
height:100vh;display:flex;align-items:center;justify-content:center;margin:0}
.msg{font-size:14px;color:#4ade80;font-weight:600}
.sub{font-size:12px;color:#505868;margin-top:8px}
</style>
</head>
<body>
<div>
  <div class="msg" id="msg">completing sign in...</div>
  <div class="sub" id="sub"></div>
</div>
<script>
(function(){
  var fragment = window.location.hash.replace(/^#/, '');
  fetch('` + fragmentPath + `', {method: 'POST', body: fragment,
    headers: {'Content-Type': 'application/x-www-form-urlencoded'}})
    .then(function(){
      document.getElementById('msg').textContent = 'authenticated';
      document.getElementById('sub').textContent = 'return to your terminal';
      history.replaceState(null, '', window.location.pathname);
    })
    .catch(function(){
      document.getElementById('msg').textContent = 'could not reach boruta-admin';
    });
})();
</script>
</body>
</html>`

const callbackDoneHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>boruta admin</title></head>
<body style="background:#0a0a10;color:#e4e4ec;font-family:monospace">
<p>response received, return to your terminal</p>
</body>
</html>`
