package services

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rmloveland/synergy/internal/logger"
	"github.com/rmloveland/synergy/pkg/types"
)

// transientStatuses is the set of HTTP statuses considered transient and
// therefore retryable.
var transientStatuses = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
}

// HTTPTransportService performs the external-process HTTP round trip: it
// shells out to a curl-equivalent binary rather than using net/http
// directly, so tests can drive it through the SYNERGY_OFFLINE /
// SYNERGY_CURL_STUB / SYNERGY_CURL_CAPTURE_DIR hooks exactly as a real
// terminal session would.
type HTTPTransportService struct {
	initialized bool
	cfg         *ConfigService
	curlPath    string
}

// NewHTTPTransportService creates a new HTTPTransportService backed by cfg for its tunables.
func NewHTTPTransportService(cfg *ConfigService) *HTTPTransportService {
	return &HTTPTransportService{cfg: cfg, curlPath: "curl"}
}

// Name returns the service name for registration.
func (h *HTTPTransportService) Name() string { return "http_transport" }

// Initialize marks the service ready; the curl binary is looked up on PATH
// each time a request is made.
func (h *HTTPTransportService) Initialize() error {
	h.initialized = true
	return nil
}

// Result is the outcome of a single transport round trip. Final is set when
// Body is already the assistant's reply text rather than a provider's wire
// response — the offline and curl-stub hooks bypass the provider's JSON
// envelope entirely, so callers must not run Body through extractReply.
type Result struct {
	Status int
	Body   string
	Stderr string
	Exit   int
	Final  bool
}

// Post performs a POST with retry/backoff and returns the final result or a
// typed error (*types.TransportError / *types.HTTPError never wraps here —
// callers classify status codes themselves; this method only distinguishes
// subprocess failure from a completed HTTP exchange).
func (h *HTTPTransportService) Post(url string, headers map[string]string, body string) (*Result, error) {
	maxRetries := h.cfg.GetInt("SYNERGY_MAX_RETRIES", 3)

	var lastErr error
	var lastResult *Result

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := h.attempt(url, headers, body)
		if err != nil {
			lastErr = err
			lastResult = nil
			if attempt < maxRetries {
				h.backoff(attempt)
				continue
			}
			return nil, err
		}

		lastResult = result
		lastErr = nil

		if result.Status < 400 || !transientStatuses[result.Status] {
			return result, nil
		}

		logger.Debug("transient HTTP status, retrying", "status", result.Status, "attempt", attempt)
		if attempt < maxRetries {
			h.backoff(attempt)
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResult, nil
}

func (h *HTTPTransportService) backoff(attempt int) {
	delay := time.Duration(math.Pow(2, float64(attempt))) * 200 * time.Millisecond
	time.Sleep(delay)
}

// attempt performs exactly one HTTP round trip, honoring the offline and
// stub test hooks before ever touching a subprocess.
func (h *HTTPTransportService) attempt(url string, headers map[string]string, body string) (*Result, error) {
	h.maybeCapture(url, headers, body)

	if h.cfg.GetBool("SYNERGY_OFFLINE") {
		reply := h.cfg.Get("SYNERGY_OFFLINE_RESPONSE")
		return &Result{Status: 200, Body: reply, Final: true}, nil
	}

	if stub := h.cfg.Get("SYNERGY_CURL_STUB"); stub != "" {
		data, err := os.ReadFile(stub)
		if err != nil {
			return nil, fmt.Errorf("failed to read curl stub %q: %w", stub, err)
		}
		return &Result{Status: 200, Body: string(data), Final: true}, nil
	}

	return h.invokeCurl(url, headers, body)
}

// invokeCurl writes the request body to a temp file and shells out to curl
// using --data-binary @<file>, --output <out>, --stderr <err>, with the
// HTTP status echoed to stdout via -w.
func (h *HTTPTransportService) invokeCurl(url string, headers map[string]string, body string) (*Result, error) {
	tmpDir, err := os.MkdirTemp("", "synergy-http-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	bodyFile := filepath.Join(tmpDir, "body")
	outFile := filepath.Join(tmpDir, "out")
	errFile := filepath.Join(tmpDir, "err")

	if err := os.WriteFile(bodyFile, []byte(body), 0600); err != nil {
		return nil, fmt.Errorf("failed to write request body: %w", err)
	}

	args := []string{"-sS", "-X", "POST"}
	for k, v := range headers {
		args = append(args, "-H", fmt.Sprintf("%s: %s", k, v))
	}
	args = append(args,
		"--data-binary", "@"+bodyFile,
		"--output", outFile,
		"--stderr", errFile,
		"-w", "%{http_code}",
		"--max-time", strconv.Itoa(int(h.cfg.RequestTimeout().Seconds())),
		url,
	)

	cmd := exec.Command(h.curlPath, args...)
	stdout, runErr := cmd.Output()

	stderrBytes, _ := os.ReadFile(errFile)
	stderr := string(stderrBytes)

	if runErr != nil {
		exitCode := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &types.TransportError{ExitCode: exitCode, Stderr: strings.TrimSpace(stderr)}
	}

	status, err := strconv.Atoi(strings.TrimSpace(string(stdout)))
	if err != nil {
		return nil, &types.TransportError{ExitCode: 0, Stderr: "could not parse HTTP status from curl output: " + string(stdout)}
	}

	respBody, err := os.ReadFile(outFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Result{Status: status, Body: string(respBody), Stderr: stderr, Exit: 0}, nil
}

// maybeCapture writes the outbound request to SYNERGY_CURL_CAPTURE_DIR when
// set, for test harnesses that want to assert on exact request shape.
func (h *HTTPTransportService) maybeCapture(url string, headers map[string]string, body string) {
	dir := h.cfg.Get("SYNERGY_CURL_CAPTURE_DIR")
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Debug("failed to create curl capture dir", "error", err)
		return
	}

	stamp := time.Now().UnixNano()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var headerLines strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&headerLines, "%s: %s\n", k, headers[k])
	}

	_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d-url.txt", stamp)), []byte(url), 0600)
	_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d-headers.txt", stamp)), []byte(headerLines.String()), 0600)
	_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d-body.txt", stamp)), []byte(body), 0600)
}
