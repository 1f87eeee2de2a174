// Package api implements the Gemini web session client: token harvesting,
// request construction, the streaming response decoder, and the
// orchestration that ties them together.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	log "github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/browser"
	"github.com/tmarquez/geminiflow/internal/config"
	apierrors "github.com/tmarquez/geminiflow/internal/errors"
	"github.com/tmarquez/geminiflow/internal/models"
)

// ImageResult is an image notification emitted at the end of a turn.
// Fields are populated in preference order: a saved path when the image was
// persisted, a remote URL when it was not, or the raw candidate when only a
// placeholder was ever seen.
type ImageResult struct {
	SavedPath string
	URL       string
	Candidate string
}

// Unit is one element of the output stream: a text delta or an image
// notification.
type Unit struct {
	Text  string
	Image *ImageResult
}

// Stream is a live, single-use sequence of output units for one chat turn.
type Stream struct {
	units  chan Unit
	err    error
	cancel context.CancelFunc
}

// Recv returns the next unit. ok is false once the stream is finished, after
// which Err reports how it ended.
func (s *Stream) Recv() (Unit, bool) {
	u, ok := <-s.units
	return u, ok
}

// Err returns the terminal error of the stream. Only valid after Recv has
// returned ok=false.
func (s *Stream) Err() error {
	return s.err
}

// Close abandons the stream; in-flight network reads are dropped promptly.
func (s *Stream) Close() {
	s.cancel()
}

// NewUnitStream builds a finished Stream that replays the given units and
// ends with err. Useful for callers that sit in front of the client, such as
// the HTTP layer, when no live turn is involved.
func NewUnitStream(units []Unit, err error) *Stream {
	s := &Stream{
		units:  make(chan Unit, len(units)),
		err:    err,
		cancel: func() {},
	}
	for _, u := range units {
		s.units <- u
	}
	close(s.units)
	return s
}

// GeminiClient orchestrates one chat turn: load cookies, fetch tokens,
// upload images, POST the request, and decode the response stream. Cookies
// and tokens are loaded fresh per call, so concurrent calls are safe.
type GeminiClient struct {
	cookieDir   string
	model       models.Model
	language    string
	proxy       string
	imageDir    string
	autoRefresh bool
	saveImages  bool
	debug       bool
	browserType browser.SupportedBrowser

	// Injection points for tests.
	newTransport func() (tls_client.HttpClient, error)
	refreshFunc  func(ctx context.Context) error
}

// ClientOption is a function that configures the client
type ClientOption func(*GeminiClient)

// WithModel sets the model variant for the client
func WithModel(model models.Model) ClientOption {
	return func(c *GeminiClient) { c.model = model }
}

// WithLanguage sets the UI language sent with requests
func WithLanguage(language string) ClientOption {
	return func(c *GeminiClient) { c.language = language }
}

// WithProxy routes all connections through the given proxy URL
func WithProxy(proxy string) ClientOption {
	return func(c *GeminiClient) { c.proxy = proxy }
}

// WithAutoRefresh controls the one-shot browser cookie refresh on failure
func WithAutoRefresh(enabled bool) ClientOption {
	return func(c *GeminiClient) { c.autoRefresh = enabled }
}

// WithBrowser selects which browser the refresh collaborator extracts from
func WithBrowser(b browser.SupportedBrowser) ClientOption {
	return func(c *GeminiClient) { c.browserType = b }
}

// WithSaveImages controls whether generated images are persisted to disk
func WithSaveImages(enabled bool) ClientOption {
	return func(c *GeminiClient) { c.saveImages = enabled }
}

// WithImageDir sets the directory generated images are saved into
func WithImageDir(dir string) ClientOption {
	return func(c *GeminiClient) { c.imageDir = dir }
}

// WithDebug enables bounded raw-payload previews in logs
func WithDebug(enabled bool) ClientOption {
	return func(c *GeminiClient) { c.debug = enabled }
}

// NewClient creates a GeminiClient reading cookies from cookieDir.
func NewClient(cookieDir string, opts ...ClientOption) *GeminiClient {
	c := &GeminiClient{
		cookieDir:   cookieDir,
		model:       models.DefaultModel,
		language:    models.DefaultLanguage,
		autoRefresh: true,
		saveImages:  true,
		browserType: browser.BrowserAuto,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.newTransport == nil {
		c.newTransport = c.defaultTransport
	}
	if c.refreshFunc == nil {
		c.refreshFunc = func(ctx context.Context) error {
			return browser.RefreshCookieDir(ctx, c.browserType, c.cookieDir)
		}
	}
	return c
}

// defaultTransport builds a fresh browser-emulating HTTP client. Token
// fetch, the streaming POST, and image download each get their own client;
// connections are never shared across phases.
func (c *GeminiClient) defaultTransport() (tls_client.HttpClient, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(300),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if c.proxy != "" {
		if err := httpClient.SetProxy(c.proxy); err != nil {
			return nil, fmt.Errorf("failed to set proxy: %w", err)
		}
	}
	return httpClient, nil
}

// StreamChat runs one chat turn and returns a live stream of output units.
// A failure of the whole cycle before any unit reaches the consumer triggers
// one forced cookie refresh and a full re-run with fresh tokens; upload
// failures and failures after first delivery propagate immediately.
func (c *GeminiClient) StreamChat(ctx context.Context, prompt string, images []ImageInput) (*Stream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apierrors.NewRequestError("prompt cannot be empty")
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		units:  make(chan Unit),
		cancel: cancel,
	}

	emit := func(u Unit) bool {
		select {
		case s.units <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer cancel()
		defer close(s.units)
		s.err = c.run(ctx, prompt, images, emit)
	}()

	return s, nil
}

// run is the explicit two-attempt driver: attempt, classify the failure,
// refresh at most once, attempt again, propagate. The retry rebuilds
// everything because an expired session invalidates every downstream value;
// stale tokens are never reused across the boundary.
func (c *GeminiClient) run(ctx context.Context, prompt string, images []ImageInput, emit func(Unit) bool) error {
	var delivered bool

	err := c.attempt(ctx, prompt, images, emit, &delivered)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if !c.autoRefresh || delivered || !apierrors.Retryable(err) {
		return err
	}

	log.Debugf("chat cycle failed (%v); refreshing cookies and retrying once", err)
	if refreshErr := c.refreshFunc(ctx); refreshErr != nil {
		return apierrors.NewAuthError(fmt.Sprintf("cookie refresh failed: %v (after: %v)", refreshErr, err))
	}

	return c.attempt(ctx, prompt, images, emit, &delivered)
}

// attempt runs the full pipeline once: LoadCookies, FetchTokens,
// UploadImages, BuildRequest, StreamResponse.
func (c *GeminiClient) attempt(ctx context.Context, prompt string, images []ImageInput, emit func(Unit) bool, delivered *bool) error {
	cookies, err := config.LoadCookies(c.cookieDir)
	if err != nil {
		if apierrors.IsAuthError(err) {
			return err
		}
		return apierrors.NewAuthError(err.Error())
	}

	tokenClient, err := c.newTransport()
	if err != nil {
		return apierrors.NewTokenFetchError(err.Error())
	}
	tokens, err := FetchTokens(tokenClient, cookies, c.debug)
	if err != nil {
		return err
	}

	var uploads []UploadRef
	if len(images) > 0 {
		uploadClient, err := c.newTransport()
		if err != nil {
			return apierrors.NewUploadError(err.Error(), "")
		}
		uploaded, err := UploadImages(uploadClient, images)
		if err != nil {
			return err
		}
		for _, u := range uploaded {
			uploads = append(uploads, UploadRef{Ref: u.Ref, Name: u.Name})
		}
	}

	req := &ChatRequest{
		Prompt:   prompt,
		Language: c.language,
		Tokens:   tokens,
		Model:    c.model,
		Uploads:  uploads,
	}

	return c.streamResponse(ctx, cookies, req, emit, delivered)
}

// outputPrefix builds the stable naming scheme for saved images.
func (c *GeminiClient) outputPrefix() string {
	return fmt.Sprintf("gemini_%s_%d_1", c.model.Name, time.Now().Unix())
}

// finishImages emits the image notification for an image-model turn: the
// last-seen output candidate (saved if configured, degrading to the URL), or
// the first-seen placeholder when no real output appeared.
func (c *GeminiClient) finishImages(cookies config.Cookies, tracker *candidateTracker, emit func(Unit) bool, delivered *bool) {
	if tracker.final != "" {
		result := &ImageResult{URL: tracker.final}
		if c.saveImages {
			// The streaming connection is closed by now; downloading uses a
			// fresh one.
			if downloadClient, err := c.newTransport(); err == nil {
				result.SavedPath = SaveCandidate(downloadClient, cookies, tracker.final, SaveOptions{
					Directory: c.imageDir,
					Prefix:    c.outputPrefix(),
				})
			}
		}
		if emit(Unit{Image: result}) {
			*delivered = true
		}
		return
	}

	if tracker.fallback != "" {
		if emit(Unit{Image: &ImageResult{Candidate: tracker.fallback}}) {
			*delivered = true
		}
	}
}
