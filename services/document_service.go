package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/shared"
)

// DocumentService retrieves the layout-preserving plain-text rendering of a
// routine document. Plain documents are fetched over HTTP through the shared
// retrying client; documents published behind a viewer that renders content
// with JavaScript are read through a headless browser instead, since their
// HTTP body carries no usable text.
type DocumentService struct {
	config             shared.ServiceConfig
	clientFactory      *shared.HTTPClientFactory
	client             *http.Client
	rateLimiter        *shared.HTTPRequestRateLimiter
	httpMetrics        *shared.HTTPMetrics
	browserRenderHosts []string
	logger             *logrus.Logger
}

// NewDocumentService creates a document service. browserRenderHosts lists the
// hosts whose documents must go through headless rendering; a host matches
// exactly or as a parent domain suffix.
func NewDocumentService(browserRenderHosts []string) *DocumentService {
	config := shared.NewDocumentFetchConfig()
	clientFactory := shared.NewHTTPClientFactory(config.HTTPRequestTimeout)

	return &DocumentService{
		config:             config,
		clientFactory:      clientFactory,
		client:             clientFactory.CreateOptimizedHTTPClient(config.HTTPRequestTimeout),
		rateLimiter:        shared.NewHTTPRequestRateLimiter(config.RequestRateLimit),
		httpMetrics:        shared.NewHTTPMetrics(),
		browserRenderHosts: browserRenderHosts,
		logger:             logrus.New(),
	}
}

// HTTPMetrics exposes the fetch counters for reporting endpoints.
func (s *DocumentService) HTTPMetrics() *shared.HTTPMetrics {
	return s.httpMetrics
}

// FetchDocumentText returns the plain-text rendering of the document at
// sourceURL. Network failures surface as source fetch errors; a rendering
// step that fails or produces empty text surfaces as an extraction error.
// Neither writes anything anywhere, so a failed fetch leaves caches untouched.
func (s *DocumentService) FetchDocumentText(ctx context.Context, sourceURL string) (string, error) {
	parsedURL, err := url.Parse(sourceURL)
	if err != nil || parsedURL.Host == "" {
		return "", shared.NewSourceFetchError(sourceURL, "DocumentService", "FetchDocumentText",
			fmt.Errorf("invalid source URL: %w", err))
	}

	if s.requiresBrowserRendering(parsedURL.Host) {
		return s.fetchRenderedText(ctx, sourceURL)
	}
	return s.fetchPlainText(ctx, sourceURL)
}

// requiresBrowserRendering reports whether the host is configured for
// headless rendering, matching exactly or by parent domain.
func (s *DocumentService) requiresBrowserRendering(host string) bool {
	host = strings.ToLower(host)
	for _, renderHost := range s.browserRenderHosts {
		renderHost = strings.ToLower(renderHost)
		if host == renderHost || strings.HasSuffix(host, "."+renderHost) {
			return true
		}
	}
	return false
}

// fetchPlainText retrieves the document body over HTTP with browser-like
// headers, bounded retries and per-host politeness delay.
func (s *DocumentService) fetchPlainText(ctx context.Context, sourceURL string) (string, error) {
	startTime := time.Now()

	if err := s.rateLimiter.EnforceRateLimitContext(ctx); err != nil {
		return "", shared.NewSourceFetchError(sourceURL, "DocumentService", "fetchPlainText", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", shared.NewSourceFetchError(sourceURL, "DocumentService", "fetchPlainText", err)
	}
	shared.SetBrowserLikeHeaders(request, "text/plain,text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	response, err := shared.ExecuteHTTPRequestWithRetry(ctx, s.client, request, s.config.MaxRetryAttempts)
	if err != nil {
		s.httpMetrics.RecordHTTPRequest(false, 0, time.Since(startTime), "network", ctx.Err() != nil)
		return "", shared.NewSourceFetchError(sourceURL, "DocumentService", "fetchPlainText", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		s.httpMetrics.RecordHTTPRequest(false, response.StatusCode, time.Since(startTime), "body_read", false)
		return "", shared.NewSourceFetchError(sourceURL, "DocumentService", "fetchPlainText", err)
	}

	s.httpMetrics.RecordHTTPRequest(true, response.StatusCode, time.Since(startTime), "", false)

	documentText := string(body)
	if strings.TrimSpace(documentText) == "" {
		return "", shared.NewExtractionError(sourceURL, "DocumentService", "fetchPlainText",
			fmt.Errorf("document body is empty"))
	}

	s.logger.WithFields(logrus.Fields{
		"url":        sourceURL,
		"bytes":      len(body),
		"fetch_time": time.Since(startTime),
	}).Info("Fetched routine document over HTTP")

	return documentText, nil
}

// fetchRenderedText loads the document in a headless browser and reads the
// rendered body text, which preserves the column layout the parser depends on.
func (s *DocumentService) fetchRenderedText(ctx context.Context, sourceURL string) (string, error) {
	startTime := time.Now()

	if err := s.rateLimiter.EnforceRateLimitContext(ctx); err != nil {
		return "", shared.NewSourceFetchError(sourceURL, "DocumentService", "fetchRenderedText", err)
	}

	// Minimal Chrome options for fast text extraction
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.config.HTTPRequestTimeout)
	defer cancelTimeout()

	var documentText string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(sourceURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(3*time.Second), // Viewer needs time to lay out the document
		chromedp.Evaluate(`document.body.innerText`, &documentText),
	)
	if err != nil {
		s.logger.WithError(err).WithField("url", sourceURL).Error("Headless rendering failed")
		return "", shared.NewExtractionError(sourceURL, "DocumentService", "fetchRenderedText",
			fmt.Errorf("chromedp execution failed: %w", err))
	}

	if strings.TrimSpace(documentText) == "" {
		return "", shared.NewExtractionError(sourceURL, "DocumentService", "fetchRenderedText",
			fmt.Errorf("rendered document text is empty"))
	}

	s.logger.WithFields(logrus.Fields{
		"url":         sourceURL,
		"text_length": len(documentText),
		"render_time": time.Since(startTime),
	}).Info("Extracted rendered document text")

	return documentText, nil
}
