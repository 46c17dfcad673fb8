package opener

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"debtster_routes/internal/ports"

	"github.com/sirupsen/logrus"
)

type HTTPOpener struct {
	Client *http.Client
	Log    *logrus.Logger
}

func NewHTTPOpener(cli *http.Client, log *logrus.Logger) *HTTPOpener {
	if cli == nil {
		cli = &http.Client{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPOpener{Client: cli, Log: log}
}

func (h *HTTPOpener) Open(ctx context.Context, url string) (io.ReadCloser, ports.Meta, error) {
	log := h.Log.WithField("url", url)
	log.Debug("[OPENER][HTTP][START]")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("%w: %v", ports.ErrInvalidInput, err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		log.Warnf("[OPENER][HTTP][ERR] do request: %v", err)
		return nil, ports.Meta{}, fmt.Errorf("%w: fetch %s: %v", ports.ErrStoreUnavailable, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		log.WithFields(logrus.Fields{
			"status":       resp.StatusCode,
			"content_type": resp.Header.Get("Content-Type"),
		}).Warn("[OPENER][HTTP][ERR]")
		return nil, ports.Meta{}, statusError(resp.StatusCode)
	}
	size := resp.ContentLength
	if size < 0 {
		size = -1
	}
	ct := resp.Header.Get("Content-Type")
	log.WithFields(logrus.Fields{"content_type": ct, "size": size}).Debug("[OPENER][HTTP][OK]")
	return resp.Body, ports.Meta{
		Source:      "https",
		ContentType: ct,
		Size:        size,
	}, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: http status %d", ports.ErrNotFound, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: http status %d", ports.ErrStoreUnavailable, code)
	default:
		return fmt.Errorf("http status %d", code)
	}
}
