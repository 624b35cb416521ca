package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/metrics"
	"github.com/dmitrijs2005/ascgate/internal/netx"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// PartError reports one failed part transfer.
type PartError struct {
	Index  int
	Total  int
	Offset int64
	Length int64
	// Host of the destination; the pre-signed query is never printed.
	Host string
	Err  error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("part %d/%d (offset %d, length %d) to %s: %v", e.Index+1, e.Total, e.Offset, e.Length, e.Host, e.Err)
}

func (e *PartError) Unwrap() error { return e.Err }

// Is classifies the part failure: a destination answering non-2xx is a
// domain error, anything else a transport error.
func (e *PartError) Is(target error) bool {
	var status *netx.StatusError
	switch target {
	case common.ErrDomain:
		return errors.As(e.Err, &status)
	case common.ErrTransport:
		return !errors.As(e.Err, &status)
	}
	return false
}

// sendParts runs every operation of s and joins the failures. Parts do not
// cancel each other, so each failure is reported on its own.
func (p *Pipeline) sendParts(ctx context.Context, s *Session, src io.ReaderAt) error {
	errs := make([]error, len(s.Operations))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, op := range s.Operations {
		g.Go(func() error {
			if err := p.sendPart(ctx, s, op, src); err != nil {
				errs[i] = &PartError{
					Index:  i,
					Total:  len(s.Operations),
					Offset: op.Offset,
					Length: op.Length,
					Host:   hostOf(op.URL),
					Err:    err,
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (p *Pipeline) sendPart(ctx context.Context, s *Session, op Operation, src io.ReaderAt) error {
	offset, length := op.Offset, op.Length
	if length == 0 {
		offset, length = 0, s.FileSize
	}

	header := make(http.Header, len(op.Headers))
	for _, h := range op.Headers {
		header.Add(h.Name, h.Value)
	}

	send := func(ctx context.Context) error {
		body, err := openSection(ctx, src, offset, length)
		if err != nil {
			return err
		}
		defer body.Close()

		return netx.Send(ctx, p.http, netx.Transfer{
			Method: op.Method,
			URL:    op.URL,
			Header: header,
			Body:   body,
			Length: length,
		})
	}

	if p.retries == 0 {
		err := send(ctx)
		observePart(err)
		return err
	}

	backoff := retry.WithMaxRetries(uint64(p.retries), retry.WithJitterPercent(10, retry.NewExponential(p.retryBase)))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := send(ctx)
		if err == nil {
			observePart(nil)
			return nil
		}
		if !retryable(err) {
			observePart(err)
			return err
		}
		metrics.UploadParts.WithLabelValues("retried").Inc()
		p.logger.Debug(ctx, "part failed, retrying", "asset_id", s.AssetID, "offset", offset, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil && retryable(err) {
		// retries exhausted
		observePart(err)
	}
	return err
}

// sectionOpener is implemented by sources that stream a byte range in one
// read of their backing store, such as S3 objects.
type sectionOpener interface {
	Section(ctx context.Context, off, n int64) (io.ReadCloser, error)
}

// openSection opens the part's bytes, once per attempt.
func openSection(ctx context.Context, src io.ReaderAt, off, n int64) (io.ReadCloser, error) {
	if so, ok := src.(sectionOpener); ok {
		return so.Section(ctx, off, n)
	}
	return io.NopCloser(io.NewSectionReader(src, off, n)), nil
}

func observePart(err error) {
	if err != nil {
		metrics.UploadParts.WithLabelValues("failed").Inc()
		return
	}
	metrics.UploadParts.WithLabelValues("ok").Inc()
}

// retryable reports whether a part error may succeed on a second attempt:
// transport failures, 408, 429 and 5xx answers.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *netx.StatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusRequestTimeout ||
			status.StatusCode == http.StatusTooManyRequests ||
			status.StatusCode >= 500
	}
	return true
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "destination"
	}
	return u.Host
}
