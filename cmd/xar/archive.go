package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/meigma/xar"
	xarhttp "github.com/meigma/xar/http"
	xars3 "github.com/meigma/xar/s3"
)

// openArchive opens location by scheme: http(s) and s3 URLs use range
// sources, anything else is a local path. The returned close function
// releases the underlying source.
func (c *cli) openArchive(ctx context.Context, location string) (*xar.Archive, func() error, error) {
	opts := []xar.Option{xar.WithLogger(c.logger)}
	if c.v.GetBool(flagVerify) {
		opts = append(opts, xar.WithVerifyTOC())
	}
	noop := func() error { return nil }

	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		src, err := xarhttp.NewSource(location, xarhttp.WithContext(ctx), xarhttp.WithConditionalHeaders())
		if err != nil {
			return nil, nil, err
		}
		c.logger.Debug("opened http source", "url", src.URL(), "size", src.Size())
		a, err := xar.Open(src, opts...)
		return a, noop, err

	case strings.HasPrefix(location, "s3://"):
		var s3opts []xars3.Option
		if region := c.v.GetString(flagS3Region); region != "" {
			s3opts = append(s3opts, xars3.WithRegion(region))
		}
		if endpoint := c.v.GetString(flagS3Endpoint); endpoint != "" {
			s3opts = append(s3opts, xars3.WithEndpoint(endpoint))
		}
		if c.v.GetBool(flagS3Path) {
			s3opts = append(s3opts, xars3.WithPathStyle(true))
		}
		src, err := xars3.NewSourceFromURL(ctx, location, s3opts...)
		if err != nil {
			return nil, nil, err
		}
		c.logger.Debug("opened s3 source", "url", location, "size", src.Size())
		a, err := xar.Open(src, opts...)
		return a, noop, err

	default:
		af, err := xar.OpenFile(location, opts...)
		if err != nil {
			return nil, nil, err
		}
		return af.Archive, af.Close, nil
	}
}

// withArchive opens location, runs fn and closes the source.
func (c *cli) withArchive(ctx context.Context, location string, fn func(*xar.Archive) error) (err error) {
	a, closeFn, err := c.openArchive(ctx, location)
	if err != nil {
		return fmt.Errorf("open %s: %w", location, err)
	}
	defer func() {
		if cerr := closeFn(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(a)
}
