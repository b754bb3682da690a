// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bureau-foundation/wsmaster/lib/netutil"
)

// NormalizeHealthURL returns url with a trailing slash. Agent routers
// answer 404 on the bare context path, so "http://host:1234/api" is
// probed as "http://host:1234/api/".
func NormalizeHealthURL(url string) string {
	if strings.HasSuffix(url, "/") {
		return url
	}
	return url + "/"
}

// HTTPProbe returns a Probe that GETs url and reports healthy on HTTP
// 200. Each request is bounded by timeout, covering connect and
// response headers. A nil client uses http.DefaultClient.
//
// The caller is expected to have normalized url.
func HTTPProbe(client *http.Client, url string, timeout time.Duration) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (bool, error) {
		requestContext, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		request, err := http.NewRequestWithContext(requestContext, http.MethodGet, url, nil)
		if err != nil {
			return false, fmt.Errorf("creating health request: %w", err)
		}

		response, err := client.Do(request)
		if err != nil {
			return false, err
		}
		if response.StatusCode != http.StatusOK {
			body := netutil.ErrorBody(response.Body)
			netutil.DrainAndClose(response.Body)
			return false, fmt.Errorf("health endpoint returned %d: %s", response.StatusCode, body)
		}
		netutil.DrainAndClose(response.Body)
		return true, nil
	}
}
