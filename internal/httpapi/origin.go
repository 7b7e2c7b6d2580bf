// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// originResolver decides which address a request came from.
type originResolver struct {
	proxies []glob.Glob
}

func newOriginResolver(patterns []string) (*originResolver, error) {
	o := &originResolver{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("TRUSTED_PROXY_INVALID").With("pattern", p).Wrap(err)
		}
		o.proxies = append(o.proxies, g)
	}
	return o, nil
}

// resolve returns the peer IP, or the first X-Forwarded-For entry when the
// peer is a trusted proxy.
func (o *originResolver) resolve(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	if !o.trusted(peer) {
		return peer
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return peer
}

func (o *originResolver) trusted(peer string) bool {
	for _, g := range o.proxies {
		if g.Match(peer) {
			return true
		}
	}
	return false
}
