package main

import (
	"net/http"
	"strings"

	"github.com/officetracker/oit/internal/api"
	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/config"
	"github.com/officetracker/oit/internal/notify"
	"github.com/officetracker/oit/internal/session"
	"github.com/officetracker/oit/internal/tracker"
)

// app bundles the client stack one command invocation works with.
type app struct {
	client  *api.Client
	store   *cache.Store
	tracker *tracker.Tracker
}

func newApp() (*app, error) {
	opts := []api.Option{
		api.WithTimeout(config.GetDuration(config.KeyAPITimeout)),
		api.WithCSRF(config.GetString(config.KeyCSRFCookie), config.GetString(config.KeyCSRFHeader)),
		api.WithUserAgent("oit/" + Version),
	}
	if cookie := config.GetString(config.KeySessionCookie); cookie != "" {
		opts = append(opts, api.WithSessionCookie(config.GetString(config.KeySessionCookieName), cookie))
	}
	client, err := api.NewClient(config.GetString(config.KeyAPIURL), opts...)
	if err != nil {
		return nil, err
	}

	store := cache.New(cache.WithStaleTime(config.GetDuration(config.KeyCacheStaleTime)))
	tr := tracker.New(client, store, tracker.WithBackgroundErrorHandler(func(err error) {
		WarnError("refreshing after a failed change: %v", err)
	}))
	return &app{client: client, store: store, tracker: tr}, nil
}

// close waits for background refetches a failed mutation started.
func (a *app) close() {
	a.tracker.Wait()
}

// pushConfig derives the push channel settings: push.url when set,
// otherwise the backend URL's /ws endpoint, authenticated with the
// client's cookies.
func (a *app) pushConfig() notify.Config {
	u := config.GetString(config.KeyPushURL)
	if u == "" {
		u = notify.URLFromBase(a.client.BaseURL())
	}
	h := http.Header{}
	var parts []string
	for _, c := range a.client.Cookies() {
		parts = append(parts, c.Name+"="+c.Value)
	}
	if len(parts) > 0 {
		h.Set("Cookie", strings.Join(parts, "; "))
	}
	return notify.Config{
		URL:            u,
		ReconnectDelay: config.GetDuration(config.KeyPushReconnect),
		Headers:        h,
	}
}

// newSession wires the push subscription into the tracker's cache.
func (a *app) newSession(opts ...notify.Option) (*session.Manager, *notify.Service) {
	svc := notify.New(a.pushConfig(), a.tracker, opts...)
	return session.NewManager(a.client, svc, a.store), svc
}
