package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/jwtx"
)

// fetchTimeout bounds each JWKS round trip.
const fetchTimeout = 10 * time.Second

// KeyRefresher keeps the local key set in sync with the authorization
// server's published JWKS. Until the first fetch succeeds the guard falls
// back to remote verification, so startup never blocks on the server
// being up.
type KeyRefresher struct {
	sdk      *authsdk.SDKClient
	keys     *jwtx.KeySet
	interval time.Duration
	logger   *slog.Logger

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewKeyRefresher(sdk *authsdk.SDKClient, keys *jwtx.KeySet, interval time.Duration, logger *slog.Logger) *KeyRefresher {
	return &KeyRefresher{
		sdk:      sdk,
		keys:     keys,
		interval: interval,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the refresh loop with an immediate first fetch.
func (kr *KeyRefresher) Start() {
	go kr.loop()
}

// Kick requests an out-of-band refresh. The guard calls this when a token
// arrives signed with a kid the key set has never seen, which usually
// means the server rotated its keys.
func (kr *KeyRefresher) Kick() {
	select {
	case kr.kick <- struct{}{}:
	default:
	}
}

// Stop terminates the refresh loop and waits for it to exit.
func (kr *KeyRefresher) Stop() {
	close(kr.stop)
	<-kr.done
}

func (kr *KeyRefresher) loop() {
	defer close(kr.done)

	kr.refresh()

	ticker := time.NewTicker(kr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			kr.refresh()
		case <-kr.kick:
			kr.refresh()
		case <-kr.stop:
			return
		}
	}
}

func (kr *KeyRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	jwks, err := kr.sdk.GetJWKS(ctx)
	if err != nil {
		kr.logger.Warn("JWKS fetch failed", "error", err.Error())
		return
	}

	if err := kr.keys.ResetFromJWKS(*jwks); err != nil {
		kr.logger.Error("JWKS contained an unusable key", "error", err.Error())
		return
	}

	kr.logger.Debug("key set refreshed", "keys", len(jwks.Keys))
}
