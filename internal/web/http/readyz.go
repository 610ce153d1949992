package http

import (
	"net/http"
	"time"

	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/httpx"
	"github.com/mediplan/mediplan/pkg/jwtx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe reporting whether the gateway can verify tokens locally.
//	@Description	Returns 503 until the first JWKS fetch from the authorization server lands.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.ReadinessResponse
//	@Failure		503	{object}	authsdk.ReadinessResponse
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"jwks": "ok"}
		status := "ok"
		code := http.StatusOK

		if !keys.IsReady() {
			checks["jwks"] = "no keys loaded"
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, authsdk.ReadinessResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
