// internal/app/features/organizations/join.go
package organizations

import (
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/formutil"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleJoin joins the caller to the organization with the given code, or
// repairs a half-written membership. Repeating the call is harmless.
// POST /organizations/join {join_code} -> {result, repaired, organization}
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r)

	// Limit per user so that guessing codes is slow.
	if ok, wait := h.JoinLimit.Allow(uid.Hex()); !ok {
		h.Log.Info("join rate limited", zap.String("user_id", uid.Hex()))
		w.Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(wait)))
		errorsfeature.TooManyRequests(w, r)
		return
	}

	var in joinInput
	if msg, ok := formutil.Decode(w, r, &in); !ok {
		errorsfeature.BadRequest(w, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "join organization")
	defer cancel()

	res, err := h.Coord.Join(ctx, uid, in.JoinCode)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, joinResponse{
		Result:       res.Outcome,
		Repaired:     res.Repaired,
		Organization: res.Organization,
	})
}
