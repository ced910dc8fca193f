package handler

import (
	"context"
	"net/http"
	"time"

	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/gate"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/gin-gonic/gin"
)

// GateMiddleware применяет решения гейта к группам API
type GateMiddleware struct {
	table        *gate.Table
	awaitTimeout time.Duration
}

func NewGateMiddleware(table *gate.Table, awaitTimeout time.Duration) *GateMiddleware {
	if awaitTimeout <= 0 {
		awaitTimeout = 5 * time.Second
	}
	return &GateMiddleware{
		table:        table,
		awaitTimeout: awaitTimeout,
	}
}

// Guard пускает запрос, только если гейт допускает навигацию на path.
// Suspend ждет загрузку профиля и решает заново.
func (g *GateMiddleware) Guard(path string) gin.HandlerFunc {
	dest := g.table.Lookup(path)

	return func(c *gin.Context) {
		decision := g.decide(c.Request.Context(), currentSession(c), dest)

		switch decision.Outcome {
		case gate.OutcomeAdmit:
			c.Next()
		case gate.OutcomeSuspend:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, entity.ErrorResponse{
				Error:        "Account is still loading",
				Notification: entity.NotifyError("Your account is still loading, please retry"),
			})
		default:
			status := http.StatusForbidden
			if decision.Reason == gate.ReasonUnauthenticated {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, entity.ErrorResponse{
				Error:    string(decision.Reason),
				Redirect: decision.Location,
			})
		}
	}
}

// Evaluate обрабатывает GET /gate/evaluate?path=
func (g *GateMiddleware) Evaluate(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "path is required"})
		return
	}

	dest := g.table.Lookup(path)
	decision := g.decide(c.Request.Context(), currentSession(c), dest)
	c.JSON(http.StatusOK, gin.H{
		"destination": dest,
		"decision":    decision,
	})
}

func (g *GateMiddleware) decide(ctx context.Context, sess *session.Session, dest gate.Destination) gate.Decision {
	decision := g.table.Evaluate(accessState(sess), dest)
	if decision.Outcome == gate.OutcomeSuspend && sess != nil {
		awaitCtx, cancel := context.WithTimeout(ctx, g.awaitTimeout)
		_, _ = sess.Await(awaitCtx)
		cancel()
		decision = g.table.Evaluate(accessState(sess), dest)
	}

	metrics.GateDecisions.WithLabelValues(string(decision.Outcome), string(decision.Reason)).Inc()
	return decision
}

func accessState(sess *session.Session) gate.AccountState {
	if sess == nil {
		return gate.AccountState{}
	}
	return sess.AccessState()
}
