package service

import (
	"context"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/pkg/metrics"
)

type outcomeKind int

const (
	outcomeNotApplicable outcomeKind = iota
	outcomeResolved
	outcomeFailed
)

// outcome is the tagged result of one resolution strategy.
type outcome struct {
	kind   outcomeKind
	user   *domain.UserRecord
	reason error
}

func resolved(u *domain.UserRecord) outcome { return outcome{kind: outcomeResolved, user: u} }
func notApplicable() outcome                { return outcome{kind: outcomeNotApplicable} }
func failed(err error) outcome              { return outcome{kind: outcomeFailed, reason: err} }

// strategy is one named source of the current user.
type strategy struct {
	name string
	run  func(ctx context.Context) outcome
}

const (
	strategyRemoteSession   = "remote-session"
	strategyLocalCache      = "local-cache"
	strategyCredentialStore = "credential-store"
	strategyDemoTable       = "demo-table"
	sourceNone              = "none"
)

// runChain tries each strategy in order and stops at the first one that
// resolves a user. It returns nil and sourceNone when none does.
func (r *SessionResolver) runChain(ctx context.Context, trigger string, chain []strategy) (*domain.UserRecord, string) {
	for _, s := range chain {
		o := s.run(ctx)
		switch o.kind {
		case outcomeResolved:
			r.log.Debug().Str("trigger", trigger).Str("strategy", s.name).Str("user_id", o.user.ID).Msg("user resolved")
			return o.user, s.name
		case outcomeFailed:
			metrics.StrategyFailuresTotal.WithLabelValues(s.name).Inc()
			r.log.Warn().Err(o.reason).Str("trigger", trigger).Str("strategy", s.name).Msg("resolution strategy failed, falling through")
		default:
			r.log.Debug().Str("trigger", trigger).Str("strategy", s.name).Msg("resolution strategy not applicable")
		}
	}
	return nil, sourceNone
}
