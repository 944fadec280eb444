// Package metrics registers the ledger's Prometheus collectors. Counters
// are registered with promauto on the default registry and exposed by the
// server's /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupsCreated counts groups created since process start.
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajoledger_groups_created_total",
		Help: "Number of groups created.",
	})

	// CyclesOpened counts cycle-open operations that inserted at least one
	// contribution row. Idempotent retries that insert nothing are not
	// counted.
	CyclesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajoledger_cycles_opened_total",
		Help: "Number of contribution cycles opened.",
	})

	// ContributionsPaid counts contributions marked paid.
	ContributionsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajoledger_contributions_paid_total",
		Help: "Number of contributions marked paid.",
	})

	// ContributionsOverdue counts contributions swept into overdue.
	ContributionsOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajoledger_contributions_overdue_total",
		Help: "Number of contributions marked overdue.",
	})

	// DistributionsExecuted counts completed payouts.
	DistributionsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajoledger_distributions_executed_total",
		Help: "Number of distributions executed.",
	})

	// DistributionsRejected counts Execute calls rejected by eligibility or
	// duplicate-payout checks, labeled by reason.
	DistributionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ajoledger_distributions_rejected_total",
		Help: "Number of distribution executions rejected.",
	}, []string{"reason"})
)
