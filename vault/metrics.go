package vault

import (
	"github.com/spacemeshos/go-vault/metrics"
)

const subsystem = "registry"

var (
	operations = metrics.NewCounter(
		"operations_total",
		subsystem,
		"Vault operations by result",
		[]string{"operation", "result"},
	)
	released = metrics.NewCounter(
		"released_total",
		subsystem,
		"Amount released from vaults",
		[]string{"asset"},
	)
	deposited = metrics.NewCounter(
		"deposited_total",
		subsystem,
		"Amount locked in vaults on creation and deposit",
		[]string{"asset"},
	)
	ended = metrics.NewCounter(
		"ended_total",
		subsystem,
		"Vaults that reached the terminal state",
		[]string{},
	).WithLabelValues()
)
