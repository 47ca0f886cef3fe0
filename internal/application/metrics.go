package application

import "expvar"

var (
	taskMetrics = expvar.NewMap("tasks")
	authMetrics = expvar.NewMap("auth")
)
